package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/store"
)

// aisResponse is the feature list returned by the property-records service.
// Geometry coordinates are GeoJSON order: [lng, lat].
type aisResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// lookupAccount queries the AIS property-records service by OPA account
// number and extracts the first feature's point geometry. Any failure is a
// tier miss and returns nil.
func (r *resolver) lookupAccount(ctx context.Context, opa, address string) *store.Coord {
	log := zap.L().With(zap.String("opa", opa), zap.String("address", address))

	reqURL := r.aisBaseURL + "/" + url.PathEscape(opa)
	if r.gatekeeperKey != "" {
		reqURL += "?" + url.Values{"gatekeeperKey": {r.gatekeeperKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Debug("ais: build request failed", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Debug("ais: request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		log.Debug("ais: non-200 status", zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("ais: read body failed", zap.Error(err))
		return nil
	}

	var ais aisResponse
	if err := json.Unmarshal(body, &ais); err != nil {
		log.Debug("ais: parse response failed", zap.Error(err))
		return nil
	}

	if len(ais.Features) == 0 {
		log.Debug("ais: no features")
		return nil
	}
	coords := ais.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		log.Debug("ais: feature has no point geometry")
		return nil
	}

	c := &store.Coord{Lat: coords[1], Lng: coords[0]}
	log.Debug("ais: resolved", zap.Float64("lat", c.Lat), zap.Float64("lng", c.Lng))
	return c
}
