package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/model"
)

// reverseResponse is the jsonv2 reverse-geocode payload. The neighborhood
// label lives in the address components: "residential" is preferred over
// "neighbourhood".
type reverseResponse struct {
	Address struct {
		Residential   string `json:"residential"`
		Neighbourhood string `json:"neighbourhood"`
	} `json:"address"`
}

// Neighborhood reverse-geocodes a coordinate into a neighborhood label.
// Absent coordinates return "Unknown" without a lookup. A successful
// response is cached even when it yields "Unknown", so a confirmed empty
// area is not re-queried; transport failures stay uncached so a transient
// error is retried on the next identical coordinate.
func (r *resolver) Neighborhood(ctx context.Context, lat, lng *float64) (string, error) {
	if lat == nil || lng == nil {
		return model.UnknownNeighborhood, nil
	}

	cached, found, err := r.cache.GetNeighborhood(ctx, *lat, *lng)
	if err != nil {
		return model.UnknownNeighborhood, eris.Wrap(err, "geocode: neighborhood cache lookup")
	}
	if found {
		zap.L().Debug("neighborhood cache hit",
			zap.Float64("lat", *lat),
			zap.Float64("lng", *lng),
			zap.String("neighborhood", cached),
		)
		return cached, nil
	}

	label, ok := r.reverseLookup(ctx, *lat, *lng)
	if !ok {
		return model.UnknownNeighborhood, nil
	}

	if err := r.cache.SetNeighborhood(ctx, *lat, *lng, label); err != nil {
		zap.L().Warn("geocode: neighborhood cache write failed", zap.Error(err))
	}
	return label, nil
}

// reverseLookup calls the reverse geocoder. ok=false means the request
// failed and the outcome must not be cached.
func (r *resolver) reverseLookup(ctx context.Context, lat, lng float64) (string, bool) {
	log := zap.L().With(zap.Float64("lat", lat), zap.Float64("lng", lng))

	if err := r.limiter.Wait(ctx); err != nil {
		log.Debug("reverse: rate limit wait cancelled", zap.Error(err))
		return "", false
	}

	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	reqURL := r.nominatimBaseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Debug("reverse: build request failed", zap.Error(err))
		return "", false
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Debug("reverse: request failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		log.Debug("reverse: non-200 status", zap.Int("status", resp.StatusCode))
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("reverse: read body failed", zap.Error(err))
		return "", false
	}

	var rev reverseResponse
	if err := json.Unmarshal(body, &rev); err != nil {
		log.Debug("reverse: parse response failed", zap.Error(err))
		return "", false
	}

	label := rev.Address.Residential
	if label == "" {
		label = rev.Address.Neighbourhood
	}
	if label == "" {
		label = model.UnknownNeighborhood
	}

	log.Debug("reverse: resolved", zap.String("neighborhood", label))
	return label, true
}
