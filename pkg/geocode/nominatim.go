package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/sheriffsale/auctionmap/internal/store"
)

// postalCodeRe matches the first standalone 5-digit sequence in an address.
var postalCodeRe = regexp.MustCompile(`\b(\d{5})\b`)

// extractPostalCode returns the first standalone 5-digit postal code found
// in the text, or "".
func extractPostalCode(text string) string {
	m := postalCodeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// nominatimResult is one entry of the free-text search response. Nominatim
// returns coordinates as strings in jsonv2.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// searchText queries the free-text geocoder with the given query, limited
// to one result. Any failure is a tier miss and returns nil.
func (r *resolver) searchText(ctx context.Context, query string) *store.Coord {
	log := zap.L().With(zap.String("query", query))

	if err := r.limiter.Wait(ctx); err != nil {
		log.Debug("nominatim: rate limit wait cancelled", zap.Error(err))
		return nil
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	reqURL := r.nominatimBaseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		log.Debug("nominatim: build request failed", zap.Error(err))
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Debug("nominatim: request failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		log.Debug("nominatim: non-200 status", zap.Int("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug("nominatim: read body failed", zap.Error(err))
		return nil
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		log.Debug("nominatim: parse response failed", zap.Error(err))
		return nil
	}
	if len(results) == 0 {
		log.Debug("nominatim: no results")
		return nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		log.Debug("nominatim: malformed coordinates",
			zap.String("lat", results[0].Lat),
			zap.String("lon", results[0].Lon),
		)
		return nil
	}

	c := &store.Coord{Lat: lat, Lng: lng}
	log.Debug("nominatim: resolved", zap.Float64("lat", c.Lat), zap.Float64("lng", c.Lng))
	return c
}
