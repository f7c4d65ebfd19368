// Package geocode resolves auction addresses to coordinates through an
// ordered fallback chain (cache, OPA account lookup, free-text search,
// postal-code search) and reverse-geocodes coordinates into neighborhood
// labels. All lookups are memoized in a persistent cache, including
// confirmed negatives.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sheriffsale/auctionmap/internal/store"
)

const (
	defaultAISBaseURL       = "https://api.phila.gov/ais_doc/v1/search"
	defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"
	defaultUserAgent        = "auctionmap/1.0"
	defaultAccountDelay     = 500 * time.Millisecond
	defaultSearchDelay      = time.Second
)

// Cache is the subset of the store the resolver needs. Every call is a
// single-key atomic operation, safe under concurrent resolution tasks.
type Cache interface {
	GetCoord(ctx context.Context, query string) (*store.Coord, bool, error)
	SetCoord(ctx context.Context, query string, lat, lng float64) error
	GetNeighborhood(ctx context.Context, lat, lng float64) (string, bool, error)
	SetNeighborhood(ctx context.Context, lat, lng float64, neighborhood string) error
}

// Resolver geocodes addresses and labels coordinates with neighborhoods.
type Resolver interface {
	// Resolve returns the coordinate for an address, or nil when every
	// tier of the fallback chain came up empty. A lookup miss is not an
	// error; errors are reserved for cache faults.
	Resolve(ctx context.Context, address, opa string) (*store.Coord, error)

	// Neighborhood reverse-geocodes a coordinate into a neighborhood
	// label. Absent coordinates resolve to "Unknown" without any lookup.
	Neighborhood(ctx context.Context, lat, lng *float64) (string, error)
}

// Option configures the resolver.
type Option func(*resolver)

// WithHTTPClient sets a custom HTTP client for all external calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *resolver) { r.httpClient = hc }
}

// WithAISBaseURL overrides the property-records (AIS) endpoint.
func WithAISBaseURL(u string) Option {
	return func(r *resolver) { r.aisBaseURL = u }
}

// WithGatekeeperKey sets the AIS gatekeeper API key.
func WithGatekeeperKey(key string) Option {
	return func(r *resolver) { r.gatekeeperKey = key }
}

// WithNominatimBaseURL overrides the free-text/reverse geocoder endpoint.
func WithNominatimBaseURL(u string) Option {
	return func(r *resolver) { r.nominatimBaseURL = u }
}

// WithUserAgent sets the User-Agent sent to the geocoders, which Nominatim's
// usage policy requires to identify the application.
func WithUserAgent(ua string) Option {
	return func(r *resolver) { r.userAgent = ua }
}

// WithAccountDelay sets the politeness pause after a successful AIS lookup.
func WithAccountDelay(d time.Duration) Option {
	return func(r *resolver) { r.accountDelay = d }
}

// WithSearchDelay sets the rate-limit pause after a successful free-text or
// postal-code geocode.
func WithSearchDelay(d time.Duration) Option {
	return func(r *resolver) { r.searchDelay = d }
}

// WithRateLimit sets the requests-per-second limit applied to Nominatim
// calls on top of the post-success delays.
func WithRateLimit(rps float64) Option {
	return func(r *resolver) { r.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type resolver struct {
	httpClient       *http.Client
	cache            Cache
	aisBaseURL       string
	gatekeeperKey    string
	nominatimBaseURL string
	userAgent        string
	accountDelay     time.Duration
	searchDelay      time.Duration
	limiter          *rate.Limiter
}

// NewResolver creates a Resolver backed by the given cache.
func NewResolver(cache Cache, opts ...Option) Resolver {
	r := &resolver{
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		cache:            cache,
		aisBaseURL:       defaultAISBaseURL,
		nominatimBaseURL: defaultNominatimBaseURL,
		userAgent:        defaultUserAgent,
		accountDelay:     defaultAccountDelay,
		searchDelay:      defaultSearchDelay,
		limiter:          rate.NewLimiter(1, 1), // Nominatim policy: 1 req/s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the fallback chain in order. The first successful tier's
// coordinate is cached under the original address key, except the
// postal-code tier, which caches under the postal code itself. Tier misses
// (non-2xx, timeout, malformed payload, empty result) fall through to the
// next tier.
func (r *resolver) Resolve(ctx context.Context, address, opa string) (*store.Coord, error) {
	coord, found, err := r.cache.GetCoord(ctx, address)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}
	if found {
		zap.L().Debug("geocode cache hit",
			zap.String("address", address),
			zap.Bool("resolved", coord != nil),
		)
		return coord, nil
	}

	if opa != "" {
		if c := r.lookupAccount(ctx, opa, address); c != nil {
			r.cacheCoord(ctx, address, c)
			r.pause(ctx, r.accountDelay)
			return c, nil
		}
	}

	if c := r.searchText(ctx, address); c != nil {
		r.cacheCoord(ctx, address, c)
		r.pause(ctx, r.searchDelay)
		return c, nil
	}

	return r.postalFallback(ctx, address)
}

// postalFallback extracts the first standalone 5-digit sequence from the
// address and geocodes just that. A hit is cached under the postal code,
// never under the address. When no postal code is present the chain ends
// without caching a negative for the address, so a later attempt retries
// the earlier tiers.
func (r *resolver) postalFallback(ctx context.Context, address string) (*store.Coord, error) {
	zip := extractPostalCode(address)
	if zip == "" {
		zap.L().Debug("geocode: no postal code in address", zap.String("address", address))
		return nil, nil
	}

	if c := r.searchText(ctx, zip); c != nil {
		r.cacheCoord(ctx, zip, c)
		r.pause(ctx, r.searchDelay)
		return c, nil
	}

	zap.L().Debug("geocode: postal fallback unresolved",
		zap.String("address", address),
		zap.String("zip", zip),
	)
	return nil, nil
}

// cacheCoord stores a successful resolution. A write failure loses only the
// memoization, not the result, so it is logged rather than returned.
func (r *resolver) cacheCoord(ctx context.Context, key string, c *store.Coord) {
	if err := r.cache.SetCoord(ctx, key, c.Lat, c.Lng); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// pause sleeps for d or until the context is done.
func (r *resolver) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
