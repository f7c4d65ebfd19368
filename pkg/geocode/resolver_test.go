package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheriffsale/auctionmap/internal/store"
)

// memCache is an in-memory Cache with per-key presence tracking, so tests
// can assert exactly which keys were written.
type memCache struct {
	mu     sync.Mutex
	coords map[string]*store.Coord // nil value = cached negative
	hoods  map[string]string
}

func newMemCache() *memCache {
	return &memCache{
		coords: make(map[string]*store.Coord),
		hoods:  make(map[string]string),
	}
}

func (m *memCache) GetCoord(_ context.Context, query string) (*store.Coord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coords[query]
	return c, ok, nil
}

func (m *memCache) SetCoord(_ context.Context, query string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coords[query] = &store.Coord{Lat: lat, Lng: lng}
	return nil
}

func (m *memCache) setNegative(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coords[query] = nil
}

func (m *memCache) has(query string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.coords[query]
	return ok
}

func hoodKey(lat, lng float64) string {
	return fmt.Sprintf("%v|%v", lat, lng)
}

func (m *memCache) GetNeighborhood(_ context.Context, lat, lng float64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.hoods[hoodKey(lat, lng)]
	return n, ok, nil
}

func (m *memCache) SetNeighborhood(_ context.Context, lat, lng float64, neighborhood string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hoods[hoodKey(lat, lng)] = neighborhood
	return nil
}

// testServices serves stub AIS and Nominatim endpoints and counts calls.
type testServices struct {
	srv *httptest.Server

	aisCalls     atomic.Int32
	searchCalls  atomic.Int32
	reverseCalls atomic.Int32

	aisBody     string // empty = 404
	searchBody  func(q string) string
	reverseBody string // empty = 500
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ais/", func(w http.ResponseWriter, _ *http.Request) {
		ts.aisCalls.Add(1)
		if ts.aisBody == "" {
			http.NotFound(w, nil)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, ts.aisBody)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		ts.searchCalls.Add(1)
		body := "[]"
		if ts.searchBody != nil {
			body = ts.searchBody(r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, _ *http.Request) {
		ts.reverseCalls.Add(1)
		if ts.reverseBody == "" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, ts.reverseBody)
	})

	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServices) externalCalls() int32 {
	return ts.aisCalls.Load() + ts.searchCalls.Load() + ts.reverseCalls.Load()
}

func newTestResolver(cache Cache, ts *testServices) Resolver {
	return NewResolver(cache,
		WithAISBaseURL(ts.srv.URL+"/ais"),
		WithNominatimBaseURL(ts.srv.URL),
		WithGatekeeperKey("test-key"),
		WithAccountDelay(0),
		WithSearchDelay(0),
		WithRateLimit(10000),
	)
}

const aisFeature = `{"features":[{"geometry":{"coordinates":[-75.1652,39.9526]}}]}`

func searchHit(lat, lng string) func(string) string {
	return func(string) string {
		return `[{"lat":"` + lat + `","lon":"` + lng + `"}]`
	}
}

func TestResolve_CacheHitSkipsAllExternalCalls(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.SetCoord(context.Background(), "123 Main St", 39.95, -75.16))
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "123 Main St", "881052600")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.Equal(t, 39.95, coord.Lat)
	assert.Equal(t, int32(0), ts.externalCalls(), "cache hit must not touch the network")
}

func TestResolve_CachedNegativeSkipsAllExternalCalls(t *testing.T) {
	cache := newMemCache()
	cache.setNegative("123 Main St")
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "123 Main St", "881052600")
	require.NoError(t, err)
	assert.Nil(t, coord, "cached negative resolves to no coordinate")
	assert.Equal(t, int32(0), ts.externalCalls(), "cached negative must not touch the network")
}

func TestResolve_AccountTierWins_CachedUnderAddress(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.aisBody = aisFeature
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "123 Main St Philadelphia PA 19103", "881052600")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.Equal(t, 39.9526, coord.Lat)
	assert.Equal(t, -75.1652, coord.Lng)

	assert.Equal(t, int32(1), ts.aisCalls.Load())
	assert.Equal(t, int32(0), ts.searchCalls.Load(), "later tiers not attempted after a hit")
	assert.True(t, cache.has("123 Main St Philadelphia PA 19103"), "result cached under address key")
	assert.False(t, cache.has("19103"), "postal key untouched by the account tier")
}

func TestResolve_NoOPASkipsAccountTier(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.searchBody = searchHit("39.9526", "-75.1652")
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "123 Main St", "")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.Equal(t, int32(0), ts.aisCalls.Load())
	assert.Equal(t, int32(1), ts.searchCalls.Load())
}

func TestResolve_AccountMissFallsThroughToFreeText(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.aisBody = "" // 404
	ts.searchBody = searchHit("39.9526", "-75.1652")
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "123 Main St", "881052600")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.Equal(t, int32(1), ts.aisCalls.Load())
	assert.Equal(t, int32(1), ts.searchCalls.Load())
	assert.True(t, cache.has("123 Main St"))
}

func TestResolve_PostalFallback_CachedUnderPostalKeyOnly(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	// Free-text misses for the address, hits for the bare zip.
	ts.searchBody = func(q string) string {
		if q == "19103" {
			return `[{"lat":"39.9506","lon":"-75.1719"}]`
		}
		return "[]"
	}
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "vacant lot near 19103", "")
	require.NoError(t, err)
	require.NotNil(t, coord)
	assert.Equal(t, 39.9506, coord.Lat)

	assert.Equal(t, int32(2), ts.searchCalls.Load(), "address then zip")
	assert.True(t, cache.has("19103"), "postal hit cached under the postal code")
	assert.False(t, cache.has("vacant lot near 19103"), "postal hit not cached under the address")
}

func TestResolve_NoPostalCode_FailsWithoutCachingNegative(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "no zip here", "")
	require.NoError(t, err)
	assert.Nil(t, coord)
	assert.False(t, cache.has("no zip here"), "failure branch must not cache a negative")

	// A second attempt re-walks the earlier tiers instead of short-circuiting.
	before := ts.searchCalls.Load()
	_, err = r.Resolve(context.Background(), "no zip here", "")
	require.NoError(t, err)
	assert.Greater(t, ts.searchCalls.Load(), before, "second attempt must re-query")
}

func TestResolve_PostalQueryMiss_NoNegativeCached(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	coord, err := r.Resolve(context.Background(), "nothing at 99999", "")
	require.NoError(t, err)
	assert.Nil(t, coord)
	assert.False(t, cache.has("nothing at 99999"))
	assert.False(t, cache.has("99999"))
}

func TestExtractPostalCode(t *testing.T) {
	assert.Equal(t, "19103", extractPostalCode("2100 Market St Philadelphia PA 19103"))
	assert.Equal(t, "19103", extractPostalCode("19103 & 19104"))
	assert.Empty(t, extractPostalCode("no zip here"))
	assert.Empty(t, extractPostalCode("123456 is too long"), "six digits is not a postal code")
}
