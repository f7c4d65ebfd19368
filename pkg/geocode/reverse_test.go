package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheriffsale/auctionmap/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestNeighborhood_AbsentCoordinatesSkipLookup(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	for _, tc := range []struct{ lat, lng *float64 }{
		{nil, nil},
		{ptr(39.95), nil},
		{nil, ptr(-75.16)},
	} {
		n, err := r.Neighborhood(context.Background(), tc.lat, tc.lng)
		require.NoError(t, err)
		assert.Equal(t, model.UnknownNeighborhood, n)
	}
	assert.Equal(t, int32(0), ts.reverseCalls.Load())
}

func TestNeighborhood_CacheHitSkipsLookup(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.SetNeighborhood(context.Background(), 39.9526, -75.1652, "Center City"))
	ts := newTestServices(t)
	r := newTestResolver(cache, ts)

	n, err := r.Neighborhood(context.Background(), ptr(39.9526), ptr(-75.1652))
	require.NoError(t, err)
	assert.Equal(t, "Center City", n)
	assert.Equal(t, int32(0), ts.reverseCalls.Load())
}

func TestNeighborhood_PrefersResidentialOverNeighbourhood(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.reverseBody = `{"address":{"residential":"Packer Park","neighbourhood":"South Philly"}}`
	r := newTestResolver(cache, ts)

	n, err := r.Neighborhood(context.Background(), ptr(39.91), ptr(-75.17))
	require.NoError(t, err)
	assert.Equal(t, "Packer Park", n)
}

func TestNeighborhood_FallsBackToNeighbourhoodField(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.reverseBody = `{"address":{"neighbourhood":"Fishtown"}}`
	r := newTestResolver(cache, ts)

	n, err := r.Neighborhood(context.Background(), ptr(39.97), ptr(-75.13))
	require.NoError(t, err)
	assert.Equal(t, "Fishtown", n)

	cached, found, err := cache.GetNeighborhood(context.Background(), 39.97, -75.13)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Fishtown", cached)
}

func TestNeighborhood_SuccessfulUnknownIsCached(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.reverseBody = `{"address":{}}`
	r := newTestResolver(cache, ts)

	n, err := r.Neighborhood(context.Background(), ptr(40.0), ptr(-75.0))
	require.NoError(t, err)
	assert.Equal(t, model.UnknownNeighborhood, n)

	// The sentinel was cached, so the next call stays local.
	n, err = r.Neighborhood(context.Background(), ptr(40.0), ptr(-75.0))
	require.NoError(t, err)
	assert.Equal(t, model.UnknownNeighborhood, n)
	assert.Equal(t, int32(1), ts.reverseCalls.Load())
}

func TestNeighborhood_RequestFailureNotCached(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.reverseBody = "" // 500
	r := newTestResolver(cache, ts)

	n, err := r.Neighborhood(context.Background(), ptr(40.0), ptr(-75.0))
	require.NoError(t, err)
	assert.Equal(t, model.UnknownNeighborhood, n)

	_, found, err := cache.GetNeighborhood(context.Background(), 40.0, -75.0)
	require.NoError(t, err)
	assert.False(t, found, "transport failures must stay uncached")

	// A later identical coordinate retries the lookup.
	ts.reverseBody = `{"address":{"neighbourhood":"Fishtown"}}`
	n, err = r.Neighborhood(context.Background(), ptr(40.0), ptr(-75.0))
	require.NoError(t, err)
	assert.Equal(t, "Fishtown", n)
	assert.Equal(t, int32(2), ts.reverseCalls.Load())
}

func TestNeighborhood_NearbyCoordinatesDoNotShareCacheEntries(t *testing.T) {
	cache := newMemCache()
	ts := newTestServices(t)
	ts.reverseBody = `{"address":{"neighbourhood":"Fishtown"}}`
	r := newTestResolver(cache, ts)

	_, err := r.Neighborhood(context.Background(), ptr(39.9700), ptr(-75.1300))
	require.NoError(t, err)
	_, err = r.Neighborhood(context.Background(), ptr(39.9700001), ptr(-75.1300))
	require.NoError(t, err)

	assert.Equal(t, int32(2), ts.reverseCalls.Load(), "exact-pair keys, no tolerance")
}
