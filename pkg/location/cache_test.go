package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	loc   Resolved
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, _ Query) (Resolved, error) {
	s.calls++
	return s.loc, s.err
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (Resolved, bool, error) {
	return Resolved{}, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, Resolved, time.Duration) error {
	return errors.New("cache down")
}

func TestCachedResolverHitsCacheOnSecondCall(t *testing.T) {
	next := &stubResolver{loc: Resolved{DisplayName: "Portland, OR", StateAbbreviation: "OR", Latitude: "45.5", Longitude: "-122.6"}}
	r := NewCachedResolver(next, NewMemoryCache(), time.Hour, discardLogger())

	first, err := r.Resolve(context.Background(), CityStateQuery("Portland", "OR"))
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), CityStateQuery("portland", "or"))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, next.calls)
}

func TestCachedResolverDoesNotCacheErrors(t *testing.T) {
	next := &stubResolver{err: errors.New("nope")}
	r := NewCachedResolver(next, NewMemoryCache(), time.Hour, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), ZipcodeQuery("00000"))
		require.Error(t, err)
	}
	require.Equal(t, 2, next.calls)
}

func TestCachedResolverBypassesBrokenCache(t *testing.T) {
	next := &stubResolver{loc: Resolved{DisplayName: "X, NY"}}
	r := NewCachedResolver(next, brokenCache{}, time.Hour, discardLogger())

	loc, err := r.Resolve(context.Background(), ZipcodeQuery("10001"))
	require.NoError(t, err)
	require.Equal(t, "X, NY", loc.DisplayName)
}

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", Resolved{DisplayName: "A, B"}, time.Minute))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}
