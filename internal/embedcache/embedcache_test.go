package embedcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/embedcache"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c, err := embedcache.New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("never set")
	assert.False(t, ok)
}

func TestSetThenGetRoundTrip(t *testing.T) {
	c, err := embedcache.New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	vec := []float32{0.1, 0.2, 0.3}
	c.Set("how do I retry", vec)

	// ristretto's write path is async; wait briefly for the buffered set to land.
	require.Eventually(t, func() bool {
		_, ok := c.Get("how do I retry")
		return ok
	}, time.Second, 5*time.Millisecond)

	got, ok := c.Get("how do I retry")
	require.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestDistinctQueriesDoNotCollide(t *testing.T) {
	c, err := embedcache.New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	require.Eventually(t, func() bool {
		_, okA := c.Get("a")
		_, okB := c.Get("b")
		return okA && okB
	}, time.Second, 5*time.Millisecond)

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.NotEqual(t, a, b)
}
