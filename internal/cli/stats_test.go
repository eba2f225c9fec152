package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivationDistributionEmpty(t *testing.T) {
	_, ok := activationDistribution(nil)
	assert.False(t, ok)
}

func TestActivationDistributionSingleValue(t *testing.T) {
	dist, ok := activationDistribution([]float64{2.0})
	assert.True(t, ok)
	assert.Equal(t, 2.0, dist.min)
	assert.Equal(t, 2.0, dist.max)
	assert.Equal(t, 2.0, dist.p50)
	assert.Equal(t, 2.0, dist.mean)
}

func TestActivationDistributionSpread(t *testing.T) {
	dist, ok := activationDistribution([]float64{1, 2, 3, 4, 5})
	assert.True(t, ok)
	assert.Equal(t, 1.0, dist.min)
	assert.Equal(t, 5.0, dist.max)
	assert.Equal(t, 3.0, dist.p50)
	assert.Equal(t, 3.0, dist.mean)
}

func TestSortedKeysOrdersAlphabetically(t *testing.T) {
	keys := sortedKeys(map[string]int{"rust": 1, "go": 2, "elixir": 3})
	assert.Equal(t, []string{"elixir", "go", "rust"}, keys)
}
