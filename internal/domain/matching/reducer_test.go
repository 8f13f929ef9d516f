package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

func TestReducerRegistryResolvesBuiltins(t *testing.T) {
	registry := NewReducerRegistry()
	for _, name := range []string{"simple_mean", "avg_min_mean", "mean_plus_weight"} {
		fn, err := registry.Get(name)
		require.NoError(t, err, name)
		require.NotNil(t, fn, name)
	}
}

func TestReducerRegistryUnknownMethod(t *testing.T) {
	_, err := NewReducerRegistry().Get("harmonic_mean")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "not_implemented"))
	require.Contains(t, err.Error(), "avg_min_mean")
	require.Contains(t, err.Error(), "simple_mean")
}

func TestSimpleMean(t *testing.T) {
	got := simpleMean([]float64{0.2, 0.4, 0.6}, 0.9, ReduceOptions{})
	require.InDelta(t, 0.4, got, 1e-9)
}

func TestAvgMinMeanPenalizesWeakestTag(t *testing.T) {
	// One poor tag drags the score below the plain mean.
	scores := []float64{0.9, 0.9, 0.1}
	m := simpleMean(scores, 0, ReduceOptions{})
	got := avgMinMean(scores, 0, ReduceOptions{})
	require.Less(t, got, m)
	require.InDelta(t, (m+0.1)/2, got, 1e-9)
}

func TestMeanPlusWeightBlendsShare(t *testing.T) {
	scores := []float64{0.5, 0.5}
	got := meanPlusWeight(scores, 0.8, ReduceOptions{N: 3})
	require.InDelta(t, (0.5+3*0.8)/4, got, 1e-9)
}

func TestMeanPlusWeightZeroNIsSimpleMean(t *testing.T) {
	scores := []float64{0.3, 0.7, 0.5}
	require.InDelta(t,
		simpleMean(scores, 0.9, ReduceOptions{}),
		meanPlusWeight(scores, 0.9, ReduceOptions{N: 0}),
		1e-9)
}

func TestReducersHandleEmptyTagList(t *testing.T) {
	require.Zero(t, simpleMean(nil, 0.5, ReduceOptions{}))
	require.Zero(t, avgMinMean(nil, 0.5, ReduceOptions{}))
}

func TestRegisterOverridesStrategy(t *testing.T) {
	registry := NewReducerRegistry()
	registry.Register("simple_mean", func([]float64, float64, ReduceOptions) float64 { return 42 })
	fn, err := registry.Get("simple_mean")
	require.NoError(t, err)
	require.Equal(t, 42.0, fn(nil, 0, ReduceOptions{}))
}
