package matching

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

// ReduceOptions carries strategy-specific parameters.
type ReduceOptions struct {
	// N controls how strongly mean_plus_weight blends the corpus weight
	// share into the similarity score. N=0 reduces to simple_mean.
	N int
}

// ReduceFunc collapses the per-tag similarities of one item into a single
// overall score.
type ReduceFunc func(tagScores []float64, weightShare float64, opts ReduceOptions) float64

// ReducerRegistry maps reduction-method names to implementations. New
// strategies register at startup; call sites only ever look up by name.
type ReducerRegistry struct {
	methods map[string]ReduceFunc
}

// NewReducerRegistry returns a registry preloaded with the built-in
// strategies.
func NewReducerRegistry() *ReducerRegistry {
	r := &ReducerRegistry{methods: make(map[string]ReduceFunc)}
	r.Register("simple_mean", simpleMean)
	r.Register("avg_min_mean", avgMinMean)
	r.Register("mean_plus_weight", meanPlusWeight)
	return r
}

// Register adds or replaces a named strategy.
func (r *ReducerRegistry) Register(name string, fn ReduceFunc) {
	r.methods[name] = fn
}

// Get resolves a strategy by name. Unknown names report every registered
// method so configuration mistakes are easy to fix.
func (r *ReducerRegistry) Get(name string) (ReduceFunc, error) {
	fn, ok := r.methods[name]
	if !ok {
		known := make([]string, 0, len(r.methods))
		for k := range r.methods {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, apperrors.Wrap("not_implemented",
			fmt.Sprintf("unknown reduction method %q, valid methods: %s", name, strings.Join(known, ", ")), nil)
	}
	return fn, nil
}

func simpleMean(tagScores []float64, _ float64, _ ReduceOptions) float64 {
	return mean(tagScores)
}

// avgMinMean penalizes an item whose weakest tag matches poorly even when
// the remaining tags match well. This is the conservative default.
func avgMinMean(tagScores []float64, _ float64, _ ReduceOptions) float64 {
	if len(tagScores) == 0 {
		return 0
	}
	return (mean(tagScores) + minOf(tagScores)) / 2
}

func meanPlusWeight(tagScores []float64, weightShare float64, opts ReduceOptions) float64 {
	n := float64(opts.N)
	return (mean(tagScores) + n*weightShare) / (n + 1)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
