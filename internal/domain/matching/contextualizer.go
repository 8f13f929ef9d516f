package matching

import (
	"fmt"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

// Contextualizer reranks items by how close their declared contexts sit to
// the contexts requested with a message. Distances come from an ordered
// distance matrix over the configured context list: contexts adjacent in the
// list are near, contexts far apart in the list are distant.
type Contextualizer struct {
	contexts []string
	index    map[string]int
	distance [][]float64

	// item id -> the contexts the item participates in. Items that declare
	// no contexts inherit the full list and are unaffected by reranking.
	itemContexts map[int64][]string
}

// NewContextualizer builds the distance matrix for the ordered context list
// and records each item's declared contexts.
func NewContextualizer(contexts []string, items []CorpusItem) *Contextualizer {
	c := &Contextualizer{
		contexts:     contexts,
		index:        make(map[string]int, len(contexts)),
		distance:     orderedDistanceMatrix(len(contexts)),
		itemContexts: make(map[int64][]string, len(items)),
	}
	for i, name := range contexts {
		c.index[name] = i
	}
	for _, item := range items {
		if len(item.Contexts) > 0 {
			c.itemContexts[item.ID] = item.Contexts
		} else {
			c.itemContexts[item.ID] = contexts
		}
	}
	return c
}

// Weights returns one multiplier per item id for the requested contexts.
// Per requested context the most favorable (nearest) declared context wins;
// multiple requested contexts combine by averaging their affinities. An
// empty request yields the neutral weight 1 for every item.
func (c *Contextualizer) Weights(requested []string) (map[int64]float64, error) {
	weights := make(map[int64]float64, len(c.itemContexts))
	if len(requested) == 0 {
		for id := range c.itemContexts {
			weights[id] = 1
		}
		return weights, nil
	}

	reqIdx := make([]int, 0, len(requested))
	for _, name := range requested {
		i, ok := c.index[name]
		if !ok {
			return nil, apperrors.Wrap("invalid_input", fmt.Sprintf("unknown context %q", name), nil)
		}
		reqIdx = append(reqIdx, i)
	}

	for id, declared := range c.itemContexts {
		total := 0.0
		for _, r := range reqIdx {
			best := -1.0
			for _, name := range declared {
				d, ok := c.index[name]
				if !ok {
					continue
				}
				if a := affinity(c.distance[r][d]); a > best {
					best = a
				}
			}
			if best < 0 {
				best = 0
			}
			total += best
		}
		weights[id] = total / float64(len(reqIdx))
	}
	return weights, nil
}

// affinity maps a distance to a multiplicative weight in (0, 1].
func affinity(distance float64) float64 {
	return 1 / (1 + distance)
}

func orderedDistanceMatrix(n int) [][]float64 {
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			d := i - j
			if d < 0 {
				d = -d
			}
			matrix[i][j] = float64(d)
		}
	}
	return matrix
}
