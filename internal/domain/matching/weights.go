package matching

import (
	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

// AddWeightShares derives WeightShare for every item so that the shares form
// a probability distribution over the snapshot. Items without an explicit
// weight count as weight 1, so an unweighted corpus degenerates to a uniform
// distribution. A corpus whose weights sum to zero is a configuration fault
// and is rejected instead of producing NaN shares.
func AddWeightShares(items []CorpusItem) ([]CorpusItem, error) {
	if len(items) == 0 {
		return items, nil
	}

	total := 0
	for i := range items {
		if items[i].Weight < 0 {
			items[i].Weight = defaultItemWeight
		}
		total += items[i].Weight
	}
	if total == 0 {
		return nil, apperrors.Wrap("config_error", "total corpus weight is zero", nil)
	}

	for i := range items {
		items[i].WeightShare = float64(items[i].Weight) / float64(total)
	}
	return items, nil
}

const defaultItemWeight = 1
