package matching

import (
	"fmt"
	"sort"
	"strconv"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

// scorePrecision fixes the decimal places used when persisting scores.
// Storing strings instead of floats keeps replayed payloads stable across
// serialization round trips.
const scorePrecision = 8

// BuildScoringRecord turns one overall score per item into the persisted
// ranking. Items are stable-sorted descending by score, so ties keep their
// snapshot order and identical inputs always produce identical records.
// Ranks are a gapless permutation of 1..N.
func BuildScoringRecord(items []CorpusItem, overallScores []float64, spellCorrected string) (ScoringRecord, error) {
	if len(items) != len(overallScores) {
		return ScoringRecord{}, apperrors.Wrap("config_error",
			fmt.Sprintf("items and scores must have equal length, got %d and %d", len(items), len(overallScores)), nil)
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return overallScores[order[a]] > overallScores[order[b]]
	})

	record := ScoringRecord{
		SpellCorrected: spellCorrected,
		Scores:         make(map[string]ScoreEntry, len(items)),
	}
	for rank, idx := range order {
		item := items[idx]
		record.Scores[formatID(item.ID)] = ScoreEntry{
			Title:        item.Title,
			Content:      item.Content,
			OverallScore: strconv.FormatFloat(overallScores[idx], 'f', scorePrecision, 64),
			Rank:         strconv.Itoa(rank + 1),
		}
	}
	return record, nil
}

// rankedIDs returns the item ids of a record ordered by ascending rank.
func rankedIDs(record ScoringRecord) []string {
	ids := make([]string, 0, len(record.Scores))
	for id := range record.Scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		ra, _ := strconv.Atoi(record.Scores[ids[a]].Rank)
		rb, _ := strconv.Atoi(record.Scores[ids[b]].Rank)
		return ra < rb
	})
	return ids
}

// TopMatchesByTitle is the internal-tools view over a ranking: ranked order,
// but only the first occurrence of each title. It never changes the
// underlying ranking.
func TopMatchesByTitle(record ScoringRecord, limit int) []ScoreEntry {
	seen := make(map[string]struct{})
	out := make([]ScoreEntry, 0, limit)
	for _, id := range rankedIDs(record) {
		entry := record.Scores[id]
		if _, ok := seen[entry.Title]; ok {
			continue
		}
		seen[entry.Title] = struct{}{}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
