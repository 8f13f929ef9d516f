package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

func rankingItems() []CorpusItem {
	return []CorpusItem{
		{ID: 1, Title: "passwords", Content: "reset it"},
		{ID: 2, Title: "billing", Content: "pay here"},
		{ID: 3, Title: "shipping", Content: "track it"},
	}
}

func TestBuildScoringRecordRanksDescending(t *testing.T) {
	record, err := BuildScoringRecord(rankingItems(), []float64{0.2, 0.9, 0.5}, "corrected text")
	require.NoError(t, err)
	require.Equal(t, "corrected text", record.SpellCorrected)
	require.Equal(t, "1", record.Scores["2"].Rank)
	require.Equal(t, "2", record.Scores["3"].Rank)
	require.Equal(t, "3", record.Scores["1"].Rank)
	require.Equal(t, "0.90000000", record.Scores["2"].OverallScore)
}

func TestBuildScoringRecordTiesKeepSnapshotOrder(t *testing.T) {
	record, err := BuildScoringRecord(rankingItems(), []float64{0.5, 0.5, 0.5}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2", "3"}, rankedIDs(record))
}

func TestBuildScoringRecordDeterministicAcrossRuns(t *testing.T) {
	scores := []float64{0.31, 0.72, 0.31}
	first, err := BuildScoringRecord(rankingItems(), scores, "q")
	require.NoError(t, err)
	second, err := BuildScoringRecord(rankingItems(), scores, "q")
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestBuildScoringRecordLengthMismatch(t *testing.T) {
	_, err := BuildScoringRecord(rankingItems(), []float64{0.1}, "")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "config_error"))
}

func TestRanksAreGaplessPermutation(t *testing.T) {
	record, err := BuildScoringRecord(rankingItems(), []float64{0.4, 0.4, 0.9}, "")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, entry := range record.Scores {
		seen[entry.Rank] = true
	}
	require.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, seen)
}

func TestTopMatchesByTitleDeduplicates(t *testing.T) {
	items := []CorpusItem{
		{ID: 1, Title: "passwords"},
		{ID: 2, Title: "passwords"},
		{ID: 3, Title: "billing"},
	}
	record, err := BuildScoringRecord(items, []float64{0.9, 0.8, 0.7}, "")
	require.NoError(t, err)

	top := TopMatchesByTitle(record, 10)
	require.Len(t, top, 2)
	require.Equal(t, "passwords", top[0].Title)
	require.Equal(t, "billing", top[1].Title)

	// The underlying record still carries every item.
	require.Len(t, record.Scores, 3)
}

func TestTopMatchesByTitleHonorsLimit(t *testing.T) {
	record, err := BuildScoringRecord(rankingItems(), []float64{0.2, 0.9, 0.5}, "")
	require.NoError(t, err)
	top := TopMatchesByTitle(record, 2)
	require.Len(t, top, 2)
	require.Equal(t, "billing", top[0].Title)
}
