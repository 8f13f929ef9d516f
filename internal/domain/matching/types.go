package matching

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is the read-only view of anything the matching engine can score.
// Stored corpus items and transient candidates (see CandidateItem) both
// satisfy it.
type Entry interface {
	EntryID() string
	EntryTitle() string
	EntryContent() string
	EntryTags() []string
}

// CorpusItem is one FAQ row pulled into an in-memory snapshot. Items are
// never mutated after a snapshot is built; a refresh replaces the whole
// snapshot.
type CorpusItem struct {
	ID          int64
	Title       string
	Content     string
	Tags        []string
	Thresholds  []float64
	Weight      int
	WeightShare float64
	Contexts    []string
	Author      string
	AddedUTC    time.Time
	UpdatedUTC  time.Time
}

func (i CorpusItem) EntryID() string      { return formatID(i.ID) }
func (i CorpusItem) EntryTitle() string   { return i.Title }
func (i CorpusItem) EntryContent() string { return i.Content }
func (i CorpusItem) EntryTags() []string  { return i.Tags }

// CandidateItem stands in for an FAQ that has no database row yet. Internal
// tooling uses it to probe what a proposed tag set would match against.
type CandidateItem struct {
	Title string
	Tags  []string
}

func (c CandidateItem) EntryID() string      { return "TEMP" }
func (c CandidateItem) EntryTitle() string   { return c.Title }
func (c CandidateItem) EntryContent() string { return "" }
func (c CandidateItem) EntryTags() []string  { return c.Tags }

// Snapshot is an immutable view of the corpus for one cache epoch. Items are
// ordered by ascending id; WeightShare values sum to one.
type Snapshot struct {
	Items    []CorpusItem
	LoadedAt time.Time

	contextualizer *Contextualizer
}

// Entries adapts the snapshot items for the engine boundary.
func (s *Snapshot) Entries() []Entry {
	entries := make([]Entry, len(s.Items))
	for i, item := range s.Items {
		entries[i] = item
	}
	return entries
}

// LanguageContext is the single active language-contextualization record.
// Its glossary, entity pairs and typo guides parameterize the external
// matching engine; refreshing it reconfigures the engine.
type LanguageContext struct {
	VersionID        string              `json:"version_id"`
	Glossary         map[string][]string `json:"custom_wvs"`
	PairwiseEntities map[string]string   `json:"pairwise_triplewise_entities"`
	TagGuidingTypos  []string            `json:"tag_guiding_typos"`
}

// ScoreEntry is the per-item slice of a scoring record. Numeric values are
// stored as fixed-precision strings so the persisted form never drifts
// across serialization round trips.
type ScoreEntry struct {
	Title        string `json:"faq_title"`
	Content      string `json:"faq_content_to_send"`
	OverallScore string `json:"overall_score"`
	Rank         string `json:"rank"`
}

// ScoringRecord is the full ranking persisted with an inbound request. It is
// written once and replayed verbatim for every page fetch.
type ScoringRecord struct {
	SpellCorrected string                `json:"spell_corrected"`
	Scores         map[string]ScoreEntry `json:"scores"`
}

// TopResponse is one ranked match in a returned page. The wire form is the
// historical three-element array [id, title, content].
type TopResponse struct {
	FAQID   string
	Title   string
	Content string
}

// MarshalJSON keeps the legacy tuple encoding.
func (t TopResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{t.FAQID, t.Title, t.Content})
}

// UnmarshalJSON accepts the tuple encoding.
func (t *TopResponse) UnmarshalJSON(data []byte) error {
	var tuple []string
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 3 {
		return errors.New("top response must have exactly three elements")
	}
	t.FAQID, t.Title, t.Content = tuple[0], tuple[1], tuple[2]
	return nil
}

// InboundRecord is one persisted scoring transaction. Scoring and
// ReturnedContent are immutable after insert; Feedback is append-only.
type InboundRecord struct {
	ID                int64
	FeedbackSecretKey string
	InboundSecretKey  string
	Text              string
	Metadata          json.RawMessage
	ReceivedUTC       time.Time
	Scoring           ScoringRecord
	ReturnedContent   json.RawMessage
	ReturnedUTC       time.Time
	Feedback          json.RawMessage
}

// LooseBool is a boolean that also accepts its historical string form, so
// callers may send either true or "true".
type LooseBool bool

func (b *LooseBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = LooseBool(t)
	case string:
		*b = LooseBool(t == "true")
	default:
		*b = false
	}
	return nil
}

// CheckRequest is an inbound scoring request.
type CheckRequest struct {
	Text          string          `json:"text_to_match"`
	Contexts      []string        `json:"context"`
	Metadata      json.RawMessage `json:"metadata"`
	ReturnScoring LooseBool       `json:"return_scoring"`
}

// CheckResponse is the page-1 view returned for a fresh scoring request.
type CheckResponse struct {
	TopResponses      []TopResponse  `json:"top_responses"`
	FeedbackSecretKey string         `json:"feedback_secret_key"`
	InboundSecretKey  string         `json:"inbound_secret_key"`
	InboundID         string         `json:"inbound_id"`
	SpellCorrected    string         `json:"spell_corrected"`
	Scoring           *ScoringRecord `json:"scoring,omitempty"`
	NextPageURL       string         `json:"next_page_url,omitempty"`
	PrevPageURL       string         `json:"prev_page_url,omitempty"`
}

// FeedbackRequest attaches caller feedback to a stored request.
type FeedbackRequest struct {
	InboundID         int64           `json:"inbound_id"`
	FeedbackSecretKey string          `json:"feedback_secret_key"`
	Feedback          json.RawMessage `json:"feedback"`
}

// CandidateMatch is one row of the check-new-tags tooling output.
type CandidateMatch struct {
	Title string   `json:"faq_title"`
	Score string   `json:"overall_score"`
	Tags  []string `json:"tags"`
}

// PageResponse replays one page of a stored ranking. Content comes verbatim
// from the persisted record; nothing is re-scored.
type PageResponse struct {
	TopResponses      []TopResponse `json:"top_responses"`
	FeedbackSecretKey string        `json:"feedback_secret_key"`
	InboundSecretKey  string        `json:"inbound_secret_key"`
	InboundID         string        `json:"inbound_id"`
	NextPageURL       string        `json:"next_page_url,omitempty"`
	PrevPageURL       string        `json:"prev_page_url,omitempty"`
}

// CheckNewTagsRequest probes what a proposed tag set would match against.
type CheckNewTagsRequest struct {
	TagsToCheck    []string `json:"tags_to_check"`
	QueriesToCheck []string `json:"queries_to_check"`
}

// CheckNewTagsResponse lists, per query, the top matches among existing
// items plus the candidate.
type CheckNewTagsResponse struct {
	TopMatchesForEachQuery [][]CandidateMatch `json:"top_matches_for_each_query"`
}

// ExportRequest selects which inbound history to archive.
type ExportRequest struct {
	Since time.Time `json:"since"`
	Limit int       `json:"limit"`
}

// ExportResponse reports where the archive landed.
type ExportResponse struct {
	Exported int    `json:"exported"`
	Location string `json:"location"`
}
