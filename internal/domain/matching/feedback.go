package matching

import (
	"bytes"
	"encoding/json"
)

// AppendFeedbackEntry appends one feedback entry to the stored feedback
// value and returns the new value. Historically feedback was stored as a
// single object rather than a list; that legacy form is upgraded to a
// one-element list before appending so no historical entry is lost.
func AppendFeedbackEntry(stored, entry json.RawMessage) (json.RawMessage, error) {
	entries, err := decodeFeedbackList(stored)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	return json.Marshal(entries)
}

// FeedbackEntries returns the stored feedback as a list, tolerating the
// legacy single-object form.
func FeedbackEntries(stored json.RawMessage) ([]json.RawMessage, error) {
	return decodeFeedbackList(stored)
}

func decodeFeedbackList(stored json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(stored)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	// Legacy singular form.
	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}
