package inboundrepo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// MemoryRepository is an in-memory InboundRepository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]matching.InboundRecord
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		records: make(map[int64]matching.InboundRecord),
	}
}

// Seed inserts a record verbatim, keeping its feedback value as-is. Used by
// tests that need pre-existing (possibly legacy-shaped) rows.
func (r *MemoryRepository) Seed(rec matching.InboundRecord) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = r.nextID
	}
	if rec.ID >= r.nextID {
		r.nextID = rec.ID + 1
	}
	r.records[rec.ID] = rec
	return rec.ID
}

// Insert implements matching.InboundRepository.
func (r *MemoryRepository) Insert(_ context.Context, rec matching.InboundRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = r.nextID
	r.nextID++
	r.records[rec.ID] = rec
	return rec.ID, nil
}

// Get implements matching.InboundRepository.
func (r *MemoryRepository) Get(_ context.Context, id int64) (matching.InboundRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok, nil
}

// AppendFeedback implements matching.InboundRepository. The lock spans the
// read-modify-write so concurrent submissions never lose an entry.
func (r *MemoryRepository) AppendFeedback(_ context.Context, id int64, feedback json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	upgraded, err := matching.AppendFeedbackEntry(rec.Feedback, feedback)
	if err != nil {
		return err
	}
	rec.Feedback = upgraded
	r.records[id] = rec
	return nil
}

// ListSince implements matching.InboundRepository.
func (r *MemoryRepository) ListSince(_ context.Context, since time.Time, limit int) ([]matching.InboundRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := make([]matching.InboundRecord, 0, len(r.records))
	for id := int64(1); id < r.nextID && len(recs) < limit; id++ {
		rec, ok := r.records[id]
		if !ok || rec.ReceivedUTC.Before(since) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Ping implements matching.InboundRepository.
func (r *MemoryRepository) Ping(_ context.Context) error { return nil }

var _ matching.InboundRepository = (*MemoryRepository)(nil)
