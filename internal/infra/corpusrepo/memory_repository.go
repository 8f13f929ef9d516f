package corpusrepo

import (
	"context"
	"sync"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// MemoryRepository is an in-memory CorpusRepository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	items   map[int64]matching.CorpusItem
	context *matching.LanguageContext
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		items:  make(map[int64]matching.CorpusItem),
	}
}

// AddItem seeds one corpus item, assigning an id if absent.
func (r *MemoryRepository) AddItem(item matching.CorpusItem) matching.CorpusItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		item.ID = r.nextID
		r.nextID++
	} else if item.ID >= r.nextID {
		r.nextID = item.ID + 1
	}
	// Match the database default for rows without an explicit weight.
	if item.Weight == 0 {
		item.Weight = 1
	}
	r.items[item.ID] = item
	return item
}

// RemoveItem deletes one item.
func (r *MemoryRepository) RemoveItem(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// SetLanguageContext seeds the active contextualization record.
func (r *MemoryRepository) SetLanguageContext(lc *matching.LanguageContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context = lc
}

// ListItems implements matching.CorpusRepository.
func (r *MemoryRepository) ListItems(_ context.Context) ([]matching.CorpusItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]matching.CorpusItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	return items, nil
}

// ActiveLanguageContext implements matching.CorpusRepository.
func (r *MemoryRepository) ActiveLanguageContext(_ context.Context) (*matching.LanguageContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.context, nil
}

var _ matching.CorpusRepository = (*MemoryRepository)(nil)
