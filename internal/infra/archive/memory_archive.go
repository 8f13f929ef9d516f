package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// MemoryArchive keeps exported objects in memory for tests and local runs.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte)}
}

func (a *MemoryArchive) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	a.objects[key] = cp
	return fmt.Sprintf("memory/%s", key), nil
}

// Get returns a stored object, for test assertions.
func (a *MemoryArchive) Get(key string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[key]
	return data, ok
}

// Len reports how many objects have been stored.
func (a *MemoryArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}

var _ matching.Archive = (*MemoryArchive)(nil)
