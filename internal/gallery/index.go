package gallery

import (
	"context"
	"sort"
	"sync"
)

// Index records saved items and lists them newest first.
type Index interface {
	Insert(ctx context.Context, rec Record) error
	Recent(ctx context.Context, userID string, limit int) ([]Record, error)
}

type MemoryIndex struct {
	mu     sync.Mutex
	byUser map[string][]Record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{byUser: make(map[string][]Record)}
}

func (m *MemoryIndex) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], rec)
	return nil
}

func (m *MemoryIndex) Recent(_ context.Context, userID string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.byUser[userID]
	out := make([]Record, len(recs))
	copy(out, recs)
	return newestFirst(out, limit), nil
}

// newestFirst sorts by creation time descending, keeping insertion order
// reversed for equal timestamps, and truncates to limit.
func newestFirst(recs []Record, limit int) []Record {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
