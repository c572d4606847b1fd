package handlers

import (
	"sync"
	"time"

	"adforge/internal/campaign"
	"adforge/internal/platform"
)

type draft struct {
	brief     campaign.Brief
	updatedAt time.Time
}

// DraftStore keeps the brief each chat is editing between commands.
type DraftStore struct {
	mu sync.Mutex
	m  map[int64]*draft
}

func NewDraftStore() *DraftStore {
	return &DraftStore{m: make(map[int64]*draft)}
}

func (s *DraftStore) Get(chatID int64) campaign.Brief {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(chatID).brief
}

func (s *DraftStore) Update(chatID int64, fn func(*campaign.Brief)) campaign.Brief {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.getOrCreateLocked(chatID)
	if fn != nil {
		fn(&d.brief)
	}
	d.updatedAt = time.Now()
	return d.brief
}

func (s *DraftStore) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, chatID)
}

// Prune drops drafts untouched for longer than ttl and returns how many
// were removed.
func (s *DraftStore) Prune(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, d := range s.m {
		if d.updatedAt.Before(cutoff) {
			delete(s.m, id)
			removed++
		}
	}
	return removed
}

func (s *DraftStore) getOrCreateLocked(chatID int64) *draft {
	if d, ok := s.m[chatID]; ok {
		return d
	}
	d := &draft{brief: campaign.Brief{Variant: platform.VariantBrand}, updatedAt: time.Now()}
	s.m[chatID] = d
	return d
}
