package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"adforge/internal/campaign"
)

var (
	ErrBusy     = errors.New("a generation is already running for this session")
	ErrNotFound = errors.New("ad not found")
)

// Store keeps per-session history, the current ad pointer and the busy
// guard that serializes generation cycles.
type Store interface {
	Push(ctx context.Context, sessionID string, ad campaign.Ad) error
	History(ctx context.Context, sessionID string) ([]campaign.Ad, error)
	Find(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Current(ctx context.Context, sessionID string) (campaign.Ad, error)
	Select(ctx context.Context, sessionID, id string) (campaign.Ad, error)
	Clear(ctx context.Context, sessionID string) error
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

type Session struct {
	ID           string
	History      *History
	CurrentID    string
	Busy         bool
	LastActivity time.Time
}

type Options struct {
	MaxHistory int
}

type MemoryStore struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	maxHistory int
}

func NewMemoryStore(opts Options) *MemoryStore {
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryLimit
	}

	return &MemoryStore{
		sessions:   make(map[string]*Session),
		maxHistory: maxHistory,
	}
}

func (s *MemoryStore) Push(_ context.Context, sessionID string, ad campaign.Ad) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(sessionID)
	sess.LastActivity = time.Now()
	sess.History.Push(ad)
	sess.CurrentID = ad.ID
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]campaign.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(sessionID)
	sess.LastActivity = time.Now()
	return sess.History.All(), nil
}

func (s *MemoryStore) Find(_ context.Context, sessionID, id string) (campaign.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return campaign.Ad{}, ErrNotFound
	}
	ad, ok := sess.History.Find(id)
	if !ok {
		return campaign.Ad{}, ErrNotFound
	}
	return ad, nil
}

func (s *MemoryStore) Current(_ context.Context, sessionID string) (campaign.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.CurrentID == "" {
		return campaign.Ad{}, ErrNotFound
	}
	ad, ok := sess.History.Find(sess.CurrentID)
	if !ok {
		return campaign.Ad{}, ErrNotFound
	}
	return ad, nil
}

// Select moves the current pointer to a history entry. History order and
// contents are untouched.
func (s *MemoryStore) Select(_ context.Context, sessionID, id string) (campaign.Ad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return campaign.Ad{}, ErrNotFound
	}
	ad, ok := sess.History.Find(id)
	if !ok {
		return campaign.Ad{}, ErrNotFound
	}
	sess.CurrentID = ad.ID
	sess.LastActivity = time.Now()
	return ad, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		sess.History.Reset()
		sess.CurrentID = ""
		sess.LastActivity = time.Now()
	}
	return nil
}

func (s *MemoryStore) Acquire(_ context.Context, sessionID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(sessionID)
	if sess.Busy {
		return nil, ErrBusy
	}
	sess.Busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			sess.Busy = false
			s.mu.Unlock()
		})
	}, nil
}

// Prune drops sessions idle for longer than ttl and returns how many were
// removed. Busy sessions are kept.
func (s *MemoryStore) Prune(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, sess := range s.sessions {
		if !sess.Busy && sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) getOrCreateLocked(sessionID string) *Session {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}

	sess := &Session{
		ID:           sessionID,
		History:      NewHistory(s.maxHistory),
		LastActivity: time.Now(),
	}
	s.sessions[sessionID] = sess
	return sess
}
