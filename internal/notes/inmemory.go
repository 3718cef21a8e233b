package notes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps notes for the life of the process.
type InMemoryStore struct {
	mu    sync.RWMutex
	notes []Note
	now   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

func (s *InMemoryStore) Add(_ context.Context, items []string, source string) ([]Note, error) {
	items = cleanItems(items)
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]Note, 0, len(items))
	at := s.now().UTC()
	for _, it := range items {
		n := Note{ID: uuid.NewString(), Text: it, Source: source, CreatedAt: at}
		s.notes = append(s.notes, n)
		created = append(created, n)
	}
	return created, nil
}

func (s *InMemoryStore) List(_ context.Context, limit int) ([]Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.notes) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(s.notes) {
		limit = len(s.notes)
	}
	out := make([]Note, limit)
	copy(out, s.notes[len(s.notes)-limit:])
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
