package draft

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps drafts for the lifetime of the process. One-shot CLI
// invocations and tests use it instead of touching disk.
type InMemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{drafts: make(map[string]*Draft)}
}

func (s *InMemoryStore) Save(_ context.Context, draft *Draft) error {
	if draft.ID == "" {
		return ErrEmptyID
	}

	now := time.Now().UTC()
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.CreatedAt.IsZero() {
		if existing, ok := s.drafts[draft.ID]; ok {
			draft.CreatedAt = existing.CreatedAt
		} else {
			draft.CreatedAt = now
		}
	}
	s.drafts[draft.ID] = draft
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Draft, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return draft, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.drafts))
	for _, draft := range s.drafts {
		summaries = append(summaries, Summary{
			ID:        draft.ID,
			Excerpt:   excerpt(draft.Content),
			UpdatedAt: draft.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[id]; !ok {
		return ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
