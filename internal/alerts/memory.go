package alerts

import (
	"context"
	"sync"
)

// MemoryStore keeps the collections in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]Entry)}
}

func (s *MemoryStore) Replace(_ context.Context, identity string, list []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[identity] = append([]Entry(nil), list...)
	return nil
}

func (s *MemoryStore) Prepend(_ context.Context, identity string, entry Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.lists[identity]
	if entry.ID != "" {
		for _, e := range current {
			if e.ID == entry.ID {
				return false, nil
			}
		}
	}
	next := make([]Entry, 0, len(current)+1)
	next = append(next, entry)
	s.lists[identity] = append(next, current...)
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, identity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.lists[identity]
	next := make([]Entry, 0, len(current))
	for _, e := range current {
		if e.ID.String() != id {
			next = append(next, e)
		}
	}
	s.lists[identity] = next
	return nil
}

func (s *MemoryStore) List(_ context.Context, identity string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.lists[identity]...), nil
}
