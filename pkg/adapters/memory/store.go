// Package memory provides an in-process snapshot store, suitable for tests
// and single-instance hosts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/parleyhq/parley/pkg/domain"
)

// Store keeps snapshots in a mutex-guarded map. Snapshots are cloned on both
// Save and Load so callers never share mutable state with the store.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]*domain.Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{snaps: make(map[string]*domain.Snapshot)}
}

// Save persists a copy of the snapshot.
func (s *Store) Save(_ context.Context, conversationID string, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[conversationID] = snap.Clone()
	return nil
}

// Load returns a copy of the stored snapshot, or
// domain.ErrConversationNotFound.
func (s *Store) Load(_ context.Context, conversationID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return snap.Clone(), nil
}

// Delete removes a conversation's snapshot. Deleting an absent one is fine.
func (s *Store) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, conversationID)
	return nil
}

// List returns all conversation IDs, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
