// Package redis persists snapshots and conversation locks in Redis, for
// hosts that run more than one engine instance against the same traffic.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/pkg/domain"
)

const keyPrefix = "parley:conversation:"

// Store is a SnapshotStore over a Redis client. Snapshots are stored as JSON
// under parley:conversation:<id>.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL expires idle conversations after the given duration. Zero (the
// default) keeps them forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// NewStore wraps an existing Redis client.
func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save marshals and stores the snapshot, refreshing the TTL if one is set.
func (s *Store) Save(ctx context.Context, conversationID string, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+conversationID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Load fetches and unmarshals the snapshot, or reports
// domain.ErrConversationNotFound.
func (s *Store) Load(ctx context.Context, conversationID string) (*domain.Snapshot, error) {
	payload, err := s.client.Get(ctx, keyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, keyPrefix+conversationID).Err()
}

// List scans for all conversation keys and returns the IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return ids, nil
}
