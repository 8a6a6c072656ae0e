package ports

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
)

// SnapshotStore persists conversation snapshots keyed by conversation ID.
// The engine itself never touches a store; the host loads a snapshot, runs a
// turn, and saves the result.
type SnapshotStore interface {
	// Save persists the snapshot for a conversation.
	Save(ctx context.Context, conversationID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a conversation. Returns
	// domain.ErrConversationNotFound if none exists.
	Load(ctx context.Context, conversationID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a conversation.
	Delete(ctx context.Context, conversationID string) error

	// List returns the IDs of all stored conversations.
	List(ctx context.Context) ([]string, error)
}
