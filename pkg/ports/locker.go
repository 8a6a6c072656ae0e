package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a previously acquired lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes turn processing for one conversation across
// processes. In-process serialization is handled by the session manager; a
// locker is only needed when several hosts share a store.
type DistributedLocker interface {
	// Lock acquires the lock for a conversation, or fails if it is held.
	// The TTL bounds how long a crashed holder can block others.
	Lock(ctx context.Context, conversationID string, ttl time.Duration) (UnlockFunc, error)
}
