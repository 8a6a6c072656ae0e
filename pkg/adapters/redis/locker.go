package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/pkg/ports"
)

const lockPrefix = "parley:lock:"

// Lua script: delete the lock only if this holder still owns it, so an
// expired-and-retaken lock is never released by the old holder.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements ports.DistributedLocker with SET NX and a fencing token.
type Locker struct {
	client redis.UniversalClient
}

// NewLocker wraps an existing Redis client.
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Lock acquires the per-conversation lock or fails immediately when another
// holder has it. The TTL bounds how long a crashed holder can block.
func (l *Locker) Lock(ctx context.Context, conversationID string, ttl time.Duration) (ports.UnlockFunc, error) {
	key := lockPrefix + conversationID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for %q: %w", conversationID, err)
	}
	if !ok {
		return nil, fmt.Errorf("conversation %q is locked by another turn", conversationID)
	}

	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
