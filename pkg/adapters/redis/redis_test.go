package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewStore(client)

	snap := domain.NewSnapshot("c1")
	snap.Turn = 5
	snap.Stack = []domain.FlowInstance{{ID: "f1", Flow: "order_pizza", State: domain.FlowActive}}
	snap.Slots = map[string]map[string]any{"f1": {"size": "large"}}
	require.NoError(t, store.Save(ctx, "c1", snap))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Turn)
	assert.Equal(t, "order_pizza", loaded.Active().Flow)
	assert.Equal(t, "large", loaded.Slots["f1"]["size"])
}

func TestStoreLoadMissing(t *testing.T) {
	_, client := newTestClient(t)
	_, err := NewStore(client).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestStoreTTLExpiresConversations(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)
	store := NewStore(client, WithTTL(time.Minute))

	require.NoError(t, store.Save(ctx, "c1", domain.NewSnapshot("c1")))
	srv.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewStore(client)

	require.NoError(t, store.Save(ctx, "a", domain.NewSnapshot("a")))
	require.NoError(t, store.Save(ctx, "b", domain.NewSnapshot("b")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	locker := NewLocker(client)

	unlock, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "c1", time.Minute)
	assert.Error(t, err, "second holder is refused")

	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLockerExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)
	locker := NewLocker(client)

	unlockOld, err := locker.Lock(ctx, "c1", time.Second)
	require.NoError(t, err)
	srv.FastForward(2 * time.Second)

	unlockNew, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err, "expired lock can be retaken")

	require.NoError(t, unlockOld(ctx), "stale unlock is a no-op")
	_, err = locker.Lock(ctx, "c1", time.Minute)
	assert.Error(t, err, "new holder still owns the lock")
	require.NoError(t, unlockNew(ctx))
}
