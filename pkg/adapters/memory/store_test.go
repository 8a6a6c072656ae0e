package memory

import (
	"context"
	"testing"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	snap := domain.NewSnapshot("c1")
	snap.Turn = 3
	require.NoError(t, store.Save(ctx, "c1", snap))

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Turn)

	// Mutating the loaded copy must not leak back into the store.
	loaded.Turn = 99
	again, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Turn)
}

func TestStoreLoadMissing(t *testing.T) {
	_, err := NewStore().Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Save(ctx, "b", domain.NewSnapshot("b")))
	require.NoError(t, store.Save(ctx, "a", domain.NewSnapshot("a")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"), "double delete is fine")
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}
