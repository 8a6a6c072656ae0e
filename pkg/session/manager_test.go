package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/domain"
)

func newTestManager(t *testing.T) (*Manager, *memory.Store) {
	t.Helper()
	eng, err := parley.New([]domain.FlowDefinition{{
		Name:     "echo",
		Triggers: []string{"start"},
		Slots:    []domain.SlotSpec{{Name: "word", Prompt: "Say a word."}},
		Steps: []domain.StepDefinition{
			{ID: "ask", Type: domain.StepCollect, Slot: "word"},
			{ID: "reply", Type: domain.StepSay, Prompt: "You said {word}."},
		},
	}})
	require.NoError(t, err)
	store := memory.NewStore()
	return NewManager(eng, store), store
}

func TestHandleTurnCreatesAndPersistsConversation(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	res, err := m.HandleTurn(ctx, "c1", "start")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "Say a word.", res.Pending.Prompt)

	saved, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Turn)

	res, err = m.HandleTurn(ctx, "c1", "banana")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "You said banana.")
}

func TestHandleTurnRequiresConversationID(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.HandleTurn(context.Background(), "", "hi")
	assert.Error(t, err)
}

func TestConcurrentTurnsNeverLoseUpdates(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.HandleTurn(ctx, "c1", "hello there")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, turns, snap.Turn, "every turn's save survived")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	_, err := m.HandleTurn(ctx, "c1", "start")
	require.NoError(t, err)
	require.NoError(t, m.Reset(ctx, "c1"))

	_, err = store.Load(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	ids, err := m.Conversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
