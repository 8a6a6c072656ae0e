package runtime

import (
	"testing"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushFlowPausesPrevious(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")

	_, d, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	_, d, err = m.PushFlow(snap, "check_weather", nil)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	require.Equal(t, 2, snap.Depth())
	assert.Equal(t, domain.FlowPaused, snap.Stack[0].State)
	assert.Equal(t, domain.FlowActive, snap.Stack[1].State)
	assert.Equal(t, "check_weather", snap.Active().Flow)
}

func TestPushFlowDepthLimit(t *testing.T) {
	m := NewManager(WithMaxStackDepth(2))
	snap := domain.NewSnapshot("c1")

	for _, flow := range []string{"a", "b"} {
		_, d, err := m.PushFlow(snap, flow, nil)
		require.NoError(t, err)
		snap = domain.Apply(snap, d)
	}

	_, _, err := m.PushFlow(snap, "c", nil)
	var limit *domain.FlowStackLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.Limit)
}

func TestPopFlowPurgesSlotsAndReactivatesParent(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")

	parentID, d, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	childID, d, err := m.PushFlow(snap, "check_weather", map[string]any{"city": "Lisbon"})
	require.NoError(t, err)
	snap = domain.Apply(snap, d)
	require.Contains(t, snap.Slots, childID)

	popped, d, err := m.PopFlow(snap, domain.FlowCancelled)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	assert.Equal(t, domain.FlowCancelled, popped.State)
	assert.Equal(t, "check_weather", popped.Flow)
	assert.NotContains(t, snap.Slots, childID, "popped instance's slots are purged")
	assert.Equal(t, domain.FlowActive, snap.Active().State)
	assert.Equal(t, parentID, snap.Active().ID)
}

func TestPopFlowEmptyStack(t *testing.T) {
	m := NewManager()
	_, _, err := m.PopFlow(domain.NewSnapshot("c1"), domain.FlowCompleted)
	var serr *domain.FlowStackError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "pop", serr.Op)
}

func TestSlotOperationsWithoutActiveFlow(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")

	assert.True(t, m.SetSlot(snap, "size", "large").IsZero())
	assert.True(t, m.ClearSlot(snap, "size").IsZero())
	_, ok := m.GetSlot(snap, "size")
	assert.False(t, ok)
}

func TestSlotRoundTrip(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")
	_, d, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	snap = domain.Apply(snap, m.SetSlot(snap, "size", "large"))
	v, ok := m.GetSlot(snap, "size")
	require.True(t, ok)
	assert.Equal(t, "large", v)

	snap = domain.Apply(snap, m.ClearSlot(snap, "size"))
	_, ok = m.GetSlot(snap, "size")
	assert.False(t, ok)
}

func TestMoveToAndMarkExecuted(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")
	_, d, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	snap = domain.Apply(snap, d)

	snap = domain.Apply(snap, m.SetCurrent(snap, "ask_size"))
	assert.Equal(t, "ask_size", snap.Active().CurrentStep)
	assert.Equal(t, 0, snap.Active().StepIndex, "entering the graph is not an advance")

	snap = domain.Apply(snap, m.MoveTo(snap, "confirm_order"))
	assert.Equal(t, "confirm_order", snap.Active().CurrentStep)
	assert.Equal(t, 1, snap.Active().StepIndex)

	snap = domain.Apply(snap, m.MarkExecuted(snap, "place_order"))
	assert.True(t, snap.Active().Executed["place_order"])
}

func TestHandleIntentChangeIdempotent(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")

	d, pushed, err := m.HandleIntentChange(snap, "order_pizza", nil)
	require.NoError(t, err)
	require.True(t, pushed)
	snap = domain.Apply(snap, d)

	d, pushed, err = m.HandleIntentChange(snap, "order_pizza", nil)
	require.NoError(t, err)
	assert.False(t, pushed, "starting the active flow again is a no-op")
	assert.True(t, d.IsZero())
}

func TestDeterministicInstanceIDs(t *testing.T) {
	m := NewManager()
	snap := domain.NewSnapshot("c1")

	idA, _, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	idB, _, err := m.PushFlow(snap, "order_pizza", nil)
	require.NoError(t, err)
	assert.Equal(t, idA, idB, "same position yields the same instance ID")

	other := domain.NewSnapshot("c2")
	idC, _, err := m.PushFlow(other, "order_pizza", nil)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idC)
}
