package parley

import (
	"context"
	"testing"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingFlow() domain.FlowDefinition {
	return domain.FlowDefinition{
		Name:     "book_table",
		Triggers: []string{"book a table"},
		Slots: []domain.SlotSpec{
			{Name: "guests", Prompt: "For how many guests?"},
			{Name: "time", Prompt: "What time?"},
		},
		Steps: []domain.StepDefinition{
			{ID: "ask_guests", Type: domain.StepCollect, Slot: "guests"},
			{ID: "ask_time", Type: domain.StepCollect, Slot: "time"},
			{ID: "confirm_booking", Type: domain.StepConfirm, Slot: "booking_ok",
				Prompt: "A table for {guests} at {time}, shall I book it?"},
			{ID: "book", Type: domain.StepAction, Action: "tables.book",
				Outputs: map[string]string{"ref": "booking_ref"}},
			{ID: "done", Type: domain.StepSay, Prompt: "Booked! Your reference is {booking_ref}."},
		},
	}
}

func TestEngineEndToEndWithKeywordUnderstander(t *testing.T) {
	reg := ports.NewActionRegistry()
	reg.Register("tables.book", func(_ context.Context, inputs map[string]any) (map[string]any, error) {
		assert.Equal(t, 2, inputs["guests"])
		return map[string]any{"ref": "R-42"}, nil
	})

	eng, err := New([]domain.FlowDefinition{bookingFlow()}, WithActionExecutor(reg))
	require.NoError(t, err)

	ctx := context.Background()
	snap := eng.NewConversation("c1")

	res, err := eng.ProcessTurn(ctx, snap, "please book a table")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "For how many guests?", res.Pending.Prompt)

	res, err = eng.ProcessTurn(ctx, res.Snapshot, "2")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "What time?", res.Pending.Prompt)

	res, err = eng.ProcessTurn(ctx, res.Snapshot, "7pm")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "A table for 2 at 7pm, shall I book it?", res.Pending.Prompt)

	res, err = eng.ProcessTurn(ctx, res.Snapshot, "yes")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Your reference is R-42.")
	assert.Nil(t, res.Pending)
	assert.Equal(t, 0, res.Snapshot.Depth())
}

func TestNewRejectsInvalidFlow(t *testing.T) {
	broken := domain.FlowDefinition{
		Name: "broken",
		Steps: []domain.StepDefinition{
			{ID: "a", Type: domain.StepSay, Prompt: "x", Next: "missing"},
		},
	}
	_, err := New([]domain.FlowDefinition{broken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCompileFlowSummarizesGraph(t *testing.T) {
	info, err := CompileFlow(bookingFlow())
	require.NoError(t, err)
	assert.Equal(t, "book_table", info.Flow)
	assert.Equal(t, "ask_guests", info.Entry)
	assert.Len(t, info.Nodes, 5)
}
