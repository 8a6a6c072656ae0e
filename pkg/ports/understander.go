package ports

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
)

// TurnContext is the metadata the engine hands to the understanding provider
// so it can resolve user text against the current conversation position.
type TurnContext struct {
	ConversationID string

	// ActiveFlow is the name of the flow on top of the stack, if any.
	ActiveFlow string

	// ExpectedSlot names the slot the pending prompt is waiting for, if any.
	ExpectedSlot string

	// PendingKind distinguishes a text question from a yes/no confirmation.
	PendingKind domain.PromptKind

	// SlotDefs lists the active flow's declared slots.
	SlotDefs []domain.SlotSpec

	// Turn is the conversation's turn counter.
	Turn int
}

// Understander turns raw user text into structured instructions. It is
// treated as opaque: the engine never inspects how instructions were
// produced, only applies them in order.
type Understander interface {
	Understand(ctx context.Context, text string, tc TurnContext) ([]domain.Instruction, float64, error)
}
