package runtime

import (
	"context"
	"log/slog"

	"github.com/parleyhq/parley/pkg/domain"
)

// Env is the dependency bundle handlers run against.
type Env struct {
	Manager *Manager
	Catalog *Catalog
	Hooks   domain.LifecycleHooks
	Logger  *slog.Logger
}

// Handler applies one instruction to a snapshot, returning a delta and any
// user-facing messages. Handlers convert expected domain failures (empty
// stack, depth limit) into messages; only genuine faults surface as errors.
type Handler interface {
	Handle(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	return f(ctx, instr, snap, env)
}

// TurnRecord summarizes what a turn's instructions did, for the confirmation
// controller. Affirmations and denials are recorded here rather than written
// into state, so they only take effect when a confirmation is actually
// pending.
type TurnRecord struct {
	Affirmed  bool
	Denied    bool
	SlotEdits []string
	Started   []string
	Cancelled bool
}

// Dispatcher routes instructions to registered handlers in order, folding
// each returned delta into a working copy of the snapshot so later
// instructions observe earlier effects.
type Dispatcher struct {
	env      *Env
	handlers map[domain.InstructionKind]Handler
}

// NewDispatcher creates a dispatcher with all built-in handlers registered.
func NewDispatcher(env *Env) *Dispatcher {
	d := &Dispatcher{env: env, handlers: make(map[domain.InstructionKind]Handler)}
	d.Register(domain.KindStartFlow, HandlerFunc(handleStartFlow))
	d.Register(domain.KindSetSlot, HandlerFunc(handleSetSlot))
	d.Register(domain.KindCorrectSlot, HandlerFunc(handleCorrectSlot))
	d.Register(domain.KindClearSlot, HandlerFunc(handleClearSlot))
	d.Register(domain.KindCancelFlow, HandlerFunc(handleCancelFlow))
	d.Register(domain.KindCompleteFlow, HandlerFunc(handleCompleteFlow))
	d.Register(domain.KindAffirmConfirmation, HandlerFunc(handleNoPayload))
	d.Register(domain.KindDenyConfirmation, HandlerFunc(handleNoPayload))
	d.Register(domain.KindRequestClarification, HandlerFunc(handleClarification))
	d.Register(domain.KindHumanHandoff, HandlerFunc(handleHandoff))
	d.Register(domain.KindChitChat, HandlerFunc(handleChitChat))
	return d
}

// Register installs or replaces the handler for a kind. Hosts can extend the
// dispatch table with custom instruction kinds.
func (d *Dispatcher) Register(kind domain.InstructionKind, h Handler) {
	d.handlers[kind] = h
}

// Dispatch applies every instruction in order. Unknown kinds are skipped with
// a log line; they never fail the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, snap *domain.Snapshot, instrs []domain.Instruction) (*domain.Snapshot, []string, *TurnRecord, error) {
	rec := &TurnRecord{}
	var messages []string

	for _, instr := range instrs {
		h, ok := d.handlers[instr.Kind]
		if !ok {
			d.env.Logger.Debug("skipping unknown instruction kind", "kind", instr.Kind)
			continue
		}

		delta, msgs, err := h.Handle(ctx, instr, snap, d.env)
		if err != nil {
			return nil, nil, nil, err
		}
		if !delta.IsZero() {
			snap = domain.Apply(snap, delta)
		}
		messages = append(messages, msgs...)

		switch instr.Kind {
		case domain.KindAffirmConfirmation:
			rec.Affirmed = true
		case domain.KindDenyConfirmation:
			rec.Denied = true
		case domain.KindCancelFlow:
			rec.Cancelled = true
		case domain.KindStartFlow:
			rec.Started = append(rec.Started, instr.Flow)
		}
		if instr.IsSlotEdit() && instr.Slot != "" {
			rec.SlotEdits = append(rec.SlotEdits, instr.Slot)
		}
	}
	return snap, messages, rec, nil
}
