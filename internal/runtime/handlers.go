package runtime

import (
	"context"
	"errors"

	"github.com/parleyhq/parley/pkg/domain"
)

// handleStartFlow pushes the named flow onto the stack, pausing whatever was
// active. Hitting the depth limit or naming an unknown flow produces a
// message, not an error; intent changes are user input, not faults.
func handleStartFlow(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	if _, ok := env.Catalog.Get(instr.Flow); !ok {
		env.Logger.Warn("start requested for unknown flow", "flow", instr.Flow)
		return domain.Delta{}, []string{msgUnknownFlow()}, nil
	}

	inputs, _ := instr.Value.(map[string]any)
	d, pushed, err := env.Manager.HandleIntentChange(snap, instr.Flow, inputs)
	if err != nil {
		var limit *domain.FlowStackLimitError
		if errors.As(err, &limit) {
			return domain.Delta{}, []string{msgStackLimit()}, nil
		}
		return domain.Delta{}, nil, err
	}
	if pushed {
		env.Hooks.EmitFlowStarted(instr.Flow)
	}
	return d, nil, nil
}

// handleSetSlot writes a value into the active flow's slot entry silently;
// the graph drive that follows decides what to say next.
func handleSetSlot(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	if instr.Slot == "" {
		return domain.Delta{}, nil, nil
	}
	return env.Manager.SetSlot(snap, instr.Slot, instr.Value), nil, nil
}

// handleCorrectSlot overwrites a previously collected value and acknowledges
// the correction out loud.
func handleCorrectSlot(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	if instr.Slot == "" {
		return domain.Delta{}, nil, nil
	}
	d := env.Manager.SetSlot(snap, instr.Slot, instr.Value)
	if d.IsZero() {
		return d, []string{msgNothingActive()}, nil
	}
	return d, []string{msgCorrected(instr.Slot, instr.Value)}, nil
}

func handleClearSlot(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	if instr.Slot == "" {
		return domain.Delta{}, nil, nil
	}
	d := env.Manager.ClearSlot(snap, instr.Slot)
	if d.IsZero() {
		return d, nil, nil
	}
	return d, []string{msgCleared(instr.Slot)}, nil
}

// handleCancelFlow pops the active flow as cancelled and announces which flow
// resumes, if any. The engine's drive phase re-derives the parent's pending
// prompt afterwards.
func handleCancelFlow(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	popped, d, err := env.Manager.PopFlow(snap, domain.FlowCancelled)
	if err != nil {
		var serr *domain.FlowStackError
		if errors.As(err, &serr) {
			return domain.Delta{}, []string{msgNothingActive()}, nil
		}
		return domain.Delta{}, nil, err
	}

	// The popped flow's question is void.
	d.Pending = &domain.PendingChange{Prompt: nil}
	env.Hooks.EmitFlowFinished(popped.Flow, domain.FlowCancelled)

	msgs := []string{msgCancelled(popped.Flow)}
	if snap.Depth() > 1 {
		parent := snap.Stack[snap.Depth()-2]
		msgs = append(msgs, msgResumed(parent.Flow))
	}
	return d, msgs, nil
}

// handleCompleteFlow pops the active flow as completed, for flows the
// understanding layer decides are done early.
func handleCompleteFlow(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	popped, d, err := env.Manager.PopFlow(snap, domain.FlowCompleted)
	if err != nil {
		var serr *domain.FlowStackError
		if errors.As(err, &serr) {
			return domain.Delta{}, []string{msgNothingActive()}, nil
		}
		return domain.Delta{}, nil, err
	}
	d.Pending = &domain.PendingChange{Prompt: nil}
	env.Hooks.EmitFlowFinished(popped.Flow, domain.FlowCompleted)
	return d, nil, nil
}

// handleNoPayload covers affirm and deny: the dispatcher records them in the
// turn record and the confirmation controller interprets them. Outside a
// pending confirmation they mean nothing, so the handler is a no-op.
func handleNoPayload(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	return domain.Delta{}, nil, nil
}

// handleClarification re-emits the pending question together with the slot's
// declared description, when one exists.
func handleClarification(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	pending := snap.Pending
	active := snap.Active()
	if pending == nil || active == nil {
		return domain.Delta{}, []string{msgNoClarification()}, nil
	}

	var msgs []string
	if cf, ok := env.Catalog.Get(active.Flow); ok && pending.Slot != "" {
		if spec, ok := cf.Def.SlotSpecFor(pending.Slot); ok && spec.Description != "" {
			msgs = append(msgs, spec.Description)
		}
	}
	msgs = append(msgs, pending.Prompt)
	return domain.Delta{}, msgs, nil
}

// handleHandoff flags the conversation for a human. The host owns what
// happens after; the engine just stops driving flows.
func handleHandoff(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	env.Hooks.EmitHandoff(snap.ConversationID)
	return domain.Delta{Handoff: true}, []string{msgHandoff()}, nil
}

func handleChitChat(ctx context.Context, instr domain.Instruction, snap *domain.Snapshot, env *Env) (domain.Delta, []string, error) {
	return domain.Delta{}, []string{msgChitChat()}, nil
}
