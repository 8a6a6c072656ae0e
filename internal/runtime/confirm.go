package runtime

import (
	"github.com/parleyhq/parley/internal/compiler"
	"github.com/parleyhq/parley/pkg/domain"
)

// ConfirmState labels where a pending confirmation landed after a turn.
type ConfirmState string

const (
	ConfirmAwaiting  ConfirmState = "awaiting_response"
	ConfirmAffirmed  ConfirmState = "affirmed"
	ConfirmDenied    ConfirmState = "denied"
	ConfirmModified  ConfirmState = "modified"
	ConfirmUnclear   ConfirmState = "unclear"
	ConfirmExhausted ConfirmState = "exhausted"
)

// DefaultMaxConfirmRetries is how many unrecognized answers a confirmation
// tolerates before the flow is abandoned.
const DefaultMaxConfirmRetries = 3

// Retry counters live in the flow's own slot entry under a reserved name, so
// they are purged together with the flow and never outlive it.
const confirmRetryPrefix = "__confirm_retries:"

// ConfirmationController resolves a turn against a pending confirmation step.
// It only runs when the turn began suspended on a Confirm node; first arrival
// at a Confirm is plain graph driving.
type ConfirmationController struct {
	manager *Manager
	max     int
	hooks   domain.LifecycleHooks
}

// NewConfirmationController creates a controller with the given retry budget;
// values below one fall back to the default.
func NewConfirmationController(manager *Manager, maxRetries int, hooks domain.LifecycleHooks) *ConfirmationController {
	if maxRetries < 1 {
		maxRetries = DefaultMaxConfirmRetries
	}
	return &ConfirmationController{manager: manager, max: maxRetries, hooks: hooks}
}

// confirmOutcome is what a resolution produced. When pending is non-nil the
// turn suspends on that prompt; when resolved is true the engine keeps
// driving the graph (past the confirm, from a deny target, or into a resumed
// parent after exhaustion).
type confirmOutcome struct {
	state    ConfirmState
	snap     *domain.Snapshot
	messages []string
	pending  *domain.PendingPrompt
	resolved bool
}

// Resolve interprets the turn record against the confirm node the
// conversation is suspended on.
func (c *ConfirmationController) Resolve(snap *domain.Snapshot, cf *CompiledFlow, node *compiler.Node, rec *TurnRecord) confirmOutcome {
	step := node.Step
	active := snap.Active()
	slots := snap.SlotsOf(active.ID)
	counter := confirmRetryPrefix + step.Slot

	// A filled confirmation slot means a replayed turn already resolved it.
	if v, ok := slots[step.Slot]; ok && v != nil {
		return confirmOutcome{state: ConfirmAffirmed, snap: snap, resolved: true}
	}

	switch {
	case rec.Affirmed:
		snap = domain.Apply(snap, c.manager.SetSlot(snap, step.Slot, true))
		snap = domain.Apply(snap, c.manager.ClearSlot(snap, counter))
		return confirmOutcome{state: ConfirmAffirmed, snap: snap, resolved: true}

	case rec.Denied && step.DenyTarget != "":
		snap = domain.Apply(snap, c.manager.SetSlot(snap, step.Slot, false))
		snap = domain.Apply(snap, c.manager.ClearSlot(snap, counter))
		snap = domain.Apply(snap, c.manager.MoveTo(snap, step.DenyTarget))
		return confirmOutcome{state: ConfirmDenied, snap: snap, resolved: true}

	case rec.Denied:
		// No deny route: leave the slot unset and ask what to change. The
		// next turn's slot edits come back through the modified path.
		snap = domain.Apply(snap, c.manager.ClearSlot(snap, counter))
		msg := msgConfirmDenied()
		return confirmOutcome{
			state:    ConfirmDenied,
			snap:     snap,
			messages: []string{msg},
			pending: &domain.PendingPrompt{
				FlowID: active.ID,
				StepID: step.ID,
				Prompt: msg,
				Kind:   domain.PromptText,
			},
		}

	case len(rec.SlotEdits) > 0:
		// Values changed mid-confirmation: restate the question with the
		// corrected values and reset the retry budget.
		snap = domain.Apply(snap, c.manager.ClearSlot(snap, counter))
		prompt := renderTemplate(step.Prompt, snap.SlotsOf(active.ID))
		return confirmOutcome{
			state:    ConfirmModified,
			snap:     snap,
			messages: []string{prompt},
			pending: &domain.PendingPrompt{
				FlowID: active.ID,
				StepID: step.ID,
				Slot:   step.Slot,
				Prompt: prompt,
				Kind:   domain.PromptConfirm,
			},
		}
	}

	// Nothing recognizable. Count a retry, and give up on the flow once the
	// budget is spent.
	retries := asInt(slots[counter]) + 1
	if retries >= c.max {
		c.hooks.EmitConfirmationExhausted(cf.Def.Name)
		popped, d, err := c.manager.PopFlow(snap, domain.FlowCancelled)
		if err == nil {
			d.Pending = &domain.PendingChange{Prompt: nil}
			snap = domain.Apply(snap, d)
			c.hooks.EmitFlowFinished(popped.Flow, domain.FlowCancelled)
		}
		return confirmOutcome{
			state:    ConfirmExhausted,
			snap:     snap,
			messages: []string{msgConfirmExhausted(cf.Def.Name)},
			resolved: true,
		}
	}

	c.hooks.EmitConfirmationRetry(cf.Def.Name, step.Slot)
	snap = domain.Apply(snap, c.manager.SetSlot(snap, counter, retries))
	prompt := msgConfirmRetry(renderTemplate(step.Prompt, snap.SlotsOf(active.ID)))
	return confirmOutcome{
		state:    ConfirmUnclear,
		snap:     snap,
		messages: []string{prompt},
		pending: &domain.PendingPrompt{
			FlowID: active.ID,
			StepID: step.ID,
			Slot:   step.Slot,
			Prompt: prompt,
			Kind:   domain.PromptConfirm,
		},
	}
}

// asInt coerces a slot value to int; JSON round-trips store numbers as
// float64.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
