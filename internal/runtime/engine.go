package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/internal/compiler"
	"github.com/parleyhq/parley/internal/eval"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

// DefaultMaxStepsPerTurn bounds how many graph nodes a single turn may
// execute before the engine abandons the flow as runaway.
const DefaultMaxStepsPerTurn = 64

// EngineConfig wires an Engine's collaborators. Catalog and Understander are
// required; everything else has a usable zero value.
type EngineConfig struct {
	Catalog           *Catalog
	Manager           *Manager
	Understander      ports.Understander
	Executor          ports.ActionExecutor
	Hooks             domain.LifecycleHooks
	Logger            *slog.Logger
	MaxConfirmRetries int
	MaxStepsPerTurn   int
}

// Engine runs the turn loop: understand, dispatch, resolve confirmations,
// drive the active flow's graph, suspend on the next question. It holds no
// conversation state; everything lives in the snapshot it is handed.
type Engine struct {
	catalog      *Catalog
	manager      *Manager
	dispatcher   *Dispatcher
	confirm      *ConfirmationController
	understander ports.Understander
	executor     ports.ActionExecutor
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	maxSteps     int
}

// NewEngine assembles an engine from its config.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Manager == nil {
		cfg.Manager = NewManager()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxStepsPerTurn < 1 {
		cfg.MaxStepsPerTurn = DefaultMaxStepsPerTurn
	}

	env := &Env{
		Manager: cfg.Manager,
		Catalog: cfg.Catalog,
		Hooks:   cfg.Hooks,
		Logger:  cfg.Logger,
	}
	return &Engine{
		catalog:      cfg.Catalog,
		manager:      cfg.Manager,
		dispatcher:   NewDispatcher(env),
		confirm:      NewConfirmationController(cfg.Manager, cfg.MaxConfirmRetries, cfg.Hooks),
		understander: cfg.Understander,
		executor:     cfg.Executor,
		hooks:        cfg.Hooks,
		logger:       cfg.Logger,
		maxSteps:     cfg.MaxStepsPerTurn,
	}
}

// Dispatcher exposes the instruction table so hosts can register custom
// kinds.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// TurnResult is what one processed turn produced. Response joins the turn's
// messages; when Pending is set the engine is suspended on that question and
// the host should surface Pending.Prompt after Response.
type TurnResult struct {
	Response string
	Messages []string
	Pending  *domain.PendingPrompt
	Snapshot *domain.Snapshot
}

// ProcessTurn runs one full turn against a snapshot and returns the updated
// snapshot inside the result. The input snapshot is never mutated, so a
// failed turn can be retried against it safely.
func (e *Engine) ProcessTurn(ctx context.Context, snap *domain.Snapshot, text string) (*TurnResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("process turn: nil snapshot")
	}
	snap = snap.Clone()

	instrs, confidence, err := e.understander.Understand(ctx, text, e.turnContext(snap))
	if err != nil {
		return nil, fmt.Errorf("understanding turn: %w", err)
	}
	e.logger.Debug("turn understood",
		"conversation", snap.ConversationID,
		"instructions", len(instrs),
		"confidence", confidence)

	// Remember where we were suspended, so a pending confirmation can be
	// resolved against what this turn's instructions did.
	preConfirm := e.pendingConfirmOf(snap)

	snap, messages, rec, err := e.dispatcher.Dispatch(ctx, snap, instrs)
	if err != nil {
		return nil, fmt.Errorf("dispatching instructions: %w", err)
	}

	if snap.HandedOff {
		snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: nil}})
		return e.finalize(snap, messages, nil), nil
	}

	if preConfirm != nil && preConfirm.stillCurrent(snap) {
		outcome := e.confirm.Resolve(snap, preConfirm.flow, preConfirm.node, rec)
		snap = outcome.snap
		messages = append(messages, outcome.messages...)
		if outcome.pending != nil {
			snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: outcome.pending}})
			return e.finalize(snap, messages, outcome.pending), nil
		}
	}

	snap, driveMsgs, pending, err := e.drive(ctx, snap)
	if err != nil {
		return nil, err
	}
	messages = append(messages, driveMsgs...)
	return e.finalize(snap, messages, pending), nil
}

// pendingConfirm captures the confirm node a conversation was suspended on
// before this turn's instructions ran.
type pendingConfirm struct {
	instanceID string
	stepID     string
	flow       *CompiledFlow
	node       *compiler.Node
}

// stillCurrent reports whether the same instance is still active at the same
// step. A digression or cancel mid-turn moves the conversation elsewhere, and
// the confirmation simply waits.
func (p *pendingConfirm) stillCurrent(snap *domain.Snapshot) bool {
	active := snap.Active()
	return active != nil && active.ID == p.instanceID && active.CurrentStep == p.stepID
}

func (e *Engine) pendingConfirmOf(snap *domain.Snapshot) *pendingConfirm {
	active := snap.Active()
	if active == nil || active.CurrentStep == "" {
		return nil
	}
	cf, ok := e.catalog.Get(active.Flow)
	if !ok {
		return nil
	}
	node := cf.Graph.Node(active.CurrentStep)
	if node == nil || node.Step.Type != domain.StepConfirm {
		return nil
	}
	return &pendingConfirm{
		instanceID: active.ID,
		stepID:     active.CurrentStep,
		flow:       cf,
		node:       node,
	}
}

// drive executes graph nodes until the conversation suspends on a question,
// the stack empties, or the step budget runs out.
func (e *Engine) drive(ctx context.Context, snap *domain.Snapshot) (*domain.Snapshot, []string, *domain.PendingPrompt, error) {
	var messages []string

	for budget := e.maxSteps; ; budget-- {
		active := snap.Active()
		if active == nil {
			snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: nil}})
			return snap, messages, nil, nil
		}

		cf, ok := e.catalog.Get(active.Flow)
		if !ok {
			return snap, messages, nil, fmt.Errorf("active flow %q is not in the catalog", active.Flow)
		}

		if active.CurrentStep == "" {
			snap = domain.Apply(snap, e.manager.SetCurrent(snap, cf.Graph.Entry))
			active = snap.Active()
		}
		node := cf.Graph.Node(active.CurrentStep)
		if node == nil {
			return snap, messages, nil, fmt.Errorf("flow %q has no step %q", active.Flow, active.CurrentStep)
		}

		if budget <= 0 {
			e.logger.Error("step budget exhausted, abandoning flow",
				"flow", active.Flow, "step", active.CurrentStep)
			snap, messages = e.abandonActive(snap, messages, msgFlowStuck(active.Flow))
			snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: nil}})
			return snap, messages, nil, nil
		}

		slots := snap.SlotsOf(active.ID)

		switch node.Step.Type {
		case domain.StepSay:
			messages = append(messages, renderTemplate(node.Step.Prompt, slots))
			snap, messages = e.advance(snap, node, messages)

		case domain.StepSet:
			set := make(map[string]any, len(node.Step.Assign))
			for k, v := range node.Step.Assign {
				if s, ok := v.(string); ok {
					set[k] = renderTemplate(s, slots)
				} else {
					set[k] = v
				}
			}
			snap = domain.Apply(snap, domain.Delta{
				Slots: map[string]domain.SlotDelta{active.ID: {Set: set}},
			})
			snap, messages = e.advance(snap, node, messages)

		case domain.StepCollect:
			if v, ok := slots[node.Step.Slot]; ok && v != nil {
				snap, messages = e.advance(snap, node, messages)
				continue
			}
			pending := &domain.PendingPrompt{
				FlowID: active.ID,
				StepID: node.Step.ID,
				Slot:   node.Step.Slot,
				Prompt: collectPrompt(cf.Def, node.Step, slots),
				Kind:   domain.PromptText,
			}
			snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: pending}})
			return snap, messages, pending, nil

		case domain.StepConfirm:
			if v, ok := slots[node.Step.Slot]; ok && v != nil {
				snap, messages = e.advance(snap, node, messages)
				continue
			}
			pending := &domain.PendingPrompt{
				FlowID: active.ID,
				StepID: node.Step.ID,
				Slot:   node.Step.Slot,
				Prompt: renderTemplate(node.Step.Prompt, slots),
				Kind:   domain.PromptConfirm,
			}
			snap = domain.Apply(snap, domain.Delta{Pending: &domain.PendingChange{Prompt: pending}})
			return snap, messages, pending, nil

		case domain.StepAction:
			if active.Executed[node.Step.ID] {
				snap, messages = e.advance(snap, node, messages)
				continue
			}
			var err error
			snap, messages, err = e.executeAction(ctx, snap, cf, node, messages)
			if err != nil {
				return snap, messages, nil, err
			}

		case domain.StepBranch:
			target := ""
			value := slots[node.Step.Slot]
			for _, cse := range node.Step.Cases {
				if eval.Matches(value, cse.When) {
					target = cse.Target
					break
				}
			}
			if target == "" {
				target = node.Step.Default
			}
			if target == "" {
				target = node.Next
			}
			if target == "" {
				snap, messages = e.completeActive(snap, messages)
				continue
			}
			snap = domain.Apply(snap, e.manager.MoveTo(snap, target))

		case domain.StepWhile:
			if eval.Condition(node.Step.Condition, slots) {
				snap = domain.Apply(snap, e.manager.MoveTo(snap, node.BodyEntry))
			} else {
				snap, messages = e.advance(snap, node, messages)
			}

		default:
			return snap, messages, nil, fmt.Errorf("flow %q: step %q has unknown type %q",
				active.Flow, node.Step.ID, node.Step.Type)
		}
	}
}

// advance follows a node's default edge, completing the flow when the path
// ends.
func (e *Engine) advance(snap *domain.Snapshot, node *compiler.Node, messages []string) (*domain.Snapshot, []string) {
	target := node.Next
	if target == "" {
		target = node.LoopGuard
	}
	if target == "" {
		return e.completeActive(snap, messages)
	}
	return domain.Apply(snap, e.manager.MoveTo(snap, target)), messages
}

// completeActive pops the top flow as completed and announces the resumed
// parent, if any. Driving continues so the parent re-asks its own question.
func (e *Engine) completeActive(snap *domain.Snapshot, messages []string) (*domain.Snapshot, []string) {
	popped, d, err := e.manager.PopFlow(snap, domain.FlowCompleted)
	if err != nil {
		return snap, messages
	}
	d.Pending = &domain.PendingChange{Prompt: nil}
	hadParent := snap.Depth() > 1
	var parentFlow string
	if hadParent {
		parentFlow = snap.Stack[snap.Depth()-2].Flow
	}
	snap = domain.Apply(snap, d)
	e.hooks.EmitFlowFinished(popped.Flow, domain.FlowCompleted)
	if hadParent {
		messages = append(messages, msgResumed(parentFlow))
	}
	return snap, messages
}

// abandonActive pops the top flow as cancelled with an apology.
func (e *Engine) abandonActive(snap *domain.Snapshot, messages []string, apology string) (*domain.Snapshot, []string) {
	popped, d, err := e.manager.PopFlow(snap, domain.FlowCancelled)
	if err != nil {
		return snap, messages
	}
	d.Pending = &domain.PendingChange{Prompt: nil}
	snap = domain.Apply(snap, d)
	e.hooks.EmitFlowFinished(popped.Flow, domain.FlowCancelled)
	return snap, append(messages, apology)
}

// executeAction runs one action step. Failures never surface as turn errors:
// the flow is abandoned with an apology and the parent (if any) resumes.
func (e *Engine) executeAction(ctx context.Context, snap *domain.Snapshot, cf *CompiledFlow, node *compiler.Node, messages []string) (*domain.Snapshot, []string, error) {
	active := snap.Active()
	step := node.Step

	if e.executor == nil {
		e.logger.Error("action step with no executor configured", "flow", active.Flow, "action", step.Action)
		e.hooks.EmitActionError(step.Action)
		snap, messages = e.abandonActive(snap, messages, msgActionFailed())
		return snap, messages, nil
	}

	inputs := actionInputs(step, snap.SlotsOf(active.ID))
	outs, err := e.executor.Execute(ctx, step.Action, inputs)
	if err != nil {
		aerr := &domain.ActionExecutionError{Action: step.Action, StepID: step.ID, Err: err}
		e.logger.Error("action failed", "flow", active.Flow, "action", step.Action, "error", aerr)
		e.hooks.EmitActionError(step.Action)
		snap, messages = e.abandonActive(snap, messages, msgActionFailed())
		return snap, messages, nil
	}

	set := make(map[string]any, len(outs))
	for name, value := range outs {
		slot := name
		if mapped, ok := step.Outputs[name]; ok && mapped != "" {
			slot = mapped
		}
		set[slot] = value
	}
	d := domain.Delta{
		Frames: map[string]domain.FrameDelta{active.ID: {Executed: []string{step.ID}}},
	}
	if len(set) > 0 {
		d.Slots = map[string]domain.SlotDelta{active.ID: {Set: set}}
	}
	snap = domain.Apply(snap, d)
	snap, messages = e.advance(snap, cf.Graph.Node(step.ID), messages)
	return snap, messages, nil
}

// actionInputs selects the slot values an action receives: the declared input
// list, or every non-reserved slot when none is declared.
func actionInputs(step *domain.StepDefinition, slots map[string]any) map[string]any {
	inputs := make(map[string]any)
	if len(step.Inputs) > 0 {
		for _, name := range step.Inputs {
			if v, ok := slots[name]; ok {
				inputs[name] = v
			}
		}
		return inputs
	}
	for name, v := range slots {
		if strings.HasPrefix(name, "__") {
			continue
		}
		inputs[name] = v
	}
	return inputs
}

func (e *Engine) turnContext(snap *domain.Snapshot) ports.TurnContext {
	tc := ports.TurnContext{
		ConversationID: snap.ConversationID,
		Turn:           snap.Turn,
	}
	if active := snap.Active(); active != nil {
		tc.ActiveFlow = active.Flow
		if cf, ok := e.catalog.Get(active.Flow); ok {
			tc.SlotDefs = cf.Def.Slots
		}
	}
	if snap.Pending != nil {
		tc.ExpectedSlot = snap.Pending.Slot
		tc.PendingKind = snap.Pending.Kind
	}
	return tc
}

// finalize advances the turn counter and assembles the result.
func (e *Engine) finalize(snap *domain.Snapshot, messages []string, pending *domain.PendingPrompt) *TurnResult {
	snap = domain.Apply(snap, domain.Delta{TurnAdvance: true})
	e.hooks.EmitTurn(snap.ConversationID)

	response := strings.Join(messages, "\n")
	if response == "" && pending == nil && !snap.HandedOff {
		response = msgIdle()
	}
	return &TurnResult{
		Response: response,
		Messages: messages,
		Pending:  pending,
		Snapshot: snap,
	}
}
