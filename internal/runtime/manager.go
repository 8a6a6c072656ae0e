package runtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/pkg/domain"
)

// DefaultMaxStackDepth bounds how deep users can nest digressions before the
// engine asks them to finish the current task first.
const DefaultMaxStackDepth = 5

// Manager owns the flow stack and the per-flow slot store. Every mutator is
// pure: it reads a snapshot and returns a delta for the caller to merge, so
// replaying a turn against the same snapshot is always safe.
type Manager struct {
	maxDepth int
	now      func() time.Time
	newID    func(snap *domain.Snapshot, flow string) string
}

// deterministicID derives a v5 UUID from the conversation position, so
// replaying a push against the same snapshot yields the same instance ID.
func deterministicID(snap *domain.Snapshot, flow string) string {
	key := fmt.Sprintf("%s/%d/%d/%s", snap.ConversationID, snap.Turn, snap.Depth(), flow)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxStackDepth overrides the stack depth limit.
func WithMaxStackDepth(depth int) ManagerOption {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides the instance ID source.
func WithIDGenerator(gen func(snap *domain.Snapshot, flow string) string) ManagerOption {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager creates a flow manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		maxDepth: DefaultMaxStackDepth,
		now:      time.Now,
		newID:    deterministicID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PushFlow appends a new active instance on top of the stack, pausing the
// previous top and seeding the new slot entry with inputs. Fails with
// FlowStackLimitError when the stack is full.
func (m *Manager) PushFlow(snap *domain.Snapshot, flow string, inputs map[string]any) (string, domain.Delta, error) {
	if snap.Depth() >= m.maxDepth {
		return "", domain.Delta{}, &domain.FlowStackLimitError{Limit: m.maxDepth}
	}

	inst := domain.FlowInstance{
		ID:        m.newID(snap, flow),
		Flow:      flow,
		State:     domain.FlowActive,
		StartedAt: m.now(),
	}

	d := domain.Delta{Pushed: []domain.FlowInstance{inst}}
	if prev := snap.Active(); prev != nil {
		paused := domain.FlowPaused
		d.Frames = map[string]domain.FrameDelta{
			prev.ID: {State: &paused},
		}
	}
	if len(inputs) > 0 {
		d.Slots = map[string]domain.SlotDelta{
			inst.ID: {Set: inputs},
		}
	}
	return inst.ID, d, nil
}

// PopFlow removes the top instance, returning a copy carrying its terminal
// state. Its slot entry is purged by the delta, and the new top (if any)
// flips back to active. Fails with FlowStackError on an empty stack.
func (m *Manager) PopFlow(snap *domain.Snapshot, result domain.FlowState) (domain.FlowInstance, domain.Delta, error) {
	top := snap.Active()
	if top == nil {
		return domain.FlowInstance{}, domain.Delta{}, &domain.FlowStackError{Op: "pop", Reason: "stack is empty"}
	}

	popped := *top
	popped.State = result

	d := domain.Delta{Popped: 1}
	if snap.Depth() > 1 {
		parent := snap.Stack[snap.Depth()-2]
		active := domain.FlowActive
		d.Frames = map[string]domain.FrameDelta{
			parent.ID: {State: &active},
		}
	}
	return popped, d, nil
}

// ActiveContext returns the top of the stack, or nil.
func (m *Manager) ActiveContext(snap *domain.Snapshot) *domain.FlowInstance {
	return snap.Active()
}

// GetSlot reads from the active flow's slot entry.
func (m *Manager) GetSlot(snap *domain.Snapshot, name string) (any, bool) {
	return snap.Slot(name)
}

// SetSlot writes to the active flow's slot entry. With no active flow the
// returned delta is empty (a deliberate no-op).
func (m *Manager) SetSlot(snap *domain.Snapshot, name string, value any) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	return domain.Delta{
		Slots: map[string]domain.SlotDelta{
			active.ID: {Set: map[string]any{name: value}},
		},
	}
}

// ClearSlot removes a value from the active flow's slot entry.
func (m *Manager) ClearSlot(snap *domain.Snapshot, name string) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	return domain.Delta{
		Slots: map[string]domain.SlotDelta{
			active.ID: {Clear: []string{name}},
		},
	}
}

// AdvanceStep increments the active instance's step index.
func (m *Manager) AdvanceStep(snap *domain.Snapshot) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	next := active.StepIndex + 1
	return domain.Delta{
		Frames: map[string]domain.FrameDelta{
			active.ID: {StepIndex: &next},
		},
	}
}

// SetCurrent positions the active instance at a step without counting an
// advance (used when entering a flow's graph for the first time).
func (m *Manager) SetCurrent(snap *domain.Snapshot, stepID string) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	return domain.Delta{
		Frames: map[string]domain.FrameDelta{
			active.ID: {CurrentStep: &stepID},
		},
	}
}

// MoveTo positions the active instance at a step and bumps the step index.
func (m *Manager) MoveTo(snap *domain.Snapshot, stepID string) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	next := active.StepIndex + 1
	return domain.Delta{
		Frames: map[string]domain.FrameDelta{
			active.ID: {CurrentStep: &stepID, StepIndex: &next},
		},
	}
}

// MarkExecuted records a step's side effect as applied on the active
// instance, so replays skip it.
func (m *Manager) MarkExecuted(snap *domain.Snapshot, stepID string) domain.Delta {
	active := snap.Active()
	if active == nil {
		return domain.Delta{}
	}
	return domain.Delta{
		Frames: map[string]domain.FrameDelta{
			active.ID: {Executed: []string{stepID}},
		},
	}
}

// HandleIntentChange pushes a new flow unless it is already the active one,
// in which case it is an idempotent no-op.
func (m *Manager) HandleIntentChange(snap *domain.Snapshot, flow string, inputs map[string]any) (domain.Delta, bool, error) {
	if active := snap.Active(); active != nil && active.Flow == flow {
		return domain.Delta{}, false, nil
	}
	_, d, err := m.PushFlow(snap, flow, inputs)
	if err != nil {
		return domain.Delta{}, false, err
	}
	return d, true, nil
}
