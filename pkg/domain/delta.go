package domain

// Delta is an immutable description of the changes one operation wants to
// make to a snapshot. Mutators (the flow manager, instruction handlers, the
// confirmation controller) read a snapshot and return a Delta; the caller
// merges deltas into its own copy with Apply. This keeps every operation
// replay-safe: applying the same delta to the same snapshot always yields the
// same result.
type Delta struct {
	// Popped removes that many frames from the top of the stack, purging
	// their slot entries. Applied before Pushed.
	Popped int

	// Pushed appends frames to the top of the stack, in order.
	Pushed []FlowInstance

	// Frames carries per-instance field updates keyed by flow ID. Updates to
	// popped instances are ignored (the frame is gone).
	Frames map[string]FrameDelta

	// Slots carries per-instance slot writes keyed by flow ID.
	Slots map[string]SlotDelta

	// Pending replaces the pending prompt when non-nil. PendingChange with a
	// nil Prompt clears it.
	Pending *PendingChange

	// Handoff flags the conversation for human hand-off.
	Handoff bool

	// TurnAdvance increments the turn counter.
	TurnAdvance bool
}

// FrameDelta updates individual fields of one flow instance. Nil pointers
// leave the field untouched.
type FrameDelta struct {
	State       *FlowState
	CurrentStep *string
	StepIndex   *int
	Executed    []string // step IDs added to the executed set
}

// SlotDelta updates one instance's slot entry.
type SlotDelta struct {
	Set   map[string]any
	Clear []string
}

// PendingChange wraps the pending-prompt replacement so "clear" and "leave
// untouched" stay distinguishable.
type PendingChange struct {
	Prompt *PendingPrompt
}

// IsZero reports whether the delta changes nothing.
func (d Delta) IsZero() bool {
	return d.Popped == 0 && len(d.Pushed) == 0 && len(d.Frames) == 0 &&
		len(d.Slots) == 0 && d.Pending == nil && !d.Handoff && !d.TurnAdvance
}

// mergeRule applies one snapshot field's reconciliation strategy. The rules
// run in a fixed order so stack surgery happens before per-frame updates.
type mergeRule struct {
	field string
	apply func(*Snapshot, Delta)
}

// mergeRules is the per-field policy table: stack operations are structural,
// frame fields are last-write-wins, slot entries are deep-merged, the pending
// prompt is last-write-wins, and the hand-off flag is sticky.
var mergeRules = []mergeRule{
	{"stack", mergeStack},
	{"frames", mergeFrames},
	{"slots", mergeSlots},
	{"pending", mergePending},
	{"handoff", mergeHandoff},
	{"turn", mergeTurn},
}

// Apply merges a delta into a copy of the snapshot and returns the copy.
// The input snapshot is never modified.
func Apply(snap *Snapshot, d Delta) *Snapshot {
	out := snap.Clone()
	for _, rule := range mergeRules {
		rule.apply(out, d)
	}
	return out
}

func mergeStack(s *Snapshot, d Delta) {
	for i := 0; i < d.Popped && len(s.Stack) > 0; i++ {
		top := s.Stack[len(s.Stack)-1]
		delete(s.Slots, top.ID)
		s.Stack = s.Stack[:len(s.Stack)-1]
	}
	for _, inst := range d.Pushed {
		s.Stack = append(s.Stack, inst)
		if s.Slots == nil {
			s.Slots = make(map[string]map[string]any)
		}
		if _, ok := s.Slots[inst.ID]; !ok {
			s.Slots[inst.ID] = make(map[string]any)
		}
	}
}

func mergeFrames(s *Snapshot, d Delta) {
	for id, fd := range d.Frames {
		for i := range s.Stack {
			if s.Stack[i].ID != id {
				continue
			}
			inst := &s.Stack[i]
			if fd.State != nil {
				inst.State = *fd.State
			}
			if fd.CurrentStep != nil {
				inst.CurrentStep = *fd.CurrentStep
			}
			if fd.StepIndex != nil {
				inst.StepIndex = *fd.StepIndex
			}
			for _, stepID := range fd.Executed {
				if inst.Executed == nil {
					inst.Executed = make(map[string]bool)
				}
				inst.Executed[stepID] = true
			}
		}
	}
}

func mergeSlots(s *Snapshot, d Delta) {
	for id, sd := range d.Slots {
		entry, ok := s.Slots[id]
		if !ok {
			// Orphan slot entries are a bug, not a valid state: only write
			// for instances currently on the stack.
			if !s.onStack(id) {
				continue
			}
			entry = make(map[string]any)
			s.Slots[id] = entry
		}
		for k, v := range sd.Set {
			entry[k] = v
		}
		for _, k := range sd.Clear {
			delete(entry, k)
		}
	}
}

func mergePending(s *Snapshot, d Delta) {
	if d.Pending == nil {
		return
	}
	if d.Pending.Prompt == nil {
		s.Pending = nil
		return
	}
	p := *d.Pending.Prompt
	s.Pending = &p
}

func mergeHandoff(s *Snapshot, d Delta) {
	if d.Handoff {
		s.HandedOff = true
	}
}

func mergeTurn(s *Snapshot, d Delta) {
	if d.TurnAdvance {
		s.Turn++
	}
}

func (s *Snapshot) onStack(flowID string) bool {
	for i := range s.Stack {
		if s.Stack[i].ID == flowID {
			return true
		}
	}
	return false
}
