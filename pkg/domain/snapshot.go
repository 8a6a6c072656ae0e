package domain

// PromptKind distinguishes what the pending prompt is waiting for.
type PromptKind string

const (
	PromptText    PromptKind = "text"
	PromptConfirm PromptKind = "confirm"
)

// PendingPrompt records the single suspension point of a conversation: the
// question the engine asked and is waiting on. Resuming is simply the next
// turn treating new input as the answer.
type PendingPrompt struct {
	FlowID string     `json:"flow_id"`
	StepID string     `json:"step_id"`
	Slot   string     `json:"slot,omitempty"`
	Prompt string     `json:"prompt"`
	Kind   PromptKind `json:"kind"`
}

// Snapshot is the entire engine state for one conversation: the flow stack,
// the per-flow slot store, the pending prompt, and the turn counter. It is a
// pure value; the host stores and loads it keyed by conversation ID, and the
// engine never holds onto one between calls.
type Snapshot struct {
	ConversationID string `json:"conversation_id"`

	// Stack is the LIFO list of flow instances. Exactly the last element (if
	// any) is active; all others are paused.
	Stack []FlowInstance `json:"stack,omitempty"`

	// Slots maps flow instance ID to its slot values. Entries exist only for
	// instances currently on the stack; pop purges them.
	Slots map[string]map[string]any `json:"slots,omitempty"`

	Pending *PendingPrompt `json:"pending,omitempty"`

	// HandedOff marks the conversation as escalated to a human; the host
	// decides what to do with it.
	HandedOff bool `json:"handed_off,omitempty"`

	Turn int `json:"turn"`
}

// NewSnapshot creates an empty snapshot for a conversation.
func NewSnapshot(conversationID string) *Snapshot {
	return &Snapshot{
		ConversationID: conversationID,
		Slots:          make(map[string]map[string]any),
	}
}

// Active returns the top of the flow stack, or nil when no flow is running.
func (s *Snapshot) Active() *FlowInstance {
	if len(s.Stack) == 0 {
		return nil
	}
	return &s.Stack[len(s.Stack)-1]
}

// Depth returns the number of instances on the stack.
func (s *Snapshot) Depth() int {
	return len(s.Stack)
}

// Slot reads a slot value from the active flow's entry.
func (s *Snapshot) Slot(name string) (any, bool) {
	active := s.Active()
	if active == nil {
		return nil, false
	}
	entry, ok := s.Slots[active.ID]
	if !ok {
		return nil, false
	}
	v, ok := entry[name]
	return v, ok
}

// SlotsOf returns the slot entry of one instance. The returned map must be
// treated as read-only.
func (s *Snapshot) SlotsOf(flowID string) map[string]any {
	return s.Slots[flowID]
}

// Clone returns a deep copy. Apply works on clones so callers can keep the
// original snapshot for replay comparison.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Stack = make([]FlowInstance, len(s.Stack))
	for i, inst := range s.Stack {
		out.Stack[i] = inst
		out.Stack[i].Executed = copyBoolMap(inst.Executed)
	}
	out.Slots = make(map[string]map[string]any, len(s.Slots))
	for id, entry := range s.Slots {
		out.Slots[id] = copyAnyMap(entry)
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return &out
}

func copyAnyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyBoolMap(src map[string]bool) map[string]bool {
	if src == nil {
		return nil
	}
	out := make(map[string]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
