package domain

import "time"

// FlowState describes the lifecycle state of a flow instance.
type FlowState string

const (
	// FlowActive is the state of the top-of-stack instance.
	FlowActive FlowState = "active"
	// FlowPaused applies to every instance below the top of the stack.
	FlowPaused FlowState = "paused"
	// FlowCompleted is the terminal state of a flow that ran to its end.
	FlowCompleted FlowState = "completed"
	// FlowCancelled is the terminal state of a flow abandoned before its end,
	// whether by the user, an action failure, or confirmation exhaustion.
	FlowCancelled FlowState = "cancelled"
)

// Terminal reports whether the state ends the instance's lifecycle.
func (s FlowState) Terminal() bool {
	return s == FlowCompleted || s == FlowCancelled
}

// SlotSpec declares a slot a flow needs, with the prompt used to collect it
// and an explanatory description surfaced on clarification requests.
type SlotSpec struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Prompt      string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// FlowDefinition is a reusable multi-turn task: an ordered list of steps plus
// slot metadata. Definitions are validated and compiled before any
// conversation can reference them.
type FlowDefinition struct {
	Name        string           `json:"name" yaml:"name" mapstructure:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Triggers    []string         `json:"triggers,omitempty" yaml:"triggers,omitempty" mapstructure:"triggers"`
	Slots       []SlotSpec       `json:"slots,omitempty" yaml:"slots,omitempty" mapstructure:"slots"`
	Steps       []StepDefinition `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// SlotSpecFor returns the declared spec for a slot name, if any.
func (f *FlowDefinition) SlotSpecFor(name string) (SlotSpec, bool) {
	for _, s := range f.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotSpec{}, false
}

// FlowInstance is one running occurrence of a flow on the stack.
type FlowInstance struct {
	// ID uniquely identifies the instance; it is also the key into the
	// snapshot's slot store.
	ID string `json:"id"`

	// Flow is the name of the FlowDefinition this instance runs.
	Flow string `json:"flow"`

	State FlowState `json:"state"`

	// CurrentStep is the ID of the step the instance is positioned at.
	// Empty means the instance has not entered its graph yet.
	CurrentStep string `json:"current_step,omitempty"`

	// StepIndex counts graph advances, for diagnostics and replay checks.
	StepIndex int `json:"step_index"`

	// Executed records step IDs whose side effects are already reflected in
	// the slot store, so an at-least-once replay never re-applies them.
	Executed map[string]bool `json:"executed,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// MarkExecuted returns a copy of the executed set with stepID added.
func (f *FlowInstance) MarkExecuted(stepID string) map[string]bool {
	out := make(map[string]bool, len(f.Executed)+1)
	for k, v := range f.Executed {
		out[k] = v
	}
	out[stepID] = true
	return out
}
