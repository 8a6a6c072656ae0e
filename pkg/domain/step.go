package domain

// StepType identifies the control-flow behavior of a step.
type StepType string

const (
	// StepSay emits a message and continues immediately.
	StepSay StepType = "say"
	// StepCollect asks for a slot value and suspends until it is filled.
	StepCollect StepType = "collect"
	// StepAction executes an external side-effect through the ActionExecutor.
	StepAction StepType = "action"
	// StepBranch routes to a target step based on a slot value.
	StepBranch StepType = "branch"
	// StepConfirm asks the user to confirm collected values (yes/no/modify).
	StepConfirm StepType = "confirm"
	// StepWhile repeats its body while a condition holds.
	StepWhile StepType = "while"
	// StepSet assigns slot values without user interaction.
	StepSet StepType = "set"
)

// BranchCase pairs a match pattern with a target step ID. Cases are evaluated
// in declaration order; the first matching pattern wins.
type BranchCase struct {
	When   string `json:"when" yaml:"when" mapstructure:"when"`
	Target string `json:"target" yaml:"target" mapstructure:"target"`
}

// StepDefinition describes one unit of flow logic. The Type field selects
// which of the optional fields are meaningful; the compiler enforces the
// per-type requirements.
type StepDefinition struct {
	ID   string   `json:"id" yaml:"id" mapstructure:"id"`
	Type StepType `json:"type" yaml:"type" mapstructure:"type"`

	// Prompt is the text for Say steps, the question for Collect steps, and
	// the confirmation template for Confirm steps. Placeholders of the form
	// {slot_name} are substituted from the active flow's slots.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`

	// Slot names the slot a Collect step fills, a Confirm step records its
	// answer in, or a Branch step matches its cases against.
	Slot string `json:"slot,omitempty" yaml:"slot,omitempty" mapstructure:"slot"`

	// Action configuration (Type == StepAction).
	Action  string            `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`
	Inputs  []string          `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty" mapstructure:"outputs"`

	// Branch configuration (Type == StepBranch).
	Cases   []BranchCase `json:"cases,omitempty" yaml:"cases,omitempty" mapstructure:"cases"`
	Default string       `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`

	// While configuration (Type == StepWhile). Body steps are flattened into
	// the main sequence by the compiler.
	Condition string           `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
	Body      []StepDefinition `json:"body,omitempty" yaml:"body,omitempty" mapstructure:"body"`

	// Set configuration (Type == StepSet).
	Assign map[string]any `json:"assign,omitempty" yaml:"assign,omitempty" mapstructure:"assign"`

	// Confirm configuration (Type == StepConfirm). DenyTarget is the step to
	// route to when the user answers no; empty means "ask what to change".
	DenyTarget string `json:"deny_target,omitempty" yaml:"deny_target,omitempty" mapstructure:"deny_target"`

	// Next is an explicit jump target overriding the default sequential edge.
	// It is the only way a step reached through a branch case continues into
	// the rest of the flow.
	Next string `json:"next,omitempty" yaml:"next,omitempty" mapstructure:"next"`
}
