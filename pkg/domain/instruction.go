package domain

// InstructionKind tags a structured instruction produced by the understanding
// collaborator. The dispatcher routes each kind to a registered handler;
// unknown kinds are skipped.
type InstructionKind string

const (
	KindStartFlow            InstructionKind = "start_flow"
	KindSetSlot              InstructionKind = "set_slot"
	KindCorrectSlot          InstructionKind = "correct_slot"
	KindClearSlot            InstructionKind = "clear_slot"
	KindCancelFlow           InstructionKind = "cancel_flow"
	KindAffirmConfirmation   InstructionKind = "affirm_confirmation"
	KindDenyConfirmation     InstructionKind = "deny_confirmation"
	KindRequestClarification InstructionKind = "request_clarification"
	KindHumanHandoff         InstructionKind = "human_handoff"
	KindChitChat             InstructionKind = "chitchat"
	KindCompleteFlow         InstructionKind = "complete_flow"
)

// Instruction is a parsed directive derived from user input. Which fields are
// meaningful depends on Kind: StartFlow uses Flow, the slot instructions use
// Slot and Value, the rest carry no payload.
type Instruction struct {
	Kind  InstructionKind `json:"kind"`
	Flow  string          `json:"flow,omitempty"`
	Slot  string          `json:"slot,omitempty"`
	Value any             `json:"value,omitempty"`
}

// IsSlotEdit reports whether the instruction writes a slot value.
func (i Instruction) IsSlotEdit() bool {
	return i.Kind == KindSetSlot || i.Kind == KindCorrectSlot
}
