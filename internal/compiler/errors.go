package compiler

import (
	"fmt"
	"strings"
)

// StepCompilationError reports a structural problem in a flow definition:
// duplicate IDs, dangling targets, unreachable steps, or unconditional
// cycles. It is raised at compile time and never mid-conversation.
type StepCompilationError struct {
	Flow      string
	StepIndex int
	StepID    string
	Reason    string

	// Unreachable lists step IDs that cannot be reached from the entry node,
	// when that is the reason.
	Unreachable []string
}

func (e *StepCompilationError) Error() string {
	msg := fmt.Sprintf("flow %q: step %d (%s): %s", e.Flow, e.StepIndex, e.StepID, e.Reason)
	if len(e.Unreachable) > 0 {
		msg += ": " + strings.Join(e.Unreachable, ", ")
	}
	return msg
}

// FieldValidationError reports a missing or invalid required field on one
// step, named by step and field.
type FieldValidationError struct {
	Flow   string
	StepID string
	Field  string
	Reason string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("flow %q: step %q: field %q: %s", e.Flow, e.StepID, e.Field, e.Reason)
}
