package domain

import (
	"errors"
	"fmt"
)

// ErrConversationNotFound is returned by snapshot stores when a conversation
// ID has no persisted snapshot.
var ErrConversationNotFound = errors.New("conversation not found")

// FlowStackError reports an invalid stack operation, such as popping an empty
// stack. It is turn-fatal but surfaced to the user as a plain message.
type FlowStackError struct {
	Op     string
	Reason string
}

func (e *FlowStackError) Error() string {
	return fmt.Sprintf("flow stack: %s: %s", e.Op, e.Reason)
}

// FlowStackLimitError reports a push beyond the configured maximum depth.
type FlowStackLimitError struct {
	Limit int
}

func (e *FlowStackLimitError) Error() string {
	return fmt.Sprintf("flow stack: depth limit %d reached", e.Limit)
}

// ActionExecutionError wraps a failure of an external action. The engine
// catches it at the step boundary, converts it to an apology, and terminates
// the responsible flow; it never reaches the user verbatim.
type ActionExecutionError struct {
	Action string
	StepID string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %q at step %q failed: %v", e.Action, e.StepID, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}
