package domain

// LifecycleHooks defines optional callbacks for engine observability. Any nil
// field is skipped; hooks must not block.
type LifecycleHooks struct {
	// OnTurn fires once per processed turn.
	OnTurn func(conversationID string)

	// OnFlowStarted fires when an instance is pushed onto the stack.
	OnFlowStarted func(flow string)

	// OnFlowFinished fires when an instance is popped, with its terminal
	// state.
	OnFlowFinished func(flow string, result FlowState)

	// OnActionError fires when an external action fails.
	OnActionError func(action string)

	// OnConfirmationRetry fires on each unrecognized confirmation response.
	OnConfirmationRetry func(flow, slot string)

	// OnConfirmationExhausted fires when the retry budget runs out.
	OnConfirmationExhausted func(flow string)

	// OnHandoff fires when the conversation is escalated to a human.
	OnHandoff func(conversationID string)
}

// EmitTurn invokes OnTurn when set.
func (h LifecycleHooks) EmitTurn(conversationID string) {
	if h.OnTurn != nil {
		h.OnTurn(conversationID)
	}
}

// EmitFlowStarted invokes OnFlowStarted when set.
func (h LifecycleHooks) EmitFlowStarted(flow string) {
	if h.OnFlowStarted != nil {
		h.OnFlowStarted(flow)
	}
}

// EmitFlowFinished invokes OnFlowFinished when set.
func (h LifecycleHooks) EmitFlowFinished(flow string, result FlowState) {
	if h.OnFlowFinished != nil {
		h.OnFlowFinished(flow, result)
	}
}

// EmitActionError invokes OnActionError when set.
func (h LifecycleHooks) EmitActionError(action string) {
	if h.OnActionError != nil {
		h.OnActionError(action)
	}
}

// EmitConfirmationRetry invokes OnConfirmationRetry when set.
func (h LifecycleHooks) EmitConfirmationRetry(flow, slot string) {
	if h.OnConfirmationRetry != nil {
		h.OnConfirmationRetry(flow, slot)
	}
}

// EmitConfirmationExhausted invokes OnConfirmationExhausted when set.
func (h LifecycleHooks) EmitConfirmationExhausted(flow string) {
	if h.OnConfirmationExhausted != nil {
		h.OnConfirmationExhausted(flow)
	}
}

// EmitHandoff invokes OnHandoff when set.
func (h LifecycleHooks) EmitHandoff(conversationID string) {
	if h.OnHandoff != nil {
		h.OnHandoff(conversationID)
	}
}
