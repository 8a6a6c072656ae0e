package runtime

import (
	"fmt"
	"regexp"

	"github.com/parleyhq/parley/internal/eval"
	"github.com/parleyhq/parley/pkg/domain"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// renderTemplate substitutes {slot_name} placeholders from the slot entry.
// Placeholders naming an unfilled slot stay literal, which makes a bad
// template visible instead of silently blank.
func renderTemplate(tpl string, slots map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := slots[name]
		if !ok || v == nil {
			return match
		}
		return eval.Format(v)
	})
}

// collectPrompt derives the question for a collect step: the step's own
// prompt, then the slot spec's, then a generic fallback.
func collectPrompt(def *domain.FlowDefinition, step *domain.StepDefinition, slots map[string]any) string {
	if step.Prompt != "" {
		return renderTemplate(step.Prompt, slots)
	}
	if spec, ok := def.SlotSpecFor(step.Slot); ok && spec.Prompt != "" {
		return renderTemplate(spec.Prompt, slots)
	}
	return fmt.Sprintf("What should I use for %s?", step.Slot)
}

// Canned responses. Kept in one place so hosts localizing them have a single
// file to replace.

func msgCancelled(flow string) string {
	return fmt.Sprintf("Okay, I've cancelled %s.", flow)
}

func msgResumed(flow string) string {
	return fmt.Sprintf("Let's get back to %s.", flow)
}

func msgCorrected(slot string, value any) string {
	return fmt.Sprintf("Got it, %s is now %s.", slot, eval.Format(value))
}

func msgCleared(slot string) string {
	return fmt.Sprintf("Okay, I've cleared %s.", slot)
}

func msgUnknownFlow() string {
	return "I'm not able to help with that."
}

func msgStackLimit() string {
	return "Let's finish what we're working on first, then I can help with that."
}

func msgNothingActive() string {
	return "There's nothing in progress right now."
}

func msgNoClarification() string {
	return "There's no open question right now, so nothing to clarify."
}

func msgHandoff() string {
	return "I'm connecting you with a human agent now."
}

func msgChitChat() string {
	return "Happy to chat, but let me know when you'd like to get something done."
}

func msgActionFailed() string {
	return "Something went wrong on my end while handling that. Let's stop here for now."
}

func msgFlowStuck(flow string) string {
	return fmt.Sprintf("I seem to be stuck on %s, so I've stopped it for now.", flow)
}

func msgConfirmDenied() string {
	return "No problem. What would you like to change?"
}

func msgConfirmRetry(prompt string) string {
	return "Sorry, I didn't catch that. " + prompt
}

func msgConfirmExhausted(flow string) string {
	return fmt.Sprintf("I couldn't get a clear answer, so I've stopped %s for now.", flow)
}

func msgIdle() string {
	return "How can I help?"
}
