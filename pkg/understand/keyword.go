// Package understand provides a deterministic, rule-based Understander. It
// exists so the engine is usable out of the box and testable without a
// language model; production hosts typically swap in an LLM-backed
// implementation of the same port.
package understand

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

var (
	affirmWords = map[string]bool{
		"yes": true, "yeah": true, "yep": true, "sure": true,
		"correct": true, "ok": true, "okay": true, "confirm": true,
	}
	denyWords = map[string]bool{
		"no": true, "nope": true, "nah": true, "wrong": true,
	}
	cancelPhrases = []string{"cancel", "never mind", "nevermind", "forget it", "stop"}
	handoffWords  = []string{"agent", "human", "representative", "operator"}
	clarifyWords  = []string{"what do you mean", "explain", "help me understand", "huh"}

	// "change size to large", "set the city to Lisbon"
	correctionPattern = regexp.MustCompile(`(?i)^(?:change|set|make)(?: the)? ([a-z_][a-z0-9_]*) to (.+)$`)
)

// Keyword resolves user text against flow triggers and a small phrase table.
type Keyword struct {
	triggers []trigger
}

type trigger struct {
	phrase string
	flow   string
}

// NewKeyword builds an understander from the flows' declared trigger phrases.
// Longer phrases are matched first so "order a large pizza" beats "order".
func NewKeyword(flows []domain.FlowDefinition) *Keyword {
	k := &Keyword{}
	for _, f := range flows {
		for _, phrase := range f.Triggers {
			k.triggers = append(k.triggers, trigger{phrase: strings.ToLower(phrase), flow: f.Name})
		}
	}
	for i := 1; i < len(k.triggers); i++ {
		for j := i; j > 0 && len(k.triggers[j].phrase) > len(k.triggers[j-1].phrase); j-- {
			k.triggers[j], k.triggers[j-1] = k.triggers[j-1], k.triggers[j]
		}
	}
	return k
}

// Understand maps text to instructions. Resolution order: corrections,
// cancellation, hand-off, clarification, confirmation answers, flow triggers,
// then treating the whole text as the answer to the pending question.
func (k *Keyword) Understand(_ context.Context, text string, tc ports.TurnContext) ([]domain.Instruction, float64, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	if trimmed == "" {
		return nil, 0, nil
	}

	if m := correctionPattern.FindStringSubmatch(trimmed); m != nil {
		return []domain.Instruction{{
			Kind:  domain.KindCorrectSlot,
			Slot:  strings.ToLower(m[1]),
			Value: coerce(strings.TrimSpace(m[2])),
		}}, 0.9, nil
	}
	for _, phrase := range cancelPhrases {
		if strings.Contains(lower, phrase) {
			return []domain.Instruction{{Kind: domain.KindCancelFlow}}, 0.9, nil
		}
	}
	for _, word := range handoffWords {
		if containsWord(lower, word) {
			return []domain.Instruction{{Kind: domain.KindHumanHandoff}}, 0.9, nil
		}
	}
	for _, phrase := range clarifyWords {
		if strings.Contains(lower, phrase) {
			return []domain.Instruction{{Kind: domain.KindRequestClarification}}, 0.8, nil
		}
	}

	if tc.PendingKind == domain.PromptConfirm {
		if affirmWords[lower] {
			return []domain.Instruction{{Kind: domain.KindAffirmConfirmation}}, 1.0, nil
		}
		if denyWords[lower] {
			return []domain.Instruction{{Kind: domain.KindDenyConfirmation}}, 1.0, nil
		}
	}

	for _, tr := range k.triggers {
		if strings.Contains(lower, tr.phrase) {
			return []domain.Instruction{{Kind: domain.KindStartFlow, Flow: tr.flow}}, 1.0, nil
		}
	}

	if tc.ExpectedSlot != "" && tc.PendingKind == domain.PromptText {
		return []domain.Instruction{{
			Kind:  domain.KindSetSlot,
			Slot:  tc.ExpectedSlot,
			Value: coerce(trimmed),
		}}, 0.5, nil
	}

	return []domain.Instruction{{Kind: domain.KindChitChat}}, 0.2, nil
}

func containsWord(text, word string) bool {
	for _, field := range strings.Fields(text) {
		if strings.Trim(field, ".,!?") == word {
			return true
		}
	}
	return false
}

// coerce turns obvious numerics and booleans into typed values so condition
// evaluation can compare them numerically.
func coerce(text string) any {
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}
	return text
}
