// Package eval implements the condition grammar used by branch and loop
// steps. Expressions are evaluated against a slot snapshot; the grammar is
// deliberately small: AND/OR split left-to-right, optional parentheses,
// comparison operators, and bare slot truthiness.
package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// comparison operators in priority order; longer operators first so ">="
// never half-matches as ">".
var operators = []string{">=", "<=", "!=", "==", ">", "<"}

// Condition evaluates a boolean expression against the slot snapshot.
// A missing slot is false; an empty expression is false.
func Condition(expr string, slots map[string]any) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}

	// 1. Split on the first AND/OR found. Left and right operands are each
	// re-evaluated; there is no precedence beyond left-to-right splitting.
	if left, right, op, ok := splitLogical(expr); ok {
		if op == "and" {
			return Condition(left, slots) && Condition(right, slots)
		}
		return Condition(left, slots) || Condition(right, slots)
	}

	// 2. Strip wrapping parentheses and recurse.
	if inner, ok := stripParens(expr); ok {
		return Condition(inner, slots)
	}

	// 3. Comparison operators, first match wins.
	for _, op := range operators {
		if idx := strings.Index(expr, op); idx >= 0 {
			left := strings.TrimSpace(expr[:idx])
			right := strings.TrimSpace(expr[idx+len(op):])
			return compare(slots, left, op, right)
		}
	}

	// 4. Bare slot name: truthiness, missing key is false.
	v, ok := slots[expr]
	if !ok {
		return false
	}
	return Truthy(v)
}

// Matches evaluates a branch-case label against a value. The pattern may be
// operator-prefixed (">1000", "==approved"), a boolean literal, or a literal
// string compared against the value's string form.
func Matches(value any, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	for _, op := range operators {
		if strings.HasPrefix(pattern, op) {
			right := parseLiteral(strings.TrimSpace(strings.TrimPrefix(pattern, op)))
			return applyOperator(value, op, right)
		}
	}
	if b, ok := parseBool(pattern); ok {
		return Truthy(value) == b
	}
	return Format(value) == pattern
}

// Wellformed reports whether an expression is non-empty with balanced
// parentheses. The compiler uses it to classify condition-bearing steps
// without evaluating them.
func Wellformed(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	depth := 0
	for _, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Truthy reports Python-style truthiness: nil, false, zero, empty string,
// empty slice and empty map are false; everything else is true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Format renders a value the way branch labels compare against it.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// splitLogical finds the first case-insensitive AND/OR token, returning the
// operands and which operator was hit.
func splitLogical(expr string) (left, right, op string, ok bool) {
	lower := strings.ToLower(expr)
	andIdx := indexWord(lower, "and")
	orIdx := indexWord(lower, "or")

	switch {
	case andIdx < 0 && orIdx < 0:
		return "", "", "", false
	case orIdx < 0 || (andIdx >= 0 && andIdx < orIdx):
		return strings.TrimSpace(expr[:andIdx]), strings.TrimSpace(expr[andIdx+3:]), "and", true
	default:
		return strings.TrimSpace(expr[:orIdx]), strings.TrimSpace(expr[orIdx+2:]), "or", true
	}
}

// indexWord finds a whitespace-delimited token so slot names like "android"
// or "order" never split.
func indexWord(lower, word string) int {
	start := 0
	for {
		idx := strings.Index(lower[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		beforeOK := idx == 0 || lower[idx-1] == ' ' || lower[idx-1] == ')'
		end := idx + len(word)
		afterOK := end == len(lower) || lower[end] == ' ' || lower[end] == '('
		if beforeOK && afterOK && idx > 0 && end < len(lower) {
			return idx
		}
		start = idx + len(word)
	}
}

// stripParens removes one layer of parentheses only when the opening paren
// matches the final closing one.
func stripParens(expr string) (string, bool) {
	if len(expr) < 2 || expr[0] != '(' || expr[len(expr)-1] != ')' {
		return "", false
	}
	depth := 0
	for i, r := range expr {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(expr)-1 {
				return "", false // closes early: not a full wrap
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return strings.TrimSpace(expr[1 : len(expr)-1]), true
}

// compare resolves "slot <op> literal-or-slot". The left side is always a
// slot lookup, never a literal.
func compare(slots map[string]any, leftName, op, rightRaw string) bool {
	leftVal := slots[leftName]
	rightVal := parseOperand(rightRaw, slots)
	return applyOperator(leftVal, op, rightVal)
}

func applyOperator(left any, op string, right any) bool {
	switch op {
	case "==":
		return looseEqual(left, right)
	case "!=":
		return !looseEqual(left, right)
	}

	// Ordering: a missing or nil left value never satisfies any ordering.
	if left == nil {
		return false
	}
	ln, lok := toNumber(left)
	rn, rok := toNumber(right)
	if lok && rok {
		switch op {
		case ">":
			return ln > rn
		case ">=":
			return ln >= rn
		case "<":
			return ln < rn
		case "<=":
			return ln <= rn
		}
	}
	ls, lsok := left.(string)
	rs, rsok := right.(string)
	if lsok && rsok {
		switch op {
		case ">":
			return ls > rs
		case ">=":
			return ls >= rs
		case "<":
			return ls < rs
		case "<=":
			return ls <= rs
		}
	}
	return false
}

// looseEqual is None-safe and tolerates mixed types: numbers compare
// numerically, strings lexically, everything else by direct comparison.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return as == bs
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return Format(a) == Format(b)
}

// parseOperand parses the right side of a comparison: quoted string, numeric
// literal, boolean, none/null, or another slot lookup.
func parseOperand(raw string, slots map[string]any) any {
	if v, ok := tryLiteral(raw); ok {
		return v
	}
	return slots[raw] // missing slot resolves to nil
}

// parseLiteral parses a literal with plain-string fallback (for branch-case
// labels, where no slot snapshot is available).
func parseLiteral(raw string) any {
	if v, ok := tryLiteral(raw); ok {
		return v
	}
	return raw
}

func tryLiteral(raw string) (any, bool) {
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			return raw[1 : len(raw)-1], true
		}
	}
	if b, ok := parseBool(raw); ok {
		return b, true
	}
	switch strings.ToLower(raw) {
	case "none", "null":
		return nil, true
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, true
	}
	return nil, false
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// toNumber attempts numeric coercion: numbers pass through, booleans map to
// 0/1, numeric strings parse.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	default:
		return 0, false
	}
}
