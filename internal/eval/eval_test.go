package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionComparisons(t *testing.T) {
	slots := map[string]any{
		"age":    25,
		"status": "approved",
		"total":  149.5,
		"name":   "ada",
	}

	t.Run("and combination", func(t *testing.T) {
		assert.True(t, Condition("age > 18 AND status == 'approved'", slots))
		assert.False(t, Condition("age > 18 AND status == 'rejected'", slots))
	})

	t.Run("and fails on left operand", func(t *testing.T) {
		young := map[string]any{"age": 15, "status": "approved"}
		assert.False(t, Condition("age > 18 AND status == 'approved'", young))
	})

	t.Run("or combination", func(t *testing.T) {
		assert.True(t, Condition("age > 90 OR status == 'approved'", slots))
		assert.False(t, Condition("age > 90 OR status == 'rejected'", slots))
	})

	t.Run("case insensitive logical operators", func(t *testing.T) {
		assert.True(t, Condition("age > 18 and age < 65", slots))
		assert.True(t, Condition("age > 90 or age > 18", slots))
	})

	t.Run("parenthesized expression", func(t *testing.T) {
		assert.True(t, Condition("(age > 18)", slots))
		assert.True(t, Condition("(age > 18 AND status == 'approved')", slots))
	})

	t.Run("operator priority avoids partial match", func(t *testing.T) {
		assert.True(t, Condition("age >= 25", slots))
		assert.False(t, Condition("age >= 26", slots))
		assert.True(t, Condition("age != 30", slots))
	})

	t.Run("numeric coercion on string values", func(t *testing.T) {
		s := map[string]any{"count": "12"}
		assert.True(t, Condition("count > 10", s))
	})

	t.Run("string fallback ordering", func(t *testing.T) {
		assert.True(t, Condition("name < 'bob'", slots))
	})

	t.Run("ordering with missing left is false", func(t *testing.T) {
		assert.False(t, Condition("missing > 1", slots))
		assert.False(t, Condition("missing <= 1", slots))
	})

	t.Run("equality is none safe", func(t *testing.T) {
		assert.True(t, Condition("missing == none", slots))
		assert.True(t, Condition("age != none", slots))
		assert.False(t, Condition("age == none", slots))
	})

	t.Run("right side slot lookup", func(t *testing.T) {
		s := map[string]any{"a": 3, "b": 3}
		assert.True(t, Condition("a == b", s))
		assert.False(t, Condition("a != b", s))
	})
}

func TestConditionTruthiness(t *testing.T) {
	t.Run("empty collection is false", func(t *testing.T) {
		assert.False(t, Condition("items", map[string]any{"items": []any{}}))
	})

	t.Run("non-empty collection is true", func(t *testing.T) {
		assert.True(t, Condition("items", map[string]any{"items": []any{"a"}}))
	})

	t.Run("missing slot is false", func(t *testing.T) {
		assert.False(t, Condition("items", map[string]any{}))
	})

	t.Run("zero and empty string are false", func(t *testing.T) {
		assert.False(t, Condition("n", map[string]any{"n": 0}))
		assert.False(t, Condition("s", map[string]any{"s": ""}))
		assert.True(t, Condition("s", map[string]any{"s": "x"}))
	})

	t.Run("slot name containing operator word is not split", func(t *testing.T) {
		assert.True(t, Condition("android", map[string]any{"android": true}))
		assert.True(t, Condition("order", map[string]any{"order": "pizza"}))
	})
}

func TestMatches(t *testing.T) {
	t.Run("operator prefixed numeric", func(t *testing.T) {
		assert.True(t, Matches(1500, ">1000"))
		assert.False(t, Matches(500, ">1000"))
	})

	t.Run("operator prefixed equality", func(t *testing.T) {
		assert.True(t, Matches("approved", "==approved"))
		assert.True(t, Matches(42, "!=43"))
	})

	t.Run("boolean literal matches truthiness", func(t *testing.T) {
		assert.True(t, Matches(true, "true"))
		assert.True(t, Matches("yes", "true"))
		assert.True(t, Matches(nil, "false"))
		assert.True(t, Matches([]any{}, "false"))
	})

	t.Run("literal string match", func(t *testing.T) {
		assert.True(t, Matches("large", "large"))
		assert.True(t, Matches(12, "12"))
		assert.False(t, Matches("large", "small"))
	})
}

func TestWellformed(t *testing.T) {
	assert.True(t, Wellformed("a > 1"))
	assert.True(t, Wellformed("(a > 1) AND b"))
	assert.False(t, Wellformed(""))
	assert.False(t, Wellformed("(a > 1"))
	assert.False(t, Wellformed("a > 1)"))
}
