package compiler

import (
	"testing"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func say(id, prompt string) domain.StepDefinition {
	return domain.StepDefinition{ID: id, Type: domain.StepSay, Prompt: prompt}
}

func collect(id, slot string) domain.StepDefinition {
	return domain.StepDefinition{ID: id, Type: domain.StepCollect, Slot: slot, Prompt: "value for " + slot + "?"}
}

func TestCompileLinearFlow(t *testing.T) {
	g, err := Compile("greet", []domain.StepDefinition{
		say("hello", "Hi there"),
		collect("ask_name", "name"),
		say("bye", "Bye {name}"),
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", g.Entry)
	assert.Equal(t, "ask_name", g.Node("hello").Next)
	assert.Equal(t, "bye", g.Node("ask_name").Next)
	assert.Equal(t, "", g.Node("bye").Next, "last step ends the flow")
}

func TestCompileDuplicateIDs(t *testing.T) {
	_, err := Compile("dup", []domain.StepDefinition{
		say("a", "x"),
		say("a", "y"),
	})
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "a", cerr.StepID)
	assert.Contains(t, cerr.Reason, "duplicate")
}

func TestCompileDanglingBranchTarget(t *testing.T) {
	_, err := Compile("order", []domain.StepDefinition{
		collect("ask_size", "size"),
		{ID: "route", Type: domain.StepBranch, Slot: "size", Cases: []domain.BranchCase{
			{When: "large", Target: "nope"},
		}},
		say("done", "ok"),
	})
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "route", cerr.StepID)
	assert.Contains(t, cerr.Reason, `"nope"`, "error names the missing target")
}

func TestCompileUnreachableSteps(t *testing.T) {
	_, err := Compile("island", []domain.StepDefinition{
		say("a", "x"),
		{ID: "end", Type: domain.StepSay, Prompt: "done", Next: "end2"},
		say("end2", "really done"),
		// orphan is only reachable via a branch that doesn't exist
	})
	require.NoError(t, err, "all reachable so far")

	_, err = Compile("island", []domain.StepDefinition{
		{ID: "a", Type: domain.StepSay, Prompt: "x", Next: "c"},
		say("b", "never"),
		say("c", "end"),
	})
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Unreachable, "b")
}

func TestCompileUnconditionalCycle(t *testing.T) {
	steps := []domain.StepDefinition{
		say("a", "x"),
		{ID: "b", Type: domain.StepSay, Prompt: "y", Next: "a"},
	}
	_, err := Compile("loop", steps)
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "unconditional cycle")

	// Adding a branch-based exit on the cycle makes it legal.
	withExit := []domain.StepDefinition{
		say("a", "x"),
		{ID: "decide", Type: domain.StepBranch, Slot: "done", Cases: []domain.BranchCase{
			{When: "true", Target: "out"},
		}, Default: "a"},
		say("out", "escaped"),
	}
	_, err = Compile("loop", withExit)
	assert.NoError(t, err)
}

func TestCompileWhileAsFinalStep(t *testing.T) {
	g, err := Compile("drain", []domain.StepDefinition{
		collect("ask_items", "items"),
		{ID: "work", Type: domain.StepWhile, Condition: "items", Body: []domain.StepDefinition{
			{ID: "take", Type: domain.StepSet, Assign: map[string]any{"items": ""}},
		}},
	})
	require.NoError(t, err, "the guard's false edge completes the flow, which is a legal cycle exit")
	assert.Equal(t, "", g.Node("work").Next)
	assert.Equal(t, "work", g.Node("take").LoopGuard)
}

func TestCompileDanglingDenyTarget(t *testing.T) {
	_, err := Compile("order", []domain.StepDefinition{
		collect("ask_size", "size"),
		{ID: "check", Type: domain.StepConfirm, Slot: "ok", Prompt: "A {size}?", DenyTarget: "nowhere"},
	})
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "check", cerr.StepID)
	assert.Contains(t, cerr.Reason, `"nowhere"`, "error names the missing deny route")
}

func TestCompileDenyTargetLoopingBack(t *testing.T) {
	g, err := Compile("order", []domain.StepDefinition{
		collect("ask_size", "size"),
		{ID: "check", Type: domain.StepConfirm, Slot: "ok", Prompt: "A {size}?", DenyTarget: "ask_size"},
		say("done", "ordered"),
	})
	require.NoError(t, err, "the affirmed path exits the deny loop")
	assert.Contains(t, g.successors("check"), "ask_size", "deny route is a graph edge")
}

func TestCompileWhileFlattening(t *testing.T) {
	g, err := Compile("pester", []domain.StepDefinition{
		say("intro", "hi"),
		{ID: "more", Type: domain.StepWhile, Condition: "remaining > 0", Body: []domain.StepDefinition{
			collect("ask_item", "item"),
			{ID: "add_item", Type: domain.StepAction, Action: "cart.add"},
		}},
		say("outro", "done"),
	})
	require.NoError(t, err)

	guard := g.Node("more")
	assert.Equal(t, "ask_item", guard.BodyEntry, "guard enters the body")
	assert.Equal(t, "outro", guard.Next, "guard false edge skips the body")
	assert.Equal(t, "add_item", g.Node("ask_item").Next)

	last := g.Node("add_item")
	assert.Equal(t, "more", last.LoopGuard, "last body step loops back to the guard")
	assert.Equal(t, "", last.Next)
}

func TestCompileBranchTargetTerminatesDivertedPath(t *testing.T) {
	g, err := Compile("routes", []domain.StepDefinition{
		{ID: "route", Type: domain.StepBranch, Slot: "tier", Cases: []domain.BranchCase{
			{When: "vip", Target: "vip_path"},
		}},
		say("normal", "standard handling"),
		{ID: "after", Type: domain.StepSay, Prompt: "wrap up", Next: "vip_path"},
		say("vip_path", "white gloves"),
	})
	require.NoError(t, err)

	// vip_path is rejoined explicitly by "after", so it keeps no implicit
	// successor of its own (it is the last step anyway).
	assert.Equal(t, "", g.Node("vip_path").Next)

	g2, err := Compile("routes", []domain.StepDefinition{
		{ID: "route", Type: domain.StepBranch, Slot: "tier", Cases: []domain.BranchCase{
			{When: "vip", Target: "vip_path"},
		}, Next: "done"},
		say("vip_path", "white gloves"),
		say("done", "bye"),
	})
	require.NoError(t, err)
	assert.Equal(t, "", g2.Node("vip_path").Next,
		"diverted-only target does not fall through to the next sequential step")
}

func TestCompileRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		step  domain.StepDefinition
		field string
	}{
		{"collect without slot", domain.StepDefinition{ID: "s", Type: domain.StepCollect, Prompt: "?"}, "slot"},
		{"action without target", domain.StepDefinition{ID: "s", Type: domain.StepAction}, "action"},
		{"branch without cases", domain.StepDefinition{ID: "s", Type: domain.StepBranch, Slot: "x"}, "cases"},
		{"while without condition", domain.StepDefinition{ID: "s", Type: domain.StepWhile, Body: []domain.StepDefinition{say("b", "x")}}, "condition"},
		{"while without body", domain.StepDefinition{ID: "s", Type: domain.StepWhile, Condition: "x"}, "body"},
		{"confirm without slot", domain.StepDefinition{ID: "s", Type: domain.StepConfirm, Prompt: "ok?"}, "slot"},
		{"set without assignments", domain.StepDefinition{ID: "s", Type: domain.StepSet}, "assign"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile("f", []domain.StepDefinition{tc.step})
			var ferr *FieldValidationError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, "s", ferr.StepID)
			assert.Equal(t, tc.field, ferr.Field)
		})
	}
}

func TestCompileEmptyFlow(t *testing.T) {
	_, err := Compile("empty", nil)
	var cerr *StepCompilationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "no steps")
}

func TestGraphInfo(t *testing.T) {
	g, err := Compile("greet", []domain.StepDefinition{
		say("hello", "hi"),
		say("bye", "bye"),
	})
	require.NoError(t, err)

	info := g.Info()
	assert.Equal(t, "greet", info.Flow)
	assert.Equal(t, "hello", info.Entry)
	assert.Equal(t, []string{"bye", "hello"}, info.Nodes)
	assert.Equal(t, 1, info.Edges)
}
