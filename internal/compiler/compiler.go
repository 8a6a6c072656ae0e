// Package compiler turns an ordered step-definition list into a validated
// executable graph. Compilation is eager: a flow that fails here never
// reaches a conversation.
package compiler

import (
	"fmt"
	"sort"

	"github.com/parleyhq/parley/internal/eval"
	"github.com/parleyhq/parley/pkg/domain"
)

// Compile builds and validates the step graph for one flow.
//
// Edge rules: the default edge is "next step in sequence"; While bodies are
// flattened inline, with the last body step looping back to the guard and the
// guard's false edge skipping past the body; a step reached only through a
// branch case terminates its diverted path unless it names an explicit next
// target; explicit targets resolve directly by step ID.
func Compile(flow string, steps []domain.StepDefinition) (*Graph, error) {
	if len(steps) == 0 {
		return nil, &StepCompilationError{Flow: flow, StepIndex: 0, StepID: "", Reason: "flow has no steps"}
	}

	g := &Graph{Flow: flow, Nodes: make(map[string]*Node)}

	c := &compilation{flow: flow, graph: g}
	entry, err := c.sequence(steps, "")
	if err != nil {
		return nil, err
	}
	g.Entry = entry

	if err := c.validateFields(); err != nil {
		return nil, err
	}
	if err := c.resolveTargets(); err != nil {
		return nil, err
	}
	c.terminateDivertedPaths()
	if err := c.checkReachability(); err != nil {
		return nil, err
	}
	if err := c.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

type compilation struct {
	flow  string
	graph *Graph
	order []string // flattened step IDs, for stable iteration and indexing
}

// sequence flattens one step list, wiring default next-edges. following is
// the successor of the last step in the list ("" ends the flow).
func (c *compilation) sequence(steps []domain.StepDefinition, following string) (string, error) {
	ids := make([]string, len(steps))
	for i := range steps {
		ids[i] = steps[i].ID
	}

	var entry string
	for i := range steps {
		step := steps[i]
		next := following
		if i < len(steps)-1 {
			next = ids[i+1]
		}

		if step.ID == "" {
			return "", &StepCompilationError{
				Flow: c.flow, StepIndex: len(c.order), StepID: "",
				Reason: "step has no id",
			}
		}
		if _, dup := c.graph.Nodes[step.ID]; dup {
			return "", &StepCompilationError{
				Flow: c.flow, StepIndex: len(c.order), StepID: step.ID,
				Reason: "duplicate step id",
			}
		}

		node := &Node{Step: &step, Next: next}
		c.graph.Nodes[step.ID] = node
		c.order = append(c.order, step.ID)
		if entry == "" {
			entry = step.ID
		}

		if step.Type == domain.StepWhile && len(step.Body) > 0 {
			// The guard's body entry begins the flattened body; its last step
			// loops back to the guard rather than falling through.
			bodyEntry, err := c.sequence(step.Body, "")
			if err != nil {
				return "", err
			}
			node.BodyEntry = bodyEntry
			last := c.graph.Nodes[c.lastOf(step.Body)]
			last.LoopGuard = step.ID
			if last.Step.Next == "" {
				// Default loop-back; an explicit jump on the last body step
				// still wins over it.
				last.Next = ""
			}
		}

		if step.Next != "" && step.Type != domain.StepWhile {
			node.Next = step.Next
		}
	}
	return entry, nil
}

// lastOf returns the ID of the final flattened step of a body.
func (c *compilation) lastOf(body []domain.StepDefinition) string {
	last := body[len(body)-1]
	if last.Type == domain.StepWhile && len(last.Body) > 0 {
		// A while at the end of a body: the loop-back belongs to its own
		// guard; the guard itself is the body's last node.
		return last.ID
	}
	return last.ID
}

// validateFields enforces per-type required fields on every flattened step.
func (c *compilation) validateFields() error {
	for _, id := range c.order {
		step := c.graph.Nodes[id].Step
		fail := func(field, reason string) error {
			return &FieldValidationError{Flow: c.flow, StepID: id, Field: field, Reason: reason}
		}
		switch step.Type {
		case domain.StepSay:
			if step.Prompt == "" {
				return fail("prompt", "say step needs a prompt")
			}
		case domain.StepCollect:
			if step.Slot == "" {
				return fail("slot", "collect step needs a slot")
			}
		case domain.StepAction:
			if step.Action == "" {
				return fail("action", "action step needs a call target")
			}
		case domain.StepBranch:
			if len(step.Cases) == 0 {
				return fail("cases", "branch step needs a non-empty cases list")
			}
			if step.Slot == "" {
				return fail("slot", "branch step needs a slot to match against")
			}
		case domain.StepWhile:
			if !eval.Wellformed(step.Condition) {
				return fail("condition", "while step needs a non-empty, balanced condition")
			}
			if len(step.Body) == 0 {
				return fail("body", "while step needs a non-empty body")
			}
		case domain.StepConfirm:
			if step.Slot == "" {
				return fail("slot", "confirm step needs a slot")
			}
			if step.Prompt == "" {
				return fail("prompt", "confirm step needs a prompt template")
			}
		case domain.StepSet:
			if len(step.Assign) == 0 {
				return fail("assign", "set step needs a non-empty assignment map")
			}
		default:
			return fail("type", fmt.Sprintf("unknown step type %q", step.Type))
		}
	}
	return nil
}

// resolveTargets checks every branch-case target and explicit jump target
// against the flattened step set.
func (c *compilation) resolveTargets() error {
	for idx, id := range c.order {
		node := c.graph.Nodes[id]
		missing := func(target string) error {
			return &StepCompilationError{
				Flow: c.flow, StepIndex: idx, StepID: id,
				Reason: fmt.Sprintf("target %q does not name an existing step", target),
			}
		}
		if node.Step.Type == domain.StepBranch {
			for _, cse := range node.Step.Cases {
				if cse.Target == "" || c.graph.Nodes[cse.Target] == nil {
					return missing(cse.Target)
				}
			}
			if node.Step.Default != "" && c.graph.Nodes[node.Step.Default] == nil {
				return missing(node.Step.Default)
			}
		}
		if node.Step.Type == domain.StepConfirm && node.Step.DenyTarget != "" && c.graph.Nodes[node.Step.DenyTarget] == nil {
			return missing(node.Step.DenyTarget)
		}
		if node.Step.Next != "" && c.graph.Nodes[node.Step.Next] == nil {
			return missing(node.Step.Next)
		}
	}
	return nil
}

// terminateDivertedPaths drops the implicit sequential edge of steps that are
// reached only through branch cases. Such a step ends its diverted path
// unless the author rejoined it explicitly via a next target.
func (c *compilation) terminateDivertedPaths() {
	branchTargets := make(map[string]bool)
	for _, id := range c.order {
		step := c.graph.Nodes[id].Step
		if step.Type != domain.StepBranch {
			continue
		}
		for _, cse := range step.Cases {
			branchTargets[cse.Target] = true
		}
		if step.Default != "" {
			branchTargets[step.Default] = true
		}
	}

	// Clearing an edge can leave another step diverted-only, so run to a
	// fixpoint.
	for changed := true; changed; {
		changed = false

		inboundSequential := make(map[string]bool)
		for _, id := range c.order {
			node := c.graph.Nodes[id]
			if node.Next != "" {
				inboundSequential[node.Next] = true
			}
			if node.BodyEntry != "" {
				inboundSequential[node.BodyEntry] = true
			}
			if node.LoopGuard != "" {
				inboundSequential[node.LoopGuard] = true
			}
			if node.Step.Type == domain.StepConfirm && node.Step.DenyTarget != "" {
				// A deny route rejoins like an explicit jump.
				inboundSequential[node.Step.DenyTarget] = true
			}
		}

		for _, id := range c.order {
			node := c.graph.Nodes[id]
			if !branchTargets[id] || id == c.graph.Entry {
				continue
			}
			if inboundSequential[id] {
				continue // also reachable sequentially: not a diverted-only path
			}
			if node.Step.Next == "" && node.Next != "" {
				node.Next = ""
				changed = true
			}
		}
	}
}

// checkReachability walks every edge kind from the entry node and fails with
// the sorted list of unreachable step IDs.
func (c *compilation) checkReachability() error {
	visited := make(map[string]bool)
	queue := []string{c.graph.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, c.graph.successors(id)...)
	}

	var unreachable []string
	for _, id := range c.order {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	if len(unreachable) > 0 {
		sort.Strings(unreachable)
		return &StepCompilationError{
			Flow: c.flow, StepIndex: c.indexOf(unreachable[0]), StepID: unreachable[0],
			Reason:      "unreachable steps",
			Unreachable: unreachable,
		}
	}
	return nil
}

// checkCycles rejects unconditional cycles. A cycle is legal only when at
// least one node on it bears a condition (a branch, a while guard, or a
// confirm) with an exit leaving the cycle, where "exit" is either a graph
// edge out of the cycle or a fall-through that completes the flow.
func (c *compilation) checkCycles() error {
	sccs := c.stronglyConnected()
	for _, scc := range sccs {
		if len(scc) == 1 && !c.selfLoop(scc[0]) {
			continue
		}
		inSCC := make(map[string]bool, len(scc))
		for _, id := range scc {
			inSCC[id] = true
		}

		legal := false
		for _, id := range scc {
			node := c.graph.Nodes[id]
			step := node.Step
			if step.Type != domain.StepBranch && step.Type != domain.StepWhile && step.Type != domain.StepConfirm {
				continue
			}
			if c.exitsByCompletion(node) {
				legal = true
				break
			}
			for _, succ := range c.graph.successors(id) {
				if !inSCC[succ] {
					legal = true
					break
				}
			}
			if legal {
				break
			}
		}
		if !legal {
			sort.Strings(scc)
			return &StepCompilationError{
				Flow: c.flow, StepIndex: c.indexOf(scc[0]), StepID: scc[0],
				Reason: fmt.Sprintf("unconditional cycle through %v", scc),
			}
		}
	}
	return nil
}

// exitsByCompletion reports whether a conditional node's fall-through ends
// the flow instead of following an edge: a While guard at the end of the
// sequence (its false edge has nowhere to go), a Branch with neither default
// nor implicit successor, or a Confirm whose affirmed path runs off the end.
// Completion leaves the cycle even though no graph edge records it.
func (c *compilation) exitsByCompletion(n *Node) bool {
	switch n.Step.Type {
	case domain.StepWhile, domain.StepConfirm:
		return n.Next == "" && n.LoopGuard == ""
	case domain.StepBranch:
		return n.Step.Default == "" && n.Next == ""
	}
	return false
}

func (c *compilation) selfLoop(id string) bool {
	for _, succ := range c.graph.successors(id) {
		if succ == id {
			return true
		}
	}
	return false
}

func (c *compilation) indexOf(id string) int {
	for i, candidate := range c.order {
		if candidate == id {
			return i
		}
	}
	return -1
}

// stronglyConnected runs Tarjan's algorithm over the edge set.
func (c *compilation) stronglyConnected() [][]string {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var sccs [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range c.graph.successors(v) {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, id := range c.order {
		if _, seen := indices[id]; !seen {
			strongconnect(id)
		}
	}
	return sccs
}
