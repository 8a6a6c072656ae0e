package compiler

import (
	"sort"

	"github.com/parleyhq/parley/pkg/domain"
)

// Node is one executable step in a compiled graph.
type Node struct {
	// Step is the flattened step definition this node executes.
	Step *domain.StepDefinition

	// Next is the default successor. Empty means the path ends here and the
	// flow completes when execution reaches past this node.
	Next string

	// BodyEntry is the first step of a While body (guard nodes only).
	BodyEntry string

	// LoopGuard is the guard this node loops back to, set on the last step
	// of a While body.
	LoopGuard string
}

// Graph is a validated, executable step graph for one flow: free of dangling
// targets, duplicate IDs, unreachable nodes, and unconditional cycles.
type Graph struct {
	Flow  string
	Entry string
	Nodes map[string]*Node
}

// Node returns the node for a step ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// successors returns every edge target leaving a node, in deterministic
// order: default next, while edges, branch cases, then the confirm deny
// route.
func (g *Graph) successors(id string) []string {
	n := g.Nodes[id]
	if n == nil {
		return nil
	}
	var out []string
	add := func(target string) {
		if target == "" {
			return
		}
		for _, seen := range out {
			if seen == target {
				return
			}
		}
		out = append(out, target)
	}
	add(n.Next)
	add(n.BodyEntry)
	add(n.LoopGuard)
	if n.Step.Type == domain.StepBranch {
		for _, c := range n.Step.Cases {
			add(c.Target)
		}
		add(n.Step.Default)
	}
	if n.Step.Type == domain.StepConfirm {
		add(n.Step.DenyTarget)
	}
	return out
}

// Info summarizes the graph for hosts; the executable form stays internal.
func (g *Graph) Info() *domain.GraphInfo {
	ids := make([]string, 0, len(g.Nodes))
	edges := 0
	for id := range g.Nodes {
		ids = append(ids, id)
		edges += len(g.successors(id))
	}
	sort.Strings(ids)
	return &domain.GraphInfo{
		Flow:  g.Flow,
		Entry: g.Entry,
		Nodes: ids,
		Edges: edges,
	}
}
