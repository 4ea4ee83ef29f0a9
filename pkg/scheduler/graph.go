// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"sort"
	"strings"

	"github.com/jllopis/telos/pkg/core"
)

// node groups every proposed call for one tool name within a batch. All
// calls of a node execute together as a unit once its dependencies finish;
// a node executes at most once per batch.
type node struct {
	name  string
	tool  *core.Tool
	calls []core.ProposedCall

	// deps are in-batch dependency names. Dependencies on tools not called
	// this turn are ignored: they have nothing to wait on.
	deps       map[string]struct{}
	dependents []string
	pending    int

	state nodeState
}

type nodeState int

const (
	statePending nodeState = iota
	stateRunning
	stateFinished
	stateFailed
	stateSkipped
)

// buildGraph assembles the per-batch execution graph restricted to calls
// whose tools resolve in the registry.
func buildGraph(calls []core.ProposedCall, lookup func(string) (*core.Tool, bool)) map[string]*node {
	nodes := make(map[string]*node)
	for _, call := range calls {
		n, ok := nodes[call.Name]
		if !ok {
			t, _ := lookup(call.Name)
			n = &node{name: call.Name, tool: t, deps: make(map[string]struct{})}
			nodes[call.Name] = n
		}
		n.calls = append(n.calls, call)
	}

	for _, n := range nodes {
		for _, dep := range n.tool.DependsOn {
			if dep == n.name {
				continue
			}
			if _, inBatch := nodes[dep]; inBatch {
				n.deps[dep] = struct{}{}
			}
		}
		n.pending = len(n.deps)
	}
	for _, n := range nodes {
		for dep := range n.deps {
			nodes[dep].dependents = append(nodes[dep].dependents, n.name)
		}
	}
	return nodes
}

// findCycle runs a depth-first traversal with a recursion stack and returns
// the cycle path if one exists, e.g. "a -> b -> a". Nodes are visited in
// sorted order so the reported path is deterministic.
func findCycle(nodes map[string]*node) (string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string

	var visit func(name string) (string, bool)
	visit = func(name string) (string, bool) {
		color[name] = gray
		stack = append(stack, name)
		deps := sortedKeys(nodes[name].deps)
		for _, dep := range deps {
			switch color[dep] {
			case gray:
				// Found the back edge; cut the stack at the cycle entry.
				start := 0
				for i, onStack := range stack {
					if onStack == dep {
						start = i
						break
					}
				}
				path := append(append([]string{}, stack[start:]...), dep)
				return strings.Join(path, " -> "), true
			case white:
				if path, found := visit(dep); found {
					return path, true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return "", false
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if color[name] == white {
			if path, found := visit(name); found {
				return path, true
			}
		}
	}
	return "", false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
