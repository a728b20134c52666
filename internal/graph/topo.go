package graph

import (
	"slices"
	"sort"
)

// TopoSort orders the graph with Kahn's algorithm. Sources and newly
// released nodes are queued in input order, so the result is deterministic.
// Nodes that can never be released because of a cycle are appended in input
// order and reported in Cyclic instead of failing the sort.
func (g *ProjectGraph) TopoSort() Ordering {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		inDegree[id] = len(n.Predecessors)
	}

	var queue []string
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	sorted := make(map[string]bool, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		sorted[node] = true

		var ready []string
		for _, succ := range g.Nodes[node].Successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			return g.Nodes[ready[i]].Index < g.Nodes[ready[j]].Index
		})
		queue = append(queue, ready...)
	}

	result := Ordering{Order: order}
	if len(order) == len(g.Nodes) {
		return result
	}

	for _, id := range g.Order {
		if !sorted[id] {
			result.Cyclic = append(result.Cyclic, id)
		}
	}
	result.Order = append(result.Order, result.Cyclic...)
	result.HasCycle = true
	result.CycleMembers = g.cycleMembers(result.Cyclic)
	return result
}

// cycleMembers returns the ids that sit on a cycle, in the order given.
// Strongly connected components are found with Tarjan's algorithm over the
// subgraph induced by ids; a component counts when it has more than one
// node or a self edge.
func (g *ProjectGraph) cycleMembers(ids []string) []string {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	index := make(map[string]int, len(ids))
	low := make(map[string]int, len(ids))
	onStack := make(map[string]bool, len(ids))
	member := make(map[string]bool, len(ids))
	var stack []string
	next := 0

	var visit func(id string)
	visit = func(id string) {
		index[id], low[id] = next, next
		next++
		stack = append(stack, id)
		onStack[id] = true

		for _, succ := range g.Nodes[id].Successors {
			if !inSet[succ] {
				continue
			}
			if _, seen := index[succ]; !seen {
				visit(succ)
				low[id] = min(low[id], low[succ])
			} else if onStack[succ] {
				low[id] = min(low[id], index[succ])
			}
		}

		if low[id] != index[id] {
			return
		}
		var scc []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			scc = append(scc, top)
			if top == id {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(g.Nodes[id].Successors, id) {
			for _, m := range scc {
				member[m] = true
			}
		}
	}

	for _, id := range ids {
		if _, seen := index[id]; !seen {
			visit(id)
		}
	}

	var out []string
	for _, id := range ids {
		if member[id] {
			out = append(out, id)
		}
	}
	return out
}
