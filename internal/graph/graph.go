package graph

import (
	"math"
	"sort"

	"github.com/joshharrison/sprintloom/internal/diag"
)

// Build constructs a ProjectGraph from tasks and dependency edges. Edges are
// taken from each task's DependsOn list plus the explicit edges slice;
// duplicates collapse. Edges naming an unknown task, and self edges, are
// dropped and recorded as data warnings.
func Build(tasks []Task, edges []Dependency) (*ProjectGraph, error) {
	g := &ProjectGraph{
		Nodes: make(map[string]*Node, len(tasks)),
		Order: make([]string, 0, len(tasks)),
	}

	// Index all tasks
	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			return nil, diag.Configf("id", "task at position %d has an empty id", i)
		}
		if _, dup := g.Nodes[t.ID]; dup {
			return nil, diag.Configf("id", "duplicate task id %q", t.ID)
		}
		if math.IsNaN(t.DurationDays) || math.IsInf(t.DurationDays, 0) {
			return nil, diag.Configf("duration_days", "task %q has non-finite duration %g", t.ID, t.DurationDays)
		}
		if t.DurationDays < 0 {
			return nil, diag.Configf("duration_days", "task %q has negative duration %g", t.ID, t.DurationDays)
		}
		g.Nodes[t.ID] = &Node{
			ID:       t.ID,
			Name:     t.Name,
			Duration: t.DurationDays,
			Assignee: t.Assignee,
			Index:    len(g.Order),
		}
		g.Order = append(g.Order, t.ID)
	}

	all := make([]Dependency, 0, len(edges))
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			all = append(all, Dependency{TaskID: t.ID, DependsOnID: dep})
		}
	}
	all = append(all, edges...)

	edgeSet := make(map[[2]string]bool)
	for _, e := range all {
		key := [2]string{e.DependsOnID, e.TaskID}
		if edgeSet[key] {
			continue
		}
		edgeSet[key] = true

		if e.TaskID == e.DependsOnID {
			g.Warnings = append(g.Warnings, diag.DataWarning("self dependency on %s dropped", e.TaskID))
			continue
		}
		from, okFrom := g.Nodes[e.DependsOnID]
		to, okTo := g.Nodes[e.TaskID]
		if !okFrom || !okTo {
			w := diag.DataWarning("dependency %s -> %s references an unknown task and was dropped", e.DependsOnID, e.TaskID)
			w.TaskIDs = []string{e.TaskID, e.DependsOnID}
			g.Warnings = append(g.Warnings, w)
			continue
		}
		from.Successors = append(from.Successors, to.ID)
		to.Predecessors = append(to.Predecessors, from.ID)
	}

	g.finish()
	return g, nil
}

// finish sorts adjacency lists and recomputes roots and leaves.
func (g *ProjectGraph) finish() {
	g.Roots, g.Leaves = nil, nil
	for _, n := range g.Nodes {
		sort.Strings(n.Predecessors)
		sort.Strings(n.Successors)
		if len(n.Predecessors) == 0 {
			g.Roots = append(g.Roots, n.ID)
		}
		if len(n.Successors) == 0 {
			g.Leaves = append(g.Leaves, n.ID)
		}
	}
	sort.Strings(g.Roots)
	sort.Strings(g.Leaves)
}

// TaskCount returns the number of tasks in the graph.
func (g *ProjectGraph) TaskCount() int {
	return len(g.Nodes)
}

// Has reports whether id is a node of the graph.
func (g *ProjectGraph) Has(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// Filter returns a new graph containing only the nodes matching pred. Edges
// to removed nodes are dropped silently; the receiver is not modified.
func (g *ProjectGraph) Filter(pred func(*Node) bool) *ProjectGraph {
	out := &ProjectGraph{
		Nodes:    make(map[string]*Node),
		Warnings: append([]diag.Warning(nil), g.Warnings...),
	}
	for _, id := range g.Order {
		n := g.Nodes[id]
		if !pred(n) {
			continue
		}
		out.Nodes[id] = &Node{
			ID:       n.ID,
			Name:     n.Name,
			Duration: n.Duration,
			Assignee: n.Assignee,
			Index:    len(out.Order),
		}
		out.Order = append(out.Order, id)
	}
	for _, id := range out.Order {
		src := g.Nodes[id]
		dst := out.Nodes[id]
		for _, p := range src.Predecessors {
			if _, ok := out.Nodes[p]; ok {
				dst.Predecessors = append(dst.Predecessors, p)
			}
		}
		for _, s := range src.Successors {
			if _, ok := out.Nodes[s]; ok {
				dst.Successors = append(dst.Successors, s)
			}
		}
	}
	out.finish()
	return out
}

// Subset restricts the graph to the given scope. An empty scope keeps every
// node. Scope ids that are not in the graph are reported as data warnings.
func (g *ProjectGraph) Subset(ids []string) *ProjectGraph {
	if len(ids) == 0 {
		return g.Filter(func(*Node) bool { return true })
	}
	keep := make(map[string]bool, len(ids))
	var missing []string
	for _, id := range ids {
		if !g.Has(id) {
			missing = append(missing, id)
			continue
		}
		keep[id] = true
	}
	out := g.Filter(func(n *Node) bool { return keep[n.ID] })
	for _, id := range missing {
		w := diag.DataWarning("scope references unknown task %s", id)
		w.TaskIDs = []string{id}
		out.Warnings = append(out.Warnings, w)
	}
	return out
}

// Without returns a copy of the graph with one task and its edges removed.
func (g *ProjectGraph) Without(id string) *ProjectGraph {
	return g.Filter(func(n *Node) bool { return n.ID != id })
}

// Ancestors returns every node the given node transitively depends on. The
// node itself is only included when it sits on a cycle.
func (g *ProjectGraph) Ancestors(id string) map[string]bool {
	anc := make(map[string]bool)
	n, ok := g.Nodes[id]
	if !ok {
		return anc
	}
	stack := append([]string(nil), n.Predecessors...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if anc[cur] {
			continue
		}
		anc[cur] = true
		stack = append(stack, g.Nodes[cur].Predecessors...)
	}
	return anc
}

// DetectCycle returns one cycle path if the graph has a cycle, or nil if the
// graph is acyclic. Uses DFS with coloring: white (unvisited), gray (in
// progress), black (done). Edges are followed from dependency to dependent.
func (g *ProjectGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Nodes[node].Successors {
			if color[next] == gray {
				// Found a cycle, reconstruct it
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				// Reverse to get forward order
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.Order {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
