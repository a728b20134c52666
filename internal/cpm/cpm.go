package cpm

import (
	"math"
	"sort"

	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
)

// eps is the tolerance used when comparing slack and finish times.
const eps = 1e-9

// Analyze performs critical path method analysis on a task graph with the
// default options.
func Analyze(g *graph.ProjectGraph) (*CPMResult, error) {
	return AnalyzeWith(g, Options{})
}

// AnalyzeWith performs critical path method analysis on a task graph.
// Nodes caught in (or downstream of) a dependency cycle are excluded from the
// passes and reported in Cyclic; the rest of the graph is still analyzed.
func AnalyzeWith(g *graph.ProjectGraph, opts Options) (*CPMResult, error) {
	if g == nil {
		return nil, diag.Configf("graph", "no project graph supplied")
	}

	ordering := g.TopoSort()
	order := ordering.Order[:len(ordering.Order)-len(ordering.Cyclic)]

	result := &CPMResult{
		Tasks:        make(map[string]*TaskSchedule, len(order)),
		TopoOrder:    order,
		HasCycle:     ordering.HasCycle,
		Cyclic:       ordering.Cyclic,
		CycleMembers: ordering.CycleMembers,
		Warnings:     append([]diag.Warning(nil), g.Warnings...),
	}
	if ordering.HasCycle {
		result.Warnings = append(result.Warnings, diag.CycleWarning(ordering.Cyclic, g.DetectCycle()))
	}

	// Initialize schedules
	for _, id := range order {
		result.Tasks[id] = &TaskSchedule{TaskID: id, Duration: g.Nodes[id].Duration}
	}

	// Forward pass: compute ES and EF
	for _, id := range order {
		ts := result.Tasks[id]
		es := 0.0
		for _, pred := range g.Nodes[id].Predecessors {
			if predTS, ok := result.Tasks[pred]; ok && predTS.EF > es {
				es = predTS.EF
			}
		}
		ts.ES = es
		ts.EF = es + ts.Duration
	}

	// Total project duration
	for _, ts := range result.Tasks {
		if ts.EF > result.TotalDuration {
			result.TotalDuration = ts.EF
		}
	}

	// Backward pass in reverse topological order
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ts := result.Tasks[id]

		lf := math.Inf(1)
		for _, succ := range g.Nodes[id].Successors {
			if succTS, ok := result.Tasks[succ]; ok && succTS.LS < lf {
				lf = succTS.LS
			}
		}
		if math.IsInf(lf, 1) {
			// Sink within the acyclic part of the graph
			lf = ts.EF
			if opts.Anchor == AnchorProjectFinish {
				lf = result.TotalDuration
			}
		}
		ts.LF = lf
		ts.LS = lf - ts.Duration

		ts.Slack = ts.LS - ts.ES
		if math.Abs(ts.Slack) < eps {
			ts.Slack = 0
		}
		ts.IsCritical = ts.Slack == 0
	}

	if end := projectEnd(result, g); end != "" {
		result.CriticalPath = chainTo(result, g, end)
	}

	// Compute waves: group tasks by earliest start time
	result.Waves = computeWaves(result)

	return result, nil
}

// ChainTo returns the critical chain that ends at id: starting from id it
// repeatedly steps to a zero-slack predecessor that finishes exactly when the
// current task starts, preferring the smallest ES and then the smallest id.
// The chain is returned source first. Unknown or cyclic ids yield nil.
func ChainTo(r *CPMResult, g *graph.ProjectGraph, id string) []string {
	if _, ok := r.Tasks[id]; !ok {
		return nil
	}
	return chainTo(r, g, id)
}

func chainTo(r *CPMResult, g *graph.ProjectGraph, id string) []string {
	chain := []string{id}
	cur := id
	for {
		curTS := r.Tasks[cur]
		best := ""
		for _, pred := range g.Nodes[cur].Predecessors {
			p, ok := r.Tasks[pred]
			if !ok || p.Slack != 0 || math.Abs(p.EF-curTS.ES) >= eps {
				continue
			}
			if best == "" {
				best = pred
				continue
			}
			b := r.Tasks[best]
			if p.ES < b.ES || (p.ES == b.ES && pred < best) {
				best = pred
			}
		}
		if best == "" {
			break
		}
		chain = append(chain, best)
		cur = best
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// projectEnd picks the sink with the latest finish (ties: smaller ES, then id).
func projectEnd(r *CPMResult, g *graph.ProjectGraph) string {
	end := ""
	for _, id := range r.TopoOrder {
		ts := r.Tasks[id]
		isSink := true
		for _, succ := range g.Nodes[id].Successors {
			if _, ok := r.Tasks[succ]; ok {
				isSink = false
				break
			}
		}
		if !isSink {
			continue
		}
		if end == "" {
			end = id
			continue
		}
		e := r.Tasks[end]
		switch {
		case ts.EF > e.EF+eps:
			end = id
		case math.Abs(ts.EF-e.EF) < eps && (ts.ES < e.ES || (ts.ES == e.ES && id < end)):
			end = id
		}
	}
	return end
}

// computeWaves groups tasks by their earliest start time.
func computeWaves(result *CPMResult) []Wave {
	// Group tasks by ES
	esGroups := make(map[float64][]string)
	for _, id := range result.TopoOrder {
		es := result.Tasks[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	// Sort ES values
	esValues := make([]float64, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Float64s(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		taskIDs := esGroups[es]
		sort.Strings(taskIDs)

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Sort critical tasks first within wave
		sort.SliceStable(taskIDs, func(a, b int) bool {
			aCrit := result.Tasks[taskIDs[a]].IsCritical
			bCrit := result.Tasks[taskIDs[b]].IsCritical
			if aCrit != bCrit {
				return aCrit
			}
			return false
		})

		waves[i] = Wave{
			Index:      i,
			Start:      es,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
