// Package eta estimates an optimistic and a pessimistic completion date for a
// single target task.
//
// The optimistic run schedules only the target and its ancestors, so nothing
// else competes for assignees. The pessimistic run schedules the whole scope
// with PessimisticPolicy, which lets unrelated work go first whenever it could
// start at the same time.
package eta

import (
	"fmt"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/rcpsp"
)

// Estimate computes the completion range for req.Target within req.Scope.
func Estimate(g *graph.ProjectGraph, cal *calendar.Calendar, req Request) (*Result, error) {
	if g == nil {
		return nil, diag.Configf("graph", "no project graph supplied")
	}
	if req.Start.IsZero() {
		return nil, diag.Configf("start", "a schedule start date is required")
	}
	if cal == nil {
		cal = calendar.Default()
	}

	scope := g.Subset(req.Scope)
	if req.Target == "" || !scope.Has(req.Target) {
		return nil, diag.Configf("target", "task %q is not in scope", req.Target)
	}

	ancestors := scope.Ancestors(req.Target)
	closure := scope.Filter(func(n *graph.Node) bool {
		return n.ID == req.Target || ancestors[n.ID]
	})

	optimistic, err := rcpsp.Run(closure, cal, rcpsp.Options{
		Start:  req.Start,
		Policy: rcpsp.DefaultPolicy{},
		Anchor: req.Anchor,
	})
	if err != nil {
		return nil, fmt.Errorf("optimistic schedule: %w", err)
	}
	pessimistic, err := rcpsp.Run(scope, cal, rcpsp.Options{
		Start:  req.Start,
		Policy: PessimisticPolicy{Target: req.Target, Ancestors: ancestors},
		Anchor: req.Anchor,
	})
	if err != nil {
		return nil, fmt.Errorf("pessimistic schedule: %w", err)
	}
	analysis, err := cpm.AnalyzeWith(closure, cpm.Options{Anchor: req.Anchor})
	if err != nil {
		return nil, fmt.Errorf("analyze target chain: %w", err)
	}

	opt := optimistic.Entry(req.Target)
	pes := pessimistic.Entry(req.Target)

	res := &Result{
		Target:                 req.Target,
		Start:                  optimistic.Start,
		OptimisticWorkDays:     opt.Finish,
		PessimisticWorkDays:    pes.Finish,
		OptimisticDate:         opt.EndDate,
		PessimisticDate:        pes.EndDate,
		OptimisticDays:         span(optimistic.Start, opt),
		PessimisticDays:        span(pessimistic.Start, pes),
		OptimisticCriticalPath: cpm.ChainTo(analysis, closure, req.Target),
		PessimisticBlockers:    blockers(pessimistic, ancestors, req.Target),
		HasCycle:               optimistic.HasCycle || pessimistic.HasCycle,
		Cyclic:                 pessimistic.Cyclic,
		Warnings:               diag.Merge(optimistic.Warnings, pessimistic.Warnings),
		Optimistic:             optimistic,
		Pessimistic:            pessimistic,
	}

	// Competing work can only delay the target.
	if res.PessimisticWorkDays < res.OptimisticWorkDays {
		res.PessimisticWorkDays = res.OptimisticWorkDays
	}
	if res.PessimisticDays < res.OptimisticDays {
		res.PessimisticDays = res.OptimisticDays
	}
	if res.PessimisticDate.Before(res.OptimisticDate) {
		res.PessimisticDate = res.OptimisticDate
	}

	res.Nodes = snapshot(scope, res, ancestors)
	return res, nil
}

// span counts calendar days from the schedule start through the entry's end
// date, inclusive. A task that finishes at offset 0 takes no days.
func span(start time.Time, e *rcpsp.Entry) int {
	if e.Finish <= 0 {
		return 0
	}
	return calendar.Span(start, e.EndDate) + 1
}

// blockers lists unrelated tasks that share an assignee with the target or
// one of its ancestors and start strictly before that task, in schedule order.
func blockers(s *rcpsp.Schedule, ancestors map[string]bool, target string) []string {
	// A blocker only has to precede one chain task, so keep the latest start
	// per assignee.
	latest := make(map[string]float64)
	for _, id := range s.Sequence {
		e := s.Entry(id)
		if (id != target && !ancestors[id]) || e.Assignee == "" {
			continue
		}
		if at, ok := latest[e.Assignee]; !ok || e.Start > at {
			latest[e.Assignee] = e.Start
		}
	}

	var out []string
	for _, id := range s.Sequence {
		if id == target || ancestors[id] {
			continue
		}
		e := s.Entry(id)
		if at, ok := latest[e.Assignee]; ok && e.Start < at-eps {
			out = append(out, id)
		}
	}
	return out
}

func snapshot(g *graph.ProjectGraph, res *Result, ancestors map[string]bool) []Node {
	critical := make(map[string]bool, len(res.OptimisticCriticalPath))
	for _, id := range res.OptimisticCriticalPath {
		critical[id] = true
	}
	blocker := make(map[string]bool, len(res.PessimisticBlockers))
	for _, id := range res.PessimisticBlockers {
		blocker[id] = true
	}
	cyclic := make(map[string]bool, len(res.Cyclic))
	for _, id := range res.Cyclic {
		cyclic[id] = true
	}

	nodes := make([]Node, 0, len(g.Order))
	for _, id := range g.Order {
		n := g.Nodes[id]
		nodes = append(nodes, Node{
			ID:        n.ID,
			Name:      n.Name,
			Assignee:  n.Assignee,
			Duration:  n.Duration,
			DependsOn: n.Predecessors,
			Target:    id == res.Target,
			Ancestor:  ancestors[id],
			Critical:  critical[id],
			Blocker:   blocker[id],
			Cyclic:    cyclic[id],
		})
	}
	return nodes
}
