package rcpsp

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
)

const eps = 1e-9

// Run places every task of g. Each step offers the eligible tasks (all
// predecessors placed) to the policy; the chosen task starts at the later of
// its predecessors' finishes and its assignee's free time. When nothing is
// eligible but tasks remain, the graph has a cycle and the next task in the
// cycle-broken topological order is forced, honouring only the predecessors
// that are already placed.
func Run(g *graph.ProjectGraph, cal *calendar.Calendar, opts Options) (*Schedule, error) {
	if g == nil {
		return nil, diag.Configf("graph", "no project graph supplied")
	}
	if opts.Start.IsZero() {
		return nil, diag.Configf("start", "a schedule start date is required")
	}
	if cal == nil {
		cal = calendar.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy{}
	}

	analysis, err := cpm.AnalyzeWith(g, cpm.Options{Anchor: opts.Anchor})
	if err != nil {
		return nil, fmt.Errorf("analyze priorities: %w", err)
	}
	ordering := g.TopoSort()
	rank := make(map[string]int, len(ordering.Order))
	for i, id := range ordering.Order {
		rank[id] = i
	}

	start := cal.NextWorkingDay(opts.Start)
	s := &Schedule{
		Start:     start,
		Entries:   make(map[string]*Entry, len(g.Nodes)),
		Sequence:  make([]string, 0, len(g.Nodes)),
		Timelines: make(map[string][]*Entry),
		HasCycle:  ordering.HasCycle,
		Cyclic:    ordering.Cyclic,
		Warnings:  analysis.Warnings,
	}

	freeAt := make(map[string]float64)
	feasible := func(n *graph.Node) float64 {
		at := 0.0
		for _, p := range n.Predecessors {
			if e, ok := s.Entries[p]; ok && e.Finish > at {
				at = e.Finish
			}
		}
		if n.Assignee != "" && freeAt[n.Assignee] > at {
			at = freeAt[n.Assignee]
		}
		return at
	}
	candidate := func(n *graph.Node) Candidate {
		c := Candidate{
			ID:            n.ID,
			Assignee:      n.Assignee,
			Duration:      n.Duration,
			EarliestStart: feasible(n),
			Rank:          rank[n.ID],
		}
		if ts, ok := analysis.Tasks[n.ID]; ok {
			c.ES, c.Slack = ts.ES, ts.Slack
		} else {
			c.Cyclic = true
		}
		return c
	}

	for len(s.Sequence) < len(g.Nodes) {
		var eligible []Candidate
		for _, id := range ordering.Order {
			if _, done := s.Entries[id]; done {
				continue
			}
			n := g.Nodes[id]
			ready := true
			for _, p := range n.Predecessors {
				if _, ok := s.Entries[p]; !ok {
					ready = false
					break
				}
			}
			if ready {
				eligible = append(eligible, candidate(n))
			}
		}

		forced := false
		var pick Candidate
		if len(eligible) == 0 {
			for _, id := range ordering.Order {
				if _, done := s.Entries[id]; !done {
					pick = candidate(g.Nodes[id])
					forced = true
					break
				}
			}
		} else {
			i := policy.Choose(eligible)
			if i < 0 || i >= len(eligible) {
				return nil, fmt.Errorf("policy chose candidate %d of %d", i, len(eligible))
			}
			pick = eligible[i]
		}

		n := g.Nodes[pick.ID]
		e := &Entry{
			TaskID:   n.ID,
			Name:     n.Name,
			Assignee: n.Assignee,
			Duration: n.Duration,
			Start:    pick.EarliestStart,
			Finish:   pick.EarliestStart + n.Duration,
			Sequence: len(s.Sequence),
			Forced:   forced,
		}
		e.StartDate, e.EndDate = dates(cal, start, e.Start, e.Finish)
		if n.Assignee != "" {
			freeAt[n.Assignee] = e.Finish
		}

		s.Entries[e.TaskID] = e
		s.Sequence = append(s.Sequence, e.TaskID)
		key := e.Assignee
		if key == "" {
			key = UnassignedKey
		}
		s.Timelines[key] = append(s.Timelines[key], e)

		if e.Finish > s.Makespan {
			s.Makespan = e.Finish
		}
		if e.EndDate.After(s.Completion) {
			s.Completion = e.EndDate
		}
	}

	if s.Completion.IsZero() {
		s.Completion = start
	}
	for _, entries := range s.Timelines {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Start < entries[j].Start
		})
	}
	return s, nil
}

// dates maps working-day offsets onto calendar dates. A task occupies the
// working days floor(start) through ceil(finish)-1; zero-length tasks sit on
// their start day.
func dates(cal *calendar.Calendar, origin time.Time, start, finish float64) (time.Time, time.Time) {
	first := cal.DayAt(origin, int(math.Floor(start+eps)))
	if finish-start < eps {
		return first, first
	}
	last := cal.Advance(first, finish-math.Floor(start+eps))
	if last.Before(first) {
		last = first
	}
	return first, last
}
