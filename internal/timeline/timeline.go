// Package timeline builds sprint timelines and answers what-if questions
// about removing a task from a sprint.
package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/rcpsp"
)

// Request selects the tasks of a sprint and when it starts.
type Request struct {
	Scope  []string // empty means the whole graph
	Start  time.Time
	Anchor cpm.Anchor
}

// Timeline is a resource-constrained schedule of a sprint.
type Timeline struct {
	Schedule          *rcpsp.Schedule
	PerAssignee       map[string][]*rcpsp.Entry
	PerTaskCompletion map[string]time.Time
	Completion        time.Time
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (t *Timeline) MarshalJSON() ([]byte, error) {
	perTask := make(map[string]string, len(t.PerTaskCompletion))
	for id, d := range t.PerTaskCompletion {
		perTask[id] = calendar.Format(d)
	}
	return json.Marshal(struct {
		Schedule          *rcpsp.Schedule           `json:"schedule"`
		PerAssignee       map[string][]*rcpsp.Entry `json:"assignee_timelines"`
		PerTaskCompletion map[string]string         `json:"per_task_completion"`
		Completion        string                    `json:"overall_completion_date"`
	}{
		Schedule:          t.Schedule,
		PerAssignee:       t.PerAssignee,
		PerTaskCompletion: perTask,
		Completion:        calendar.Format(t.Completion),
	})
}

// WhatIfResult compares sprint completion with and without one task.
type WhatIfResult struct {
	Removed          string
	CompletionBefore time.Time
	CompletionAfter  time.Time
	// DeltaDays is positive when removing the task finishes the sprint sooner.
	DeltaDays int
	Before    *Timeline
	After     *Timeline
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (w *WhatIfResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Removed          string    `json:"removed"`
		CompletionBefore string    `json:"completion_before"`
		CompletionAfter  string    `json:"completion_after"`
		DeltaDays        int       `json:"delta_days"`
		Before           *Timeline `json:"before"`
		After            *Timeline `json:"after"`
	}{
		Removed:          w.Removed,
		CompletionBefore: calendar.Format(w.CompletionBefore),
		CompletionAfter:  calendar.Format(w.CompletionAfter),
		DeltaDays:        w.DeltaDays,
		Before:           w.Before,
		After:            w.After,
	})
}

// Build schedules the sprint scope with the default policy.
func Build(g *graph.ProjectGraph, cal *calendar.Calendar, req Request) (*Timeline, error) {
	if g == nil {
		return nil, diag.Configf("graph", "no project graph supplied")
	}
	return build(g.Subset(req.Scope), cal, req)
}

func build(scope *graph.ProjectGraph, cal *calendar.Calendar, req Request) (*Timeline, error) {
	s, err := rcpsp.Run(scope, cal, rcpsp.Options{Start: req.Start, Anchor: req.Anchor})
	if err != nil {
		return nil, err
	}
	perTask := make(map[string]time.Time, len(s.Entries))
	for id, e := range s.Entries {
		perTask[id] = e.EndDate
	}
	return &Timeline{
		Schedule:          s,
		PerAssignee:       s.Timelines,
		PerTaskCompletion: perTask,
		Completion:        s.Completion,
	}, nil
}

// WhatIf schedules the sprint twice, once as is and once without the removed
// task, and reports how the overall completion date moves. The two runs are
// independent and execute concurrently.
func WhatIf(ctx context.Context, g *graph.ProjectGraph, cal *calendar.Calendar, req Request, removed string) (*WhatIfResult, error) {
	if g == nil {
		return nil, diag.Configf("graph", "no project graph supplied")
	}
	scope := g.Subset(req.Scope)
	if !scope.Has(removed) {
		return nil, diag.Configf("removed", "task %q is not in the sprint", removed)
	}

	var before, after *Timeline
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := build(scope, cal, req)
		if err != nil {
			return fmt.Errorf("schedule sprint: %w", err)
		}
		before = t
		return nil
	})
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := build(scope.Without(removed), cal, req)
		if err != nil {
			return fmt.Errorf("schedule sprint without %s: %w", removed, err)
		}
		after = t
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &WhatIfResult{
		Removed:          removed,
		CompletionBefore: before.Completion,
		CompletionAfter:  after.Completion,
		DeltaDays:        calendar.Span(after.Completion, before.Completion),
		Before:           before,
		After:            after,
	}, nil
}
