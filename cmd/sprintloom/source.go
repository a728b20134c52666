package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/store"
	"github.com/joshharrison/sprintloom/internal/taskfile"
	"github.com/joshharrison/sprintloom/internal/tracker"
)

// source is a task set read from one of the supported inputs.
type source struct {
	Name     string // file or database the tasks came from
	Project  string
	Sprint   string
	Start    time.Time
	Tasks    []graph.Task
	Deps     []graph.Dependency
	Capacity map[string]float64 // from a task file; overrides config
	Warnings []diag.Warning
}

// input is everything a command needs to call the engine.
type input struct {
	src    *source
	graph  *graph.ProjectGraph
	cal    *calendar.Calendar
	start  time.Time
	anchor cpm.Anchor
}

// prepare loads the task source and resolves calendar, start and anchor.
func prepare(ctx context.Context) (*input, error) {
	cal, err := cfg.BuildCalendar()
	if err != nil {
		return nil, err
	}
	anchor, err := cfg.Anchor()
	if err != nil {
		return nil, err
	}

	src, err := loadSource(ctx)
	if err != nil {
		return nil, err
	}
	logWarnings(src.Warnings)

	start, err := startDate(src)
	if err != nil {
		return nil, err
	}

	tasks := src.Tasks
	if caps := capacities(tasks, src.Capacity); len(caps) > 0 {
		zap.L().Debug("applying capacity", zap.Int("assignees", len(caps)))
		tasks = tracker.ApplyCapacity(tasks, caps)
	}

	g, err := graph.Build(tasks, src.Deps)
	if err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}
	if g.TaskCount() == 0 {
		return nil, fmt.Errorf("no tasks found in %s", src.Name)
	}
	logWarnings(g.Warnings)

	remember(src.Project, src.Sprint, src.Name)

	return &input{src: src, graph: g, cal: cal, start: start, anchor: anchor}, nil
}

// loadSource reads --tasks, then --issues, then the stored project.
func loadSource(ctx context.Context) (*source, error) {
	switch {
	case flagTasks != "":
		f, err := taskfile.Load(flagTasks)
		if err != nil {
			return nil, err
		}
		start, err := f.StartDate()
		if err != nil {
			return nil, err
		}
		return &source{
			Name:     flagTasks,
			Project:  f.Project,
			Start:    start,
			Tasks:    f.Tasks,
			Deps:     f.Dependencies,
			Capacity: f.Capacity,
		}, nil

	case flagIssues != "":
		data, err := os.ReadFile(flagIssues)
		if err != nil {
			return nil, fmt.Errorf("read export: %w", err)
		}
		batch, err := tracker.ParseIssues(data, cfg.TrackerOptions())
		if err != nil {
			return nil, fmt.Errorf("parse export: %w", err)
		}
		return &source{
			Name:     flagIssues,
			Project:  batch.Project,
			Sprint:   batch.Sprint.Name,
			Start:    batch.Sprint.Start,
			Tasks:    batch.Tasks,
			Warnings: batch.Warnings,
		}, nil
	}

	project := flagProject
	if sel != nil {
		project, _ = sel.Resolve(flagProject, "")
	}
	if project == "" {
		return nil, diag.Configf("project", "no task source: pass --tasks, --issues or --project")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	p, tasks, err := st.LoadProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return &source{
		Name:    cfg.Store.Path,
		Project: p.Key,
		Sprint:  p.SprintName,
		Start:   p.SprintStart,
		Tasks:   tasks,
	}, nil
}

// startDate picks --start, then the source's own start, then schedule.start.
// A zero result is rejected by the engine.
func startDate(src *source) (time.Time, error) {
	if flagStart != "" {
		d, err := calendar.ParseDate(flagStart)
		if err != nil {
			return time.Time{}, diag.Configf("start", "%v", err)
		}
		return d, nil
	}
	if !src.Start.IsZero() {
		return src.Start, nil
	}
	return cfg.StartDate()
}

// capacities returns daily hours for every assignee that has one configured.
func capacities(tasks []graph.Task, fromFile map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range tasks {
		if t.Assignee == "" {
			continue
		}
		if h, ok := fromFile[t.Assignee]; ok {
			out[t.Assignee] = h
			continue
		}
		if h, ok := cfg.CapacityFor(t.Assignee); ok {
			out[t.Assignee] = h
		}
	}
	return out
}

func remember(project, sprint, name string) {
	if sel == nil {
		return
	}
	if err := sel.Remember(project, sprint, name, time.Now()); err != nil {
		zap.L().Warn("could not save state", zap.Error(err))
	}
}
