// Package rcpsp schedules a task graph onto assignees with a serial
// schedule-generation scheme: one task at a time, each starting once its
// predecessors have finished and its assignee is free.
package rcpsp

import (
	"encoding/json"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
)

// UnassignedKey groups tasks without an assignee in Schedule.Timelines.
const UnassignedKey = "(unassigned)"

// Options configures a scheduling run.
type Options struct {
	Start  time.Time  // required; the first working day at or after it is offset 0
	Policy Policy     // nil means DefaultPolicy
	Anchor cpm.Anchor // backward-pass anchor for the priority analysis
}

// Entry is the placement of one task.
type Entry struct {
	TaskID    string
	Name      string
	Assignee  string
	Duration  float64
	Start     float64 // working-day offset from the schedule start
	Finish    float64
	StartDate time.Time
	EndDate   time.Time
	Sequence  int // position in the order tasks were placed
	Forced    bool
}

// Schedule is the result of a scheduling run.
type Schedule struct {
	Start      time.Time // aligned to the first working day
	Entries    map[string]*Entry
	Sequence   []string
	Timelines  map[string][]*Entry
	Completion time.Time
	Makespan   float64
	HasCycle   bool
	Cyclic     []string
	Warnings   []diag.Warning
}

// Entry returns the placement of a task, or nil.
func (s *Schedule) Entry(id string) *Entry {
	return s.Entries[id]
}

type entryJSON struct {
	TaskID    string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Assignee  string  `json:"assignee,omitempty"`
	Duration  float64 `json:"duration"`
	Start     float64 `json:"start"`
	Finish    float64 `json:"finish"`
	StartDate string  `json:"scheduled_start_date"`
	EndDate   string  `json:"scheduled_end_date"`
	Sequence  int     `json:"sequence"`
	Forced    bool    `json:"forced,omitempty"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		TaskID:    e.TaskID,
		Name:      e.Name,
		Assignee:  e.Assignee,
		Duration:  e.Duration,
		Start:     e.Start,
		Finish:    e.Finish,
		StartDate: calendar.Format(e.StartDate),
		EndDate:   calendar.Format(e.EndDate),
		Sequence:  e.Sequence,
		Forced:    e.Forced,
	})
}

// MarshalJSON renders dates as YYYY-MM-DD. Map keys are sorted by
// encoding/json, so identical schedules marshal to identical bytes.
func (s *Schedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start      string              `json:"start_date"`
		Entries    map[string]*Entry   `json:"entries"`
		Sequence   []string            `json:"sequence"`
		Timelines  map[string][]*Entry `json:"assignee_timelines"`
		Completion string              `json:"overall_completion_date"`
		Makespan   float64             `json:"makespan"`
		HasCycle   bool                `json:"has_cycle"`
		Cyclic     []string            `json:"cyclic_nodes"`
		Warnings   []diag.Warning      `json:"warnings,omitempty"`
	}{
		Start:      calendar.Format(s.Start),
		Entries:    s.Entries,
		Sequence:   s.Sequence,
		Timelines:  s.Timelines,
		Completion: calendar.Format(s.Completion),
		Makespan:   s.Makespan,
		HasCycle:   s.HasCycle,
		Cyclic:     s.Cyclic,
		Warnings:   s.Warnings,
	})
}
