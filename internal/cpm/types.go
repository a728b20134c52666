package cpm

import "github.com/joshharrison/sprintloom/internal/diag"

// Anchor selects how the backward pass seeds nodes without successors.
type Anchor int

const (
	// AnchorSinkFinish seeds each sink with its own earliest finish.
	AnchorSinkFinish Anchor = iota
	// AnchorProjectFinish seeds every sink with the project makespan.
	AnchorProjectFinish
)

// Options tunes the analysis.
type Options struct {
	Anchor Anchor
}

// CPMResult holds the complete critical path analysis.
type CPMResult struct {
	Tasks         map[string]*TaskSchedule `json:"tasks"`
	CriticalPath  []string                 `json:"critical_path"` // ordered task IDs on critical path
	TotalDuration float64                  `json:"total_duration"`
	Waves         []Wave                   `json:"waves"` // parallelizable groups
	TopoOrder     []string                 `json:"topo_order"`
	HasCycle      bool                     `json:"has_cycle"`
	Cyclic        []string                 `json:"cyclic_nodes"` // excluded from timing
	CycleMembers  []string                 `json:"cycle_members,omitempty"`
	Warnings      []diag.Warning           `json:"warnings,omitempty"`
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string  `json:"id"`
	Duration   float64 `json:"duration"`
	ES         float64 `json:"es"` // earliest start
	EF         float64 `json:"ef"` // earliest finish
	LS         float64 `json:"ls"` // latest start
	LF         float64 `json:"lf"` // latest finish
	Slack      float64 `json:"slack"`
	IsCritical bool    `json:"is_critical"`
	Wave       int     `json:"wave"` // which parallel wave this belongs to
}

// Wave represents a group of tasks that can execute in parallel.
type Wave struct {
	Index      int      `json:"index"`
	Start      float64  `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"is_critical"` // true if wave contains critical path tasks
}
