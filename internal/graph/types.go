package graph

import "github.com/joshharrison/sprintloom/internal/diag"

// Task is a normalized input record. Dates are informational only and never
// drive scheduling.
type Task struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	DurationDays float64  `json:"duration_days" yaml:"duration_days"`
	Assignee     string   `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DependsOn    []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Status       string   `json:"status,omitempty" yaml:"status,omitempty"`
	StartDate    string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	DueDate      string   `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

// Dependency means TaskID cannot start before DependsOnID finishes.
type Dependency struct {
	TaskID      string `json:"task_id" yaml:"task_id"`
	DependsOnID string `json:"depends_on_id" yaml:"depends_on_id"`
}

// Node is a task inside a ProjectGraph.
type Node struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Duration     float64  `json:"duration"`
	Assignee     string   `json:"assignee,omitempty"`
	Predecessors []string `json:"predecessors"` // tasks this one depends on
	Successors   []string `json:"successors"`   // tasks that depend on this one
	Index        int      `json:"-"`            // position in the input
}

// ProjectGraph is a dependency graph of tasks. It may contain cycles; use
// TopoSort to order it.
type ProjectGraph struct {
	Nodes    map[string]*Node
	Order    []string       // node ids in input order
	Roots    []string       // nodes with no predecessors
	Leaves   []string       // nodes with no successors
	Warnings []diag.Warning // edges dropped while building
}

// Ordering is the result of a topological sort.
type Ordering struct {
	Order    []string `json:"order"`
	HasCycle bool     `json:"has_cycle"`
	// Cyclic is every node Kahn could not release: cycle members plus
	// anything downstream of one.
	Cyclic []string `json:"cyclic_nodes,omitempty"`
	// CycleMembers is the subset of Cyclic that lies on a cycle itself.
	CycleMembers []string `json:"cycle_members,omitempty"`
}
