package eta

import (
	"encoding/json"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/rcpsp"
)

// Request describes one estimate.
type Request struct {
	Scope  []string // task ids to consider; empty means the whole graph
	Target string
	Start  time.Time
	Anchor cpm.Anchor
}

// Node is a snapshot of one scope task annotated for visualization.
type Node struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Assignee  string   `json:"assignee,omitempty"`
	Duration  float64  `json:"duration"`
	DependsOn []string `json:"dependencies,omitempty"`
	Target    bool     `json:"is_target,omitempty"`
	Ancestor  bool     `json:"is_ancestor,omitempty"`
	Critical  bool     `json:"is_critical,omitempty"`
	Blocker   bool     `json:"is_blocker,omitempty"`
	Cyclic    bool     `json:"is_cyclic,omitempty"`
}

// Result is an optimistic/pessimistic completion range for one target.
type Result struct {
	Target string    `json:"target"`
	Start  time.Time `json:"-"`

	// Days count calendar days from the aligned start through the target's
	// end date, inclusive. WorkDays are the target's finish offsets.
	OptimisticDays      int     `json:"optimistic_days"`
	PessimisticDays     int     `json:"pessimistic_days"`
	OptimisticWorkDays  float64 `json:"optimistic_work_days"`
	PessimisticWorkDays float64 `json:"pessimistic_work_days"`

	OptimisticDate  time.Time `json:"-"`
	PessimisticDate time.Time `json:"-"`

	OptimisticCriticalPath []string `json:"optimistic_critical_path"`
	PessimisticBlockers    []string `json:"pessimistic_blockers"`

	Nodes    []Node         `json:"nodes"`
	HasCycle bool           `json:"has_cycle"`
	Cyclic   []string       `json:"cyclic_nodes"`
	Warnings []diag.Warning `json:"warnings,omitempty"`

	Optimistic  *rcpsp.Schedule `json:"optimistic_schedule"`
	Pessimistic *rcpsp.Schedule `json:"pessimistic_schedule"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		*alias
		Start           string `json:"start_date"`
		OptimisticDate  string `json:"optimistic_date"`
		PessimisticDate string `json:"pessimistic_date"`
	}{
		alias:           (*alias)(r),
		Start:           calendar.Format(r.Start),
		OptimisticDate:  calendar.Format(r.OptimisticDate),
		PessimisticDate: calendar.Format(r.PessimisticDate),
	})
}
