package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/eta"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/rcpsp"
	"github.com/joshharrison/sprintloom/internal/timeline"
	"github.com/joshharrison/sprintloom/internal/ui"
)

// Reporter renders engine results for the terminal.
type Reporter struct {
	Graph *graph.ProjectGraph // used for task names; may be nil
}

// New creates a new Reporter.
func New(g *graph.ProjectGraph) *Reporter {
	return &Reporter{Graph: g}
}

// JSON returns machine-readable output for any engine result.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// PrintCPM writes the wave breakdown and critical path of an analysis.
func (r *Reporter) PrintCPM(w io.Writer, res *cpm.CPMResult) {
	fmt.Fprintf(w, "%s — %d tasks in %d waves, %s working days\n\n",
		ui.BoldCyan("📐 Critical path"),
		len(res.Tasks), len(res.Waves), ui.Bold(days(res.TotalDuration)))

	for _, wave := range res.Waves {
		marker := ""
		if wave.IsCritical {
			marker = " " + ui.BoldYellow("⚡")
		}
		fmt.Fprintf(w, "  🌊 %s %d  %s%s\n",
			ui.BoldWhite("WAVE"), wave.Index+1,
			ui.Dim(fmt.Sprintf("(day %s)", days(wave.Start))), marker)

		for _, id := range wave.TaskIDs {
			ts := res.Tasks[id]
			icon := ui.StatusIcon("")
			if ts.IsCritical {
				icon = ui.StatusIcon("critical")
			}
			fmt.Fprintf(w, "    %s %-8s %-40s %s → %s  slack %s\n",
				icon, ui.BoldMagenta(id), truncate(r.name(id), 40),
				days(ts.ES), days(ts.EF), ui.Slack(ts.Slack))
		}
		fmt.Fprintln(w)
	}

	if len(res.Cyclic) > 0 {
		fmt.Fprintf(w, "  %s %s\n\n", ui.StatusIcon("cyclic"),
			ui.BoldRed("Not timed (cycle): "+strings.Join(res.Cyclic, ", ")))
	}

	if len(res.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical:  %s\n",
			ui.BoldYellow("⚡ "+strings.Join(res.CriticalPath, " → ")))
	}
	r.PrintWarnings(w, res.Warnings)
}

// PrintSchedule writes per-assignee timelines of a resource-constrained
// schedule.
func (r *Reporter) PrintSchedule(w io.Writer, s *rcpsp.Schedule) {
	fmt.Fprintf(w, "%s — starts %s, completes %s (%s working days)\n\n",
		ui.BoldCyan("📅 Schedule"),
		ui.Bold(calendar.Format(s.Start)),
		ui.BoldGreen(calendar.Format(s.Completion)),
		days(s.Makespan))
	r.printTimelines(w, s.Timelines)
	r.PrintWarnings(w, s.Warnings)
}

func (r *Reporter) printTimelines(w io.Writer, timelines map[string][]*rcpsp.Entry) {
	for _, who := range assignees(timelines) {
		entries := timelines[who]
		label := ui.Assignee(who)
		if who == rcpsp.UnassignedKey {
			label = ui.Dim(who)
		}
		fmt.Fprintf(w, "  👤 %s  %s\n", label, ui.Dim(fmt.Sprintf("(%d tasks)", len(entries))))
		for _, e := range entries {
			r.printEntry(w, e)
		}
		fmt.Fprintln(w)
	}
}

// printEntry writes a single scheduled task line.
func (r *Reporter) printEntry(w io.Writer, e *rcpsp.Entry) {
	icon := ui.StatusIcon("")
	if e.Forced {
		icon = ui.StatusIcon("forced")
	}
	name := e.Name
	if name == "" {
		name = r.name(e.TaskID)
	}
	fmt.Fprintf(w, "    %s %-8s %-40s %s → %s  %s\n",
		icon, ui.BoldMagenta(e.TaskID), truncate(name, 40),
		calendar.Format(e.StartDate), calendar.Format(e.EndDate),
		ui.Dim(fmt.Sprintf("[%sd]", days(e.Duration))))
}

// PrintETA writes the completion range of a target.
func (r *Reporter) PrintETA(w io.Writer, res *eta.Result) {
	fmt.Fprintf(w, "\n%s %s %s\n", ui.StatusIcon("target"), ui.BoldCyan("ETA for"), ui.BoldMagenta(res.Target))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(w, "Start:        %s\n", ui.Dim(calendar.Format(res.Start)))
	fmt.Fprintf(w, "Optimistic:   %s  %s\n",
		ui.BoldGreen(calendar.Format(res.OptimisticDate)),
		ui.Dim(fmt.Sprintf("(%d days, %s working)", res.OptimisticDays, days(res.OptimisticWorkDays))))
	fmt.Fprintf(w, "Pessimistic:  %s  %s\n",
		ui.BoldRed(calendar.Format(res.PessimisticDate)),
		ui.Dim(fmt.Sprintf("(%d days, %s working)", res.PessimisticDays, days(res.PessimisticWorkDays))))

	if len(res.OptimisticCriticalPath) > 0 {
		fmt.Fprintf(w, "Critical:     %s\n",
			ui.BoldYellow("⚡ "+strings.Join(res.OptimisticCriticalPath, " → ")))
	}
	if len(res.PessimisticBlockers) > 0 {
		fmt.Fprintf(w, "\n%s\n", ui.BoldRed("Blockers:"))
		for _, id := range res.PessimisticBlockers {
			fmt.Fprintf(w, "  %s %s  %s\n", ui.StatusIcon("blocker"), ui.BoldMagenta(id), r.name(id))
		}
	}
	if len(res.Cyclic) > 0 {
		fmt.Fprintf(w, "\n  %s %s\n", ui.StatusIcon("cyclic"),
			ui.BoldRed("Cycle: "+strings.Join(res.Cyclic, ", ")))
	}
	r.PrintWarnings(w, res.Warnings)
}

// PrintTimeline writes a sprint timeline.
func (r *Reporter) PrintTimeline(w io.Writer, t *timeline.Timeline) {
	r.PrintSchedule(w, t.Schedule)
}

// PrintWhatIf writes how removing one task moves the sprint completion.
// The output is also returned as a string for reuse.
func (r *Reporter) PrintWhatIf(w io.Writer, res *timeline.WhatIfResult) string {
	var b strings.Builder
	mw := io.MultiWriter(w, &b)

	fmt.Fprintf(mw, "\n%s %s %s\n", "🔀", ui.BoldCyan("What if we drop"), ui.BoldMagenta(res.Removed))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	if name := r.name(res.Removed); name != "" {
		fmt.Fprintf(mw, "Task:    %s\n", ui.Dim(name))
	}
	fmt.Fprintf(mw, "Before:  %s\n", ui.Bold(calendar.Format(res.CompletionBefore)))
	fmt.Fprintf(mw, "After:   %s\n", ui.Bold(calendar.Format(res.CompletionAfter)))
	fmt.Fprintf(mw, "Delta:   %s\n", ui.Delta(res.DeltaDays))
	if res.DeltaDays < 0 {
		fmt.Fprintf(mw, "%s\n", ui.Yellow("Removing this task reorders the remaining work and finishes later."))
	}
	return b.String()
}

// PrintWarnings lists non-fatal warnings, if any.
func (r *Reporter) PrintWarnings(w io.Writer, warnings []diag.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.Yellow("Warnings:"))
	for _, wn := range warnings {
		fmt.Fprintf(w, "  %s %s\n", ui.Yellow("!"), wn.String())
	}
}

func (r *Reporter) name(id string) string {
	if r.Graph == nil {
		return ""
	}
	if n, ok := r.Graph.Nodes[id]; ok {
		return n.Name
	}
	return ""
}

// assignees returns timeline keys sorted, with the unassigned bucket last.
func assignees(timelines map[string][]*rcpsp.Entry) []string {
	keys := make([]string, 0, len(timelines))
	for k := range timelines {
		if k != rcpsp.UnassignedKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := timelines[rcpsp.UnassignedKey]; ok {
		keys = append(keys, rcpsp.UnassignedKey)
	}
	return keys
}

func days(d float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", d), "0"), ".")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
