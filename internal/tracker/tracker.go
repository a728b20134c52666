// Package tracker normalizes issue-tracker exports (Jira search responses or
// bare issue arrays) into graph tasks.
package tracker

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
)

const (
	// DefaultStoryPointsField is the story points field of most Jira Cloud sites.
	DefaultStoryPointsField = "customfield_10016"
	// DefaultHoursPerDay converts time estimates to days.
	DefaultHoursPerDay = 8.0
)

// Options controls how issue fields map onto tasks.
type Options struct {
	StoryPointsField string
	HoursPerDay      float64
}

// Sprint is the window inferred from the issues' sprint field.
type Sprint struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Batch is the normalized content of one export.
type Batch struct {
	Project  string
	Tasks    []graph.Task
	Sprint   Sprint
	Warnings []diag.Warning
}

// ParseIssues reads an export. Issues keep their input order; dependencies
// naming issues outside the export are kept and left to graph.Build to report.
func ParseIssues(data []byte, opts Options) (*Batch, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse issues: invalid JSON")
	}
	if opts.StoryPointsField == "" {
		opts.StoryPointsField = DefaultStoryPointsField
	}
	if opts.HoursPerDay <= 0 {
		opts.HoursPerDay = DefaultHoursPerDay
	}

	root := gjson.ParseBytes(data)
	issues := root
	if !root.IsArray() {
		issues = root.Get("issues")
		if !issues.IsArray() {
			return nil, fmt.Errorf("parse issues: expected an array or an object with an issues array")
		}
	}

	b := &Batch{}
	seen := make(map[string]bool)
	var parseErr error
	issues.ForEach(func(_, issue gjson.Result) bool {
		key := issue.Get("key").String()
		if key == "" {
			b.Warnings = append(b.Warnings, diag.DataWarning("issue without a key skipped"))
			return true
		}
		if seen[key] {
			b.Warnings = append(b.Warnings, diag.DataWarning("duplicate issue %s skipped", key))
			return true
		}
		seen[key] = true

		fields := issue.Get("fields")
		if b.Project == "" {
			b.Project = projectKey(key, fields)
		}
		b.Tasks = append(b.Tasks, graph.Task{
			ID:           key,
			Name:         fields.Get("summary").String(),
			DurationDays: duration(fields, opts),
			Assignee:     assignee(fields),
			DependsOn:    dependencies(fields),
			Status:       fields.Get("status.name").String(),
			DueDate:      fields.Get("duedate").String(),
		})
		if err := b.Sprint.merge(fields.Get("sprint")); err != nil {
			parseErr = fmt.Errorf("issue %s: %w", key, err)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return b, nil
}

// duration prefers story points, then the aggregate original estimate, then
// the time-tracking original estimate, and falls back to one day.
func duration(fields gjson.Result, opts Options) float64 {
	if sp := fields.Get(gjsonEscape(opts.StoryPointsField)); sp.Exists() {
		switch sp.Type {
		case gjson.Number:
			return math.Max(0, sp.Float())
		case gjson.String:
			if v, err := strconv.ParseFloat(strings.TrimSpace(sp.Str), 64); err == nil {
				return math.Max(0, v)
			}
		}
	}
	perDay := opts.HoursPerDay * 3600
	if secs := fields.Get("aggregatetimeoriginalestimate"); secs.Type == gjson.Number && secs.Float() > 0 {
		return secs.Float() / perDay
	}
	if secs := fields.Get("timetracking.originalEstimateSeconds"); secs.Type == gjson.Number && secs.Float() > 0 {
		return secs.Float() / perDay
	}
	return 1.0
}

// dependencies returns the keys of inward "blocked by" style links.
func dependencies(fields gjson.Result) []string {
	var deps []string
	fields.Get("issuelinks").ForEach(func(_, link gjson.Result) bool {
		inward := strings.ToLower(link.Get("type.inward").String())
		name := strings.ToLower(link.Get("type.name").String())
		key := link.Get("inwardIssue.key").String()
		if key == "" {
			return true
		}
		switch {
		case strings.Contains(inward, "blocked"),
			name == "blocks", name == "dependency", name == "depends":
			deps = append(deps, key)
		}
		return true
	})
	return deps
}

func assignee(fields gjson.Result) string {
	a := fields.Get("assignee")
	if name := a.Get("displayName").String(); name != "" {
		return name
	}
	return a.Get("accountId").String()
}

func projectKey(key string, fields gjson.Result) string {
	if p := fields.Get("project.key").String(); p != "" {
		return p
	}
	if i := strings.LastIndex(key, "-"); i > 0 {
		return key[:i]
	}
	return ""
}

// merge widens the sprint window with an issue's sprint field, which is
// either a single object or a list of them.
func (s *Sprint) merge(field gjson.Result) error {
	var sprints []gjson.Result
	switch {
	case field.IsArray():
		sprints = field.Array()
	case field.IsObject():
		sprints = []gjson.Result{field}
	default:
		return nil
	}
	for _, sp := range sprints {
		if s.Name == "" {
			s.Name = sp.Get("name").String()
		}
		if v := sp.Get("startDate").String(); v != "" {
			d, err := calendar.ParseDate(v)
			if err != nil {
				return fmt.Errorf("sprint start: %w", err)
			}
			if s.Start.IsZero() || d.Before(s.Start) {
				s.Start = d
			}
		}
		if v := sp.Get("endDate").String(); v != "" {
			d, err := calendar.ParseDate(v)
			if err != nil {
				return fmt.Errorf("sprint end: %w", err)
			}
			if d.After(s.End) {
				s.End = d
			}
		}
	}
	return nil
}

// gjsonEscape escapes path metacharacters in a field name.
func gjsonEscape(field string) string {
	var sb strings.Builder
	for _, r := range field {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ApplyCapacity scales durations for assignees working fewer (or more) hours
// per day than the baseline. Scaled durations are rounded up to whole days and
// never drop below one. Negative or non-finite durations are left as they are.
// The input slice is not modified.
func ApplyCapacity(tasks []graph.Task, hoursPerDay map[string]float64) []graph.Task {
	out := make([]graph.Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		capacity, ok := hoursPerDay[out[i].Assignee]
		if !ok || capacity <= 0 {
			continue
		}
		// Invalid durations pass through so graph.Build rejects them.
		if d := out[i].DurationDays; d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		scaled := out[i].DurationDays * DefaultHoursPerDay / capacity
		out[i].DurationDays = math.Ceil(math.Max(1, scaled))
	}
	return out
}
