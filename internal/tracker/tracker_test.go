package tracker

import (
	"math"
	"testing"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
  "total": 3,
  "issues": [
    {
      "key": "PAY-1",
      "fields": {
        "summary": "Schema migration",
        "project": {"key": "PAY"},
        "status": {"name": "In Progress"},
        "assignee": {"displayName": "Alice", "accountId": "a-1"},
        "customfield_10016": 3,
        "sprint": {"name": "Sprint 7", "startDate": "2026-01-05T09:00:00.000Z", "endDate": "2026-01-16T17:00:00.000Z"}
      }
    },
    {
      "key": "PAY-2",
      "fields": {
        "summary": "API endpoint",
        "assignee": {"accountId": "b-2"},
        "aggregatetimeoriginalestimate": 57600,
        "duedate": "2026-01-20",
        "issuelinks": [
          {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"}, "inwardIssue": {"key": "PAY-1"}},
          {"type": {"name": "Relates", "inward": "relates to", "outward": "relates to"}, "inwardIssue": {"key": "PAY-3"}},
          {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"}, "outwardIssue": {"key": "PAY-3"}}
        ],
        "sprint": [{"name": "Sprint 7", "startDate": "2026-01-02", "endDate": "2026-01-16"}]
      }
    },
    {
      "key": "PAY-3",
      "fields": {
        "summary": "Docs",
        "assignee": null,
        "timetracking": {"originalEstimateSeconds": 14400},
        "issuelinks": [
          {"type": {"name": "Dependency", "inward": "depends on"}, "inwardIssue": {"key": "PAY-2"}}
        ]
      }
    }
  ]
}`

func TestParseIssues_SearchResponse(t *testing.T) {
	b, err := ParseIssues([]byte(searchResponse), Options{})
	require.NoError(t, err)

	assert.Equal(t, "PAY", b.Project)
	require.Len(t, b.Tasks, 3)

	one, two, three := b.Tasks[0], b.Tasks[1], b.Tasks[2]
	assert.Equal(t, "PAY-1", one.ID)
	assert.Equal(t, "Schema migration", one.Name)
	assert.Equal(t, 3.0, one.DurationDays)
	assert.Equal(t, "Alice", one.Assignee)
	assert.Equal(t, "In Progress", one.Status)

	assert.Equal(t, 2.0, two.DurationDays, "16h at 8h per day")
	assert.Equal(t, "b-2", two.Assignee, "falls back to the account id")
	assert.Equal(t, []string{"PAY-1"}, two.DependsOn)
	assert.Equal(t, "2026-01-20", two.DueDate)

	assert.Equal(t, 0.5, three.DurationDays)
	assert.Empty(t, three.Assignee)
	assert.Equal(t, []string{"PAY-2"}, three.DependsOn)

	assert.Equal(t, "Sprint 7", b.Sprint.Name)
	assert.Equal(t, calendar.Date(2026, time.January, 2), b.Sprint.Start)
	assert.Equal(t, calendar.Date(2026, time.January, 16), b.Sprint.End)

	_, err = graph.Build(b.Tasks, nil)
	require.NoError(t, err)
}

func TestParseIssues_BareArrayAndOptions(t *testing.T) {
	data := `[
	  {"key": "X-1", "fields": {"points": "5", "aggregatetimeoriginalestimate": 3600}},
	  {"key": "X-2", "fields": {"aggregatetimeoriginalestimate": 21600}},
	  {"key": "X-3", "fields": {}},
	  {"key": "X-4", "fields": {"points": -2}}
	]`
	b, err := ParseIssues([]byte(data), Options{StoryPointsField: "points", HoursPerDay: 6})
	require.NoError(t, err)
	require.Len(t, b.Tasks, 4)

	assert.Equal(t, 5.0, b.Tasks[0].DurationDays)
	assert.Equal(t, 1.0, b.Tasks[1].DurationDays)
	assert.Equal(t, 1.0, b.Tasks[2].DurationDays, "no estimate defaults to one day")
	assert.Equal(t, 0.0, b.Tasks[3].DurationDays, "negative points clamp to zero")
	assert.Equal(t, "X", b.Project)
	assert.True(t, b.Sprint.Start.IsZero())
}

func TestParseIssues_SkipsBadIssues(t *testing.T) {
	data := `[{"fields": {}}, {"key": "A-1"}, {"key": "A-1"}]`
	b, err := ParseIssues([]byte(data), Options{})
	require.NoError(t, err)
	assert.Len(t, b.Tasks, 1)
	assert.Len(t, b.Warnings, 2)
}

func TestParseIssues_Invalid(t *testing.T) {
	_, err := ParseIssues([]byte(`{"issues": `), Options{})
	assert.Error(t, err)

	_, err = ParseIssues([]byte(`{"total": 0}`), Options{})
	assert.Error(t, err)

	_, err = ParseIssues([]byte(`[{"key": "A-1", "fields": {"sprint": {"startDate": "soon"}}}]`), Options{})
	assert.Error(t, err)
}

func TestApplyCapacity(t *testing.T) {
	tasks := []graph.Task{
		{ID: "a", DurationDays: 3, Assignee: "alice"},
		{ID: "b", DurationDays: 0.2, Assignee: "alice"},
		{ID: "c", DurationDays: 3, Assignee: "bob"},
		{ID: "d", DurationDays: 2.5},
	}
	out := ApplyCapacity(tasks, map[string]float64{"alice": 6, "bob": 0})

	assert.Equal(t, 4.0, out[0].DurationDays, "3 * 8/6 = 4")
	assert.Equal(t, 1.0, out[1].DurationDays, "never below one day")
	assert.Equal(t, 3.0, out[2].DurationDays, "zero capacity is ignored")
	assert.Equal(t, 2.5, out[3].DurationDays)
	assert.Equal(t, 3.0, tasks[0].DurationDays, "input untouched")
}

func TestApplyCapacity_KeepsInvalidDurations(t *testing.T) {
	tasks := []graph.Task{
		{ID: "neg", DurationDays: -3, Assignee: "alice"},
		{ID: "nan", DurationDays: math.NaN(), Assignee: "alice"},
		{ID: "inf", DurationDays: math.Inf(1), Assignee: "alice"},
	}
	out := ApplyCapacity(tasks, map[string]float64{"alice": 6})

	assert.Equal(t, -3.0, out[0].DurationDays)
	assert.True(t, math.IsNaN(out[1].DurationDays))
	assert.True(t, math.IsInf(out[2].DurationDays, 1))

	_, err := graph.Build(out, nil)
	assert.True(t, diag.IsConfiguration(err), "graph.Build must still reject them")
}
