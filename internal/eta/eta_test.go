package eta

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-01-05 is a Monday.
var monday = calendar.Date(2026, time.January, 5)

func build(t *testing.T, tasks []graph.Task) *graph.ProjectGraph {
	t.Helper()
	g, err := graph.Build(tasks, nil)
	require.NoError(t, err)
	return g
}

func estimate(t *testing.T, g *graph.ProjectGraph, target string) *Result {
	t.Helper()
	res, err := Estimate(g, calendar.Default(), Request{Target: target, Start: monday})
	require.NoError(t, err)
	return res
}

func TestEstimate_SiblingCompetesForAssignee(t *testing.T) {
	g := build(t, []graph.Task{
		{ID: "A", DurationDays: 2, Assignee: "alice"},
		{ID: "B", DurationDays: 3, Assignee: "alice", DependsOn: []string{"A"}},
		{ID: "C", DurationDays: 1, Assignee: "alice", DependsOn: []string{"A"}},
	})
	res := estimate(t, g, "B")

	assert.Equal(t, 5.0, res.OptimisticWorkDays)
	assert.Equal(t, 5, res.OptimisticDays)
	assert.Equal(t, calendar.Date(2026, time.January, 9), res.OptimisticDate)
	assert.Equal(t, []string{"A", "B"}, res.OptimisticCriticalPath)

	// C can start as early as B and is unrelated, so it goes first.
	assert.Equal(t, 6.0, res.PessimisticWorkDays)
	assert.Equal(t, 8, res.PessimisticDays)
	assert.Equal(t, calendar.Date(2026, time.January, 12), res.PessimisticDate)
	assert.Equal(t, []string{"C"}, res.PessimisticBlockers)
	assert.False(t, res.HasCycle)
}

func TestEstimate_UnrelatedWorkOnSameAssignee(t *testing.T) {
	g := build(t, []graph.Task{
		{ID: "T", DurationDays: 1, Assignee: "alice"},
		{ID: "O", DurationDays: 3, Assignee: "alice"},
		{ID: "P", DurationDays: 4, Assignee: "bob"},
	})
	res := estimate(t, g, "T")

	assert.Equal(t, 1.0, res.OptimisticWorkDays)
	assert.Equal(t, 4.0, res.PessimisticWorkDays)
	assert.Equal(t, []string{"O"}, res.PessimisticBlockers, "bob never shares an assignee with the chain")
}

func TestEstimate_PessimisticNeverBeatsOptimistic(t *testing.T) {
	g := build(t, []graph.Task{
		{ID: "a", DurationDays: 1, Assignee: "alice"},
		{ID: "b", DurationDays: 2, Assignee: "bob"},
		{ID: "c", DurationDays: 1.5, Assignee: "alice", DependsOn: []string{"a"}},
		{ID: "d", DurationDays: 2, Assignee: "bob", DependsOn: []string{"a", "b"}},
		{ID: "e", DurationDays: 0.5, DependsOn: []string{"c"}},
		{ID: "f", DurationDays: 3, Assignee: "alice"},
		{ID: "g", DurationDays: 1, Assignee: "carol", DependsOn: []string{"d", "e"}},
	})
	for _, id := range g.Order {
		res := estimate(t, g, id)
		assert.GreaterOrEqual(t, res.PessimisticWorkDays, res.OptimisticWorkDays, id)
		assert.GreaterOrEqual(t, res.PessimisticDays, res.OptimisticDays, id)
		assert.False(t, res.PessimisticDate.Before(res.OptimisticDate), id)
	}
}

func TestEstimate_TargetNotInScope(t *testing.T) {
	g := build(t, []graph.Task{{ID: "a", DurationDays: 1}, {ID: "b", DurationDays: 1}})

	_, err := Estimate(g, nil, Request{Target: "missing", Start: monday})
	var cfgErr *diag.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "target", cfgErr.Field)

	_, err = Estimate(g, nil, Request{Target: "a", Scope: []string{"b"}, Start: monday})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "target", cfgErr.Field)
}

func TestEstimate_RequiresStart(t *testing.T) {
	g := build(t, []graph.Task{{ID: "a", DurationDays: 1}})
	_, err := Estimate(g, nil, Request{Target: "a"})
	assert.True(t, diag.IsConfiguration(err))
}

func TestEstimate_CycleBestEffort(t *testing.T) {
	g := build(t, []graph.Task{
		{ID: "A", DurationDays: 1, Assignee: "alice", DependsOn: []string{"B"}},
		{ID: "B", DurationDays: 1, Assignee: "alice", DependsOn: []string{"A"}},
		{ID: "C", DurationDays: 2, Assignee: "bob", DependsOn: []string{"A"}},
	})
	res := estimate(t, g, "C")

	assert.True(t, res.HasCycle)
	assert.Equal(t, []string{"A", "B", "C"}, res.Cyclic)
	// A is forced, then B and C run side by side after it.
	assert.Equal(t, 3.0, res.OptimisticWorkDays)
	assert.Empty(t, res.OptimisticCriticalPath)

	var found bool
	for _, w := range res.Warnings {
		if w.Kind == diag.KindCycle {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEstimate_ZeroDurationTarget(t *testing.T) {
	g := build(t, []graph.Task{{ID: "m", DurationDays: 0}})
	res := estimate(t, g, "m")
	assert.Equal(t, 0, res.OptimisticDays)
	assert.Equal(t, 0, res.PessimisticDays)
}

func TestEstimate_NodeSnapshot(t *testing.T) {
	g := build(t, []graph.Task{
		{ID: "A", DurationDays: 2, Assignee: "alice"},
		{ID: "B", DurationDays: 3, Assignee: "alice", DependsOn: []string{"A"}},
		{ID: "C", DurationDays: 1, Assignee: "alice", DependsOn: []string{"A"}},
	})
	res := estimate(t, g, "B")

	byID := make(map[string]Node)
	for _, n := range res.Nodes {
		byID[n.ID] = n
	}
	require.Len(t, byID, 3)
	assert.True(t, byID["A"].Ancestor)
	assert.True(t, byID["A"].Critical)
	assert.True(t, byID["B"].Target)
	assert.True(t, byID["C"].Blocker)
	assert.False(t, byID["C"].Ancestor)
	assert.Equal(t, []string{"A"}, byID["B"].DependsOn)
}

func TestResult_MarshalJSON(t *testing.T) {
	g := build(t, []graph.Task{{ID: "a", DurationDays: 2, Assignee: "alice"}})
	data, err := json.Marshal(estimate(t, g, "a"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2026-01-05", out["start_date"])
	assert.Equal(t, "2026-01-06", out["optimistic_date"])
	assert.Equal(t, float64(2), out["optimistic_days"])
	assert.Contains(t, out, "pessimistic_schedule")
}
