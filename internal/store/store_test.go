package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sprintloom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC) }
	return s
}

func TestSaveAndLoadProject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := Project{
		Key:         "PAY",
		Name:        "Payments",
		SprintName:  "Sprint 7",
		SprintStart: calendar.Date(2026, time.January, 5),
		SprintEnd:   calendar.Date(2026, time.January, 16),
	}
	tasks := []graph.Task{
		{ID: "PAY-2", Name: "API", DurationDays: 1.5, Assignee: "bob", DependsOn: []string{"PAY-1", "EXT-9"}},
		{ID: "PAY-1", Name: "Schema", DurationDays: 2, Assignee: "alice", Status: "In Progress", DueDate: "2026-01-09"},
	}
	require.NoError(t, s.SaveProject(ctx, p, tasks))

	got, loaded, err := s.LoadProject(ctx, "PAY")
	require.NoError(t, err)
	assert.Equal(t, "Payments", got.Name)
	assert.Equal(t, p.SprintStart, got.SprintStart)
	assert.Equal(t, p.SprintEnd, got.SprintEnd)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), got.UpdatedAt)

	require.Len(t, loaded, 2)
	assert.Equal(t, "PAY-2", loaded[0].ID, "import order is kept")
	assert.ElementsMatch(t, []string{"PAY-1", "EXT-9"}, loaded[0].DependsOn)
	assert.Equal(t, tasks[1], loaded[1])
}

func TestSaveProject_ReplacesTaskSet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	p := Project{Key: "PAY"}

	require.NoError(t, s.SaveProject(ctx, Project{Key: "OPS"}, []graph.Task{{ID: "a", DurationDays: 2}}))
	require.NoError(t, s.SaveProject(ctx, p, []graph.Task{
		{ID: "a", DurationDays: 1},
		{ID: "b", DurationDays: 1, DependsOn: []string{"a"}},
	}))
	require.NoError(t, s.SaveProject(ctx, p, []graph.Task{
		{ID: "b", DurationDays: 3},
		{ID: "c", DurationDays: 1, DependsOn: []string{"b"}},
	}))

	_, tasks, err := s.LoadProject(ctx, "PAY")
	require.NoError(t, err)
	require.Len(t, tasks, 2, "tasks missing from a re-import are dropped")

	byID := make(map[string]graph.Task)
	for _, task := range tasks {
		byID[task.ID] = task
	}
	assert.NotContains(t, byID, "a")
	assert.Equal(t, 3.0, byID["b"].DurationDays)
	assert.Empty(t, byID["b"].DependsOn)
	assert.Equal(t, []string{"b"}, byID["c"].DependsOn)

	_, other, err := s.LoadProject(ctx, "OPS")
	require.NoError(t, err)
	require.Len(t, other, 1, "other projects are untouched")
	assert.Equal(t, "a", other[0].ID)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.SaveProject(ctx, Project{Key: "ZED"}, nil))
	require.NoError(t, s.SaveProject(ctx, Project{Key: "ABC"}, nil))

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "ABC", projects[0].Key)
	assert.True(t, projects[0].SprintStart.IsZero())
}

func TestLoadProject_Unknown(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.LoadProject(context.Background(), "NOPE")
	assert.True(t, diag.IsConfiguration(err))
}

func TestSaveProject_RequiresKey(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveProject(context.Background(), Project{}, nil)
	assert.True(t, diag.IsConfiguration(err))
}
