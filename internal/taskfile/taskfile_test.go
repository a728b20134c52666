package taskfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Mapping(t *testing.T) {
	data := `
project: PAY
start: 2026-01-05
capacity_hours:
  alice: 6
tasks:
  - id: PAY-1
    name: Schema
    duration_days: 2
    assignee: alice
  - id: PAY-2
    duration_days: 1.5
    dependencies: [PAY-1]
  - id: PAY-3
    duration_days: 1
dependencies:
  - {task_id: PAY-3, depends_on_id: PAY-2}
`
	f, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "PAY", f.Project)
	assert.Equal(t, 6.0, f.Capacity["alice"])
	require.Len(t, f.Tasks, 3)
	assert.Equal(t, "Schema", f.Tasks[0].Name)
	assert.Equal(t, 1.5, f.Tasks[1].DurationDays)
	assert.Equal(t, []string{"PAY-1"}, f.Tasks[1].DependsOn)

	start, err := f.StartDate()
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2026, time.January, 5), start)

	g, err := f.Graph()
	require.NoError(t, err)
	assert.Equal(t, []string{"PAY-2"}, g.Nodes["PAY-3"].Predecessors)
}

func TestParse_JSONList(t *testing.T) {
	data := `[{"id": "a", "duration_days": 1}, {"id": "b", "duration_days": 2, "dependencies": ["a"]}]`
	f, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, f.Tasks, 2)
	assert.Equal(t, []string{"a"}, f.Tasks[1].DependsOn)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("tasks: [\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("just a string"))
	assert.Error(t, err)

	_, err = Parse([]byte("start: next tuesday\ntasks: []\n"))
	assert.True(t, diag.IsConfiguration(err))
}

func TestGraph_RejectsNonFiniteDuration(t *testing.T) {
	for _, d := range []string{".nan", ".inf", "-.inf"} {
		f, err := Parse([]byte("tasks:\n  - id: a\n    duration_days: " + d + "\n"))
		require.NoError(t, err, d)

		_, err = f.Graph()
		var cfgErr *diag.ConfigurationError
		if assert.ErrorAs(t, err, &cfgErr, d) {
			assert.Equal(t, "duration_days", cfgErr.Field)
		}
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Tasks)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  duration_days: 1\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Tasks, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
