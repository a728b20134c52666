package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_Wrapping(t *testing.T) {
	err := Configf("working_days", "at least one working day is required")
	wrapped := fmt.Errorf("build calendar: %w", err)

	assert.True(t, IsConfiguration(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConfiguration))

	var cfgErr *ConfigurationError
	if assert.True(t, errors.As(wrapped, &cfgErr)) {
		assert.Equal(t, "working_days", cfgErr.Field)
	}
	assert.Equal(t, "configuration error: working_days: at least one working day is required", err.Error())
}

func TestIsConfiguration_OtherErrors(t *testing.T) {
	assert.False(t, IsConfiguration(errors.New("boom")))
	assert.False(t, IsConfiguration(nil))
}

func TestMerge_DropsDuplicates(t *testing.T) {
	a := []Warning{DataWarning("edge %s -> %s dropped", "A", "Z")}
	b := []Warning{DataWarning("edge %s -> %s dropped", "A", "Z"), CycleWarning([]string{"B", "C"}, nil)}

	got := Merge(a, b)
	assert.Len(t, got, 2)
	assert.Equal(t, KindData, got[0].Kind)
	assert.Equal(t, KindCycle, got[1].Kind)
	assert.Equal(t, []string{"B", "C"}, got[1].TaskIDs)
}

func TestCycleWarning_Path(t *testing.T) {
	w := CycleWarning([]string{"a", "b", "d"}, []string{"a", "b", "a"})
	assert.Equal(t, KindCycle, w.Kind)
	assert.Equal(t, []string{"a", "b", "d"}, w.TaskIDs)
	assert.Equal(t, "dependency cycle involving a, b, d (a -> b -> a)", w.Message)

	assert.Equal(t, "dependency cycle involving a", CycleWarning([]string{"a"}, nil).Message)
}
