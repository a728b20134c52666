// Package diag defines the error and warning taxonomy shared by the
// scheduling packages. Configuration problems are fatal and returned as
// errors; data and cycle problems are warnings embedded in results.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an invalid input that aborts a single call.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Field, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigurationError naming the offending field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is (or wraps) a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Kind classifies a non-fatal warning.
type Kind string

const (
	KindData  Kind = "data"
	KindCycle Kind = "cycle"
)

// Warning is a non-fatal problem carried alongside an otherwise valid result.
type Warning struct {
	Kind    Kind     `json:"kind"`
	TaskIDs []string `json:"task_ids,omitempty"`
	Message string   `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s warning: %s", w.Kind, w.Message)
}

// DataWarning reports malformed input that was dropped, e.g. a dangling
// dependency reference.
func DataWarning(format string, args ...any) Warning {
	return Warning{Kind: KindData, Message: fmt.Sprintf(format, args...)}
}

// CycleWarning reports the nodes left unsorted by a cycle. path, when
// given, is one concrete cycle such as [a b a].
func CycleWarning(ids, path []string) Warning {
	msg := "dependency cycle involving " + strings.Join(ids, ", ")
	if len(path) > 0 {
		msg += " (" + strings.Join(path, " -> ") + ")"
	}
	return Warning{
		Kind:    KindCycle,
		TaskIDs: append([]string(nil), ids...),
		Message: msg,
	}
}

// Merge concatenates warning lists, dropping exact duplicates while keeping
// first-seen order.
func Merge(lists ...[]Warning) []Warning {
	var out []Warning
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, w := range list {
			key := string(w.Kind) + "\x00" + w.Message
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, w)
		}
	}
	return out
}
