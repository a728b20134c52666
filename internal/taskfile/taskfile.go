// Package taskfile loads task lists from YAML or JSON files.
//
// A file is either a bare list of tasks or a mapping:
//
//	project: PAY
//	start: 2026-01-05
//	capacity_hours:
//	  alice: 6
//	tasks:
//	  - id: PAY-1
//	    duration_days: 2
//	    assignee: alice
//	  - id: PAY-2
//	    duration_days: 3
//	    dependencies: [PAY-1]
//	dependencies:
//	  - {task_id: PAY-2, depends_on_id: PAY-1}
//
// JSON is accepted through the same YAML decoder.
package taskfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
)

// File is the decoded content of a task file.
type File struct {
	Project      string             `yaml:"project,omitempty"`
	Start        string             `yaml:"start,omitempty"`
	Capacity     map[string]float64 `yaml:"capacity_hours,omitempty"`
	Tasks        []graph.Task       `yaml:"tasks"`
	Dependencies []graph.Dependency `yaml:"dependencies,omitempty"`
}

// Load reads and parses a task file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes task file content.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	f := &File{}
	if len(doc.Content) == 0 {
		return f, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&f.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(f); err != nil {
			return nil, fmt.Errorf("decode task file: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse task file: expected a list of tasks or a mapping (line %d)", root.Line)
	}

	if _, err := f.StartDate(); err != nil {
		return nil, err
	}
	return f, nil
}

// StartDate returns the parsed start date, or the zero time when unset.
func (f *File) StartDate() (time.Time, error) {
	if f.Start == "" {
		return time.Time{}, nil
	}
	d, err := calendar.ParseDate(f.Start)
	if err != nil {
		return time.Time{}, diag.Configf("start", "%v", err)
	}
	return d, nil
}

// Graph builds the dependency graph of the file.
func (f *File) Graph() (*graph.ProjectGraph, error) {
	return graph.Build(f.Tasks, f.Dependencies)
}
