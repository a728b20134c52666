package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Project != "" || s.Sprint != "" {
		t.Errorf("expected empty selection, got %+v", s)
	}
	if Exists(dir) {
		t.Error("loading must not create the state file")
	}
}

func TestRememberAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".sprintloom")
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Remember("PAY", "Sprint 7", "export.json", now); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected state file after Remember")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Project != "PAY" {
		t.Errorf("expected project PAY, got %s", loaded.Project)
	}
	if loaded.Sprint != "Sprint 7" {
		t.Errorf("expected sprint 'Sprint 7', got %s", loaded.Sprint)
	}
	if !loaded.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, loaded.UpdatedAt)
	}

	// Empty values keep what was remembered.
	if err := loaded.Remember("", "Sprint 8", "", now); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if loaded.Project != "PAY" || loaded.Source != "export.json" {
		t.Errorf("empty arguments must not clear fields, got %+v", loaded)
	}
}

func TestResolve(t *testing.T) {
	s := &Selection{Project: "PAY", Sprint: "Sprint 7"}

	p, sp := s.Resolve("", "")
	if p != "PAY" || sp != "Sprint 7" {
		t.Errorf("expected remembered values, got %s/%s", p, sp)
	}

	p, sp = s.Resolve("OPS", "")
	if p != "OPS" || sp != "Sprint 7" {
		t.Errorf("explicit project must win, got %s/%s", p, sp)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	s, _ := Load(dir)
	if err := s.Remember("PAY", "", "", time.Now()); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := Clean(dir); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if Exists(dir) {
		t.Error("state file should be gone")
	}
	if err := Clean(dir); err != nil {
		t.Errorf("cleaning twice should be a no-op, got %v", err)
	}
}
