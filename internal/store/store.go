// Package store persists imported projects in a SQLite database so that
// schedules can be recomputed without re-reading tracker exports.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/joshharrison/sprintloom/internal/calendar"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/graph"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    key          TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    sprint_name  TEXT NOT NULL DEFAULT '',
    sprint_start TEXT NOT NULL DEFAULT '',
    sprint_end   TEXT NOT NULL DEFAULT '',
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    project_key   TEXT NOT NULL REFERENCES projects(key) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    duration_days REAL NOT NULL DEFAULT 1,
    assignee      TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT '',
    start_date    TEXT NOT NULL DEFAULT '',
    end_date      TEXT NOT NULL DEFAULT '',
    due_date      TEXT NOT NULL DEFAULT '',
    position      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (project_key, id)
);

CREATE TABLE IF NOT EXISTS dependencies (
    project_key   TEXT NOT NULL,
    task_id       TEXT NOT NULL,
    depends_on_id TEXT NOT NULL,
    PRIMARY KEY (project_key, task_id, depends_on_id),
    FOREIGN KEY (project_key, task_id) REFERENCES tasks(project_key, id) ON DELETE CASCADE
);
`

// Project is a stored project header.
type Project struct {
	Key         string
	Name        string
	SprintName  string
	SprintStart time.Time
	SprintEnd   time.Time
	UpdatedAt   time.Time
}

// Store is a SQLite-backed project store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProject upserts the project header and replaces its task set. Tasks
// missing from the batch are removed together with their dependencies, so a
// re-import never schedules work left over from an earlier sprint.
func (s *Store) SaveProject(ctx context.Context, p Project, tasks []graph.Task) error {
	if p.Key == "" {
		return diag.Configf("project", "a project key is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (key, name, sprint_name, sprint_start, sprint_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
		    name = excluded.name,
		    sprint_name = excluded.sprint_name,
		    sprint_start = excluded.sprint_start,
		    sprint_end = excluded.sprint_end,
		    updated_at = excluded.updated_at
	`, p.Key, p.Name, p.SprintName, calendar.Format(p.SprintStart), calendar.Format(p.SprintEnd),
		s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save project %s: %w", p.Key, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE project_key = ?`, p.Key); err != nil {
		return fmt.Errorf("failed to clear dependencies of %s: %w", p.Key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_key = ?`, p.Key); err != nil {
		return fmt.Errorf("failed to clear tasks of %s: %w", p.Key, err)
	}

	for i, t := range tasks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (project_key, id, name, duration_days, assignee, status, start_date, end_date, due_date, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (project_key, id) DO UPDATE SET
			    name = excluded.name,
			    duration_days = excluded.duration_days,
			    assignee = excluded.assignee,
			    status = excluded.status,
			    start_date = excluded.start_date,
			    end_date = excluded.end_date,
			    due_date = excluded.due_date,
			    position = excluded.position
		`, p.Key, t.ID, t.Name, t.DurationDays, t.Assignee, t.Status, t.StartDate, t.EndDate, t.DueDate, i)
		if err != nil {
			return fmt.Errorf("failed to save task %s: %w", t.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM dependencies WHERE project_key = ? AND task_id = ?`, p.Key, t.ID); err != nil {
			return fmt.Errorf("failed to clear dependencies of %s: %w", t.ID, err)
		}
		for _, dep := range t.DependsOn {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO dependencies (project_key, task_id, depends_on_id)
				VALUES (?, ?, ?)
			`, p.Key, t.ID, dep); err != nil {
				return fmt.Errorf("failed to save dependency %s -> %s: %w", dep, t.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project %s: %w", p.Key, err)
	}
	return nil
}

// LoadProject returns a project and its tasks in import order.
func (s *Store) LoadProject(ctx context.Context, key string) (*Project, []graph.Task, error) {
	p, err := s.project(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_days, assignee, status, start_date, end_date, due_date
		FROM tasks WHERE project_key = ?
		ORDER BY position, id
	`, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []graph.Task
	index := make(map[string]int)
	for rows.Next() {
		var t graph.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.DurationDays, &t.Assignee, &t.Status,
			&t.StartDate, &t.EndDate, &t.DueDate); err != nil {
			return nil, nil, fmt.Errorf("failed to scan task: %w", err)
		}
		index[t.ID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	depRows, err := s.db.QueryContext(ctx, `
		SELECT task_id, depends_on_id FROM dependencies
		WHERE project_key = ?
		ORDER BY task_id, rowid
	`, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer depRows.Close()

	for depRows.Next() {
		var taskID, dependsOn string
		if err := depRows.Scan(&taskID, &dependsOn); err != nil {
			return nil, nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].DependsOn = append(tasks[i].DependsOn, dependsOn)
		}
	}
	if err := depRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read dependencies: %w", err)
	}

	return p, tasks, nil
}

// Projects lists the stored projects ordered by key.
func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, sprint_name, sprint_start, sprint_end, updated_at
		FROM projects ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}
	return out, nil
}

func (s *Store) project(ctx context.Context, key string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, name, sprint_name, sprint_start, sprint_end, updated_at
		FROM projects WHERE key = ?
	`, key)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, diag.Configf("project", "unknown project %q", key)
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var p Project
	var start, end, updated string
	if err := row.Scan(&p.Key, &p.Name, &p.SprintName, &start, &end, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	var err error
	if start != "" {
		if p.SprintStart, err = calendar.ParseDate(start); err != nil {
			return nil, err
		}
	}
	if end != "" {
		if p.SprintEnd, err = calendar.ParseDate(end); err != nil {
			return nil, err
		}
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &p, nil
}
