package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'active',
	location    TEXT NOT NULL DEFAULT '',
	next_action TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id        INTEGER NOT NULL,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'pending',
	priority          TEXT NOT NULL DEFAULT 'medium',
	estimated_minutes INTEGER NOT NULL DEFAULT 15,
	energy_level      TEXT NOT NULL DEFAULT 'medium',
	context_hint      TEXT NOT NULL DEFAULT '',
	is_completed      INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL,
	completed_at      TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
`

// SQLiteStore is a Store backed by an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and
// bootstraps the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite serializes writes on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, priority,
		       estimated_minutes, energy_level, context_hint, is_completed,
		       created_at, completed_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, location, next_action, created_at
		FROM projects WHERE id = ?`, id)

	var p Project
	var createdAt string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &p.Location, &p.NextAction, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, projectID int64) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, title, description, status, priority,
		       estimated_minutes, energy_level, context_hint, is_completed,
		       created_at, completed_at
		FROM tasks WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, status, location, next_action, created_at
		FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		var p Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &p.Location, &p.NextAction, &createdAt); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateTask(ctx context.Context, spec TaskSpec) (*Task, error) {
	if spec.Title == "" {
		return nil, errors.New("task title is required")
	}
	applyTaskDefaults(&spec)

	id, err := s.insertTask(ctx, s.db, spec)
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

func (s *SQLiteStore) BulkCreateTasks(ctx context.Context, specs []TaskSpec) ([]*Task, error) {
	if len(specs) == 0 {
		return nil, errors.New("no task specs provided")
	}
	for i := range specs {
		if specs[i].Title == "" {
			return nil, fmt.Errorf("task spec %d: title is required", i)
		}
		applyTaskDefaults(&specs[i])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("bulk create: begin: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(specs))
	for _, spec := range specs {
		id, err := s.insertTask(ctx, tx, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("bulk create: commit: %w", err)
	}

	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insertTask(ctx context.Context, db execer, spec TaskSpec) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO tasks (project_id, title, description, status, priority,
		                   estimated_minutes, energy_level, context_hint, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		spec.ProjectID, spec.Title, spec.Description, spec.Status, spec.Priority,
		spec.EstimatedMinutes, spec.EnergyLevel, spec.ContextHint,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task: last insert id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, id int64) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET is_completed = 1, status = ?, completed_at = ?
		WHERE id = ?`,
		StatusCompleted, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return nil, fmt.Errorf("complete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete task %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, spec ProjectSpec) (*Project, error) {
	if spec.Title == "" {
		return nil, errors.New("project title is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (title, description, status, location, next_action, created_at)
		VALUES (?, ?, 'active', ?, ?, ?)`,
		spec.Title, spec.Description, spec.Location, spec.NextAction,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert project: last insert id: %w", err)
	}
	return s.GetProject(ctx, id)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var completed int
	var createdAt string
	var completedAt sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.EstimatedMinutes, &t.EnergyLevel, &t.ContextHint,
		&completed, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.IsCompleted = completed != 0
	t.CreatedAt = parseTime(createdAt)
	if completedAt.Valid {
		ts := parseTime(completedAt.String)
		t.CompletedAt = &ts
	}
	return &t, nil
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

var _ Store = (*SQLiteStore)(nil)
