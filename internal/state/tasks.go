package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ErrVersionConflict is returned when an update keeps losing the optimistic
// version check to concurrent writers.
var ErrVersionConflict = errors.New("task version changed concurrently")

const maxUpdateAttempts = 10

const taskColumns = `slug, title, description, phase, status, acceptance_criteria, created_by, created_at, updated_at, version`

// Create inserts the task or overwrites the row with the same slug.
// The original created_at is kept so the task keeps its position.
func (db *DB) Create(ctx context.Context, task models.Task) (string, error) {
	if err := backlog.Prepare(&task, db.createdBy); err != nil {
		backlog.Writes.WithLabelValues("create", "error").Inc()
		return "", fmt.Errorf("create task: %w", err)
	}
	id := task.ID()
	now := formatTime(db.now())

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			phase = excluded.phase,
			status = excluded.status,
			acceptance_criteria = excluded.acceptance_criteria,
			created_by = excluded.created_by,
			updated_at = excluded.updated_at,
			version = tasks.version + 1
	`, id, task.Title, task.Description, string(task.Phase), string(task.Status),
		task.AcceptanceCriteria, task.CreatedBy, now, now)
	if err != nil {
		backlog.Writes.WithLabelValues("create", "error").Inc()
		return "", &backlog.StoreWriteError{Op: "create", ID: id, Err: err}
	}

	backlog.Writes.WithLabelValues("create", "ok").Inc()
	return id, nil
}

// Update applies a partial update guarded by the row version.
// It returns false, nil if no row has the given id.
func (db *DB) Update(ctx context.Context, id string, update models.TaskUpdate) (bool, error) {
	if err := backlog.PrepareUpdate(&update); err != nil {
		backlog.Writes.WithLabelValues("update", "error").Inc()
		return false, fmt.Errorf("update task: %w", err)
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		task, found, err := db.Get(ctx, id)
		if err != nil {
			backlog.Writes.WithLabelValues("update", "error").Inc()
			return false, err
		}
		if !found {
			backlog.Writes.WithLabelValues("update", "missing").Inc()
			return false, nil
		}

		expected := task.Version
		update.Apply(task)

		applied, err := db.compareAndSwap(ctx, id, expected, task)
		if err != nil {
			backlog.Writes.WithLabelValues("update", "error").Inc()
			return false, &backlog.StoreWriteError{Op: "update", ID: id, Err: err}
		}
		if applied {
			backlog.Writes.WithLabelValues("update", "ok").Inc()
			return true, nil
		}
		db.logger.Debug("task version conflict, retrying",
			zap.String("id", id),
			zap.Int("attempt", attempt+1),
		)
	}

	backlog.Writes.WithLabelValues("update", "error").Inc()
	return false, &backlog.StoreWriteError{Op: "update", ID: id, Err: ErrVersionConflict}
}

// compareAndSwap writes task only if the stored version still matches.
func (db *DB) compareAndSwap(ctx context.Context, id string, version int64, task *models.Task) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE tasks
		SET description = ?, phase = ?, status = ?, acceptance_criteria = ?, updated_at = ?, version = version + 1
		WHERE slug = ? AND version = ?
	`, task.Description, string(task.Phase), string(task.Status), task.AcceptanceCriteria,
		formatTime(db.now()), id, version)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows == 1, nil
}

// Get retrieves a task by id.
func (db *DB) Get(ctx context.Context, id string) (*models.Task, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE slug = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get task %q: %w", id, err)
	}
	return task, true, nil
}

// ListAll returns every readable row ordered by creation time.
// Rows that fail to scan are skipped.
func (db *DB) ListAll(ctx context.Context) ([]models.Task, error) {
	return db.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, slug`)
}

// ListByPhase returns the rows of one phase, compared case-insensitively.
func (db *DB) ListByPhase(ctx context.Context, phase models.Phase) ([]models.Task, error) {
	return db.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE phase = ? COLLATE NOCASE ORDER BY created_at, slug`, string(phase))
}

func (db *DB) list(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			backlog.RecordsSkipped.Inc()
			db.logger.Warn("skipping unreadable task row", zap.Error(err))
			continue
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var slug, phase, status, createdAt, updatedAt string
	if err := row.Scan(&slug, &t.Title, &t.Description, &phase, &status,
		&t.AcceptanceCriteria, &t.CreatedBy, &createdAt, &updatedAt, &t.Version); err != nil {
		return nil, err
	}

	t.Status = models.TaskStatus(status)
	t.Phase = models.Phase(phase)
	if p, err := models.ParsePhase(phase); err == nil {
		t.Phase = p
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("task %q created_at: %w", slug, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("task %q updated_at: %w", slug, err)
	}
	return &t, nil
}
