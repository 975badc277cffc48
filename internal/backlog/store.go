// Package backlog provides durable storage for phase-bound tasks.
//
// The backlog is the orchestrator's single source of phase truth and is
// polled on every turn, so reads tolerate partial corruption: a record that
// cannot be parsed is skipped instead of failing the whole listing.
package backlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ErrStoreWrite matches every *StoreWriteError via errors.Is.
var ErrStoreWrite = errors.New("backlog store not writable")

// StoreWriteError reports that a record could not be persisted.
type StoreWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s task %q: %v", e.Op, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreWrite) true for any StoreWriteError.
func (e *StoreWriteError) Is(target error) bool {
	return target == ErrStoreWrite
}

// Reader lists and fetches tasks.
type Reader interface {
	// ListAll returns every readable task ordered by creation time.
	ListAll(ctx context.Context) ([]models.Task, error)
	// ListByPhase returns the tasks of one phase, compared case-insensitively.
	ListByPhase(ctx context.Context, phase models.Phase) ([]models.Task, error)
	// Get returns the task stored under id. found is false if there is none.
	Get(ctx context.Context, id string) (task *models.Task, found bool, err error)
}

// Writer creates and updates tasks.
type Writer interface {
	// Create writes a task keyed by the slug of its title and returns that key.
	// A task with the same slug is overwritten.
	Create(ctx context.Context, task models.Task) (string, error)
	// Update applies a partial update. It returns false, nil if id does not exist.
	Update(ctx context.Context, id string, update models.TaskUpdate) (bool, error)
}

// Store is the full task store contract.
type Store interface {
	io.Closer
	Reader
	Writer
}

// FilterByPhase returns the tasks whose phase matches, ignoring case.
func FilterByPhase(tasks []models.Task, phase models.Phase) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if strings.EqualFold(string(t.Phase), string(phase)) {
			out = append(out, t)
		}
	}
	return out
}

// SortTasks orders tasks by creation time, then by id.
func SortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID() < tasks[j].ID()
	})
}

// normalize fills defaults on a task about to be created.
func normalize(task *models.Task, createdBy string) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return errors.New("task title is required")
	}
	if slug := models.Slug(task.Title); slug == "." || slug == ".." {
		return fmt.Errorf("task title %q is not a valid record name", task.Title)
	}
	if !task.Phase.Valid() {
		p, err := models.ParsePhase(string(task.Phase))
		if err != nil {
			return err
		}
		task.Phase = p
	}
	if task.Status == "" {
		task.Status = models.TaskStatusNotStarted
	}
	if !task.Status.Valid() {
		return fmt.Errorf("unknown task status %q", task.Status)
	}
	if task.CreatedBy == "" {
		task.CreatedBy = createdBy
	}
	return nil
}

// validateUpdate rejects updates carrying unknown enum values.
func validateUpdate(update *models.TaskUpdate) error {
	if update.Phase != nil && !update.Phase.Valid() {
		p, err := models.ParsePhase(string(*update.Phase))
		if err != nil {
			return err
		}
		update.Phase = &p
	}
	if update.Status != nil && !update.Status.Valid() {
		return fmt.Errorf("unknown task status %q", *update.Status)
	}
	return nil
}

// Prepare normalizes a task for creation. Backends outside this package
// call it so every store applies the same defaults.
func Prepare(task *models.Task, createdBy string) error {
	return normalize(task, createdBy)
}

// PrepareUpdate validates a partial update before it is applied.
func PrepareUpdate(update *models.TaskUpdate) error {
	return validateUpdate(update)
}
