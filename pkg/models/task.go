package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusNotStarted indicates the task has not started.
	TaskStatusNotStarted TaskStatus = "not_started"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task is done.
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseTaskStatus matches s case-insensitively against the known statuses.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

// DefaultCreatedBy is the provenance tag for tasks created by the orchestrator.
const DefaultCreatedBy = "rdteam"

// Task is a unit of work bound to exactly one phase.
type Task struct {
	// Title is the short description of the task. Its slug is the store key.
	Title string `json:"title" yaml:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description" yaml:"description"`
	// Phase is the development phase this task belongs to.
	Phase Phase `json:"phase" yaml:"phase"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"status"`
	// AcceptanceCriteria defines the criteria for task completion.
	AcceptanceCriteria string `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	// CreatedBy records who created the task.
	CreatedBy string `json:"created_by" yaml:"created_by"`
	// CreatedAt orders tasks within the store.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	// Version increments on every write.
	Version int64 `json:"version" yaml:"version"`
}

// ID returns the store key of the task.
func (t Task) ID() string {
	return Slug(t.Title)
}

// IsCompleted reports whether the task is done.
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Description        *string
	Phase              *Phase
	Status             *TaskStatus
	AcceptanceCriteria *string
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Description == nil && u.Phase == nil && u.Status == nil && u.AcceptanceCriteria == nil
}

// Apply writes the set fields onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Phase != nil {
		t.Phase = *u.Phase
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.AcceptanceCriteria != nil {
		t.AcceptanceCriteria = *u.AcceptanceCriteria
	}
}

// StatusUpdate is shorthand for an update that only changes the status.
func StatusUpdate(s TaskStatus) TaskUpdate {
	return TaskUpdate{Status: &s}
}

// Slug turns a title into a filesystem-safe store key.
// Path separators, whitespace, reserved filename characters and control
// characters become underscores.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case strings.ContainsRune(`:*?"<>|`, r):
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
