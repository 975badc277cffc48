// Package delegate packages backlog tasks into handoff requests for the
// executor agent.
//
// Delegation is fire-and-forget: a Dispatcher starts the work and returns.
// The orchestrator learns about completion on a later turn by reading the
// task's status from the backlog.
package delegate

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ExecutorName identifies the subordinate agent that receives delegations.
const ExecutorName = "executor"

// ProjectName is the manager named in delegation instructions.
const ProjectName = "rdteam"

// Request is a handoff of one task to the executor. It is built per
// delegation and never persisted.
type Request struct {
	Target          string       `json:"target"`
	TaskID          string       `json:"task_id"`
	TaskTitle       string       `json:"task_title"`
	TaskDescription string       `json:"task_description"`
	Instructions    string       `json:"instructions"`
	Phase           models.Phase `json:"phase"`
}

// Payload is the wire form handed to the executor.
type Payload struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
}

// Delegate builds the request for a task.
func Delegate(task models.Task) Request {
	return Request{
		Target:          ExecutorName,
		TaskID:          task.ID(),
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		Instructions:    Instructions(task.Title),
		Phase:           task.Phase,
	}
}

// Instructions returns the fixed instruction text for a task title.
func Instructions(title string) string {
	return fmt.Sprintf("Complete the task '%s' as described. "+
		"This is part of a larger project managed by %s. "+
		"Follow best practices for code quality and testing.", title, ProjectName)
}

// Payload returns the {title, description, instructions} view of the request.
func (r Request) Payload() Payload {
	return Payload{
		Title:        r.TaskTitle,
		Description:  r.TaskDescription,
		Instructions: r.Instructions,
	}
}

// Dispatcher hands a request to the executor.
//
// Dispatch must not wait for the task to finish. The executor is
// responsible for marking the task completed in the backlog.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, req Request) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, req Request) error {
	return f(ctx, req)
}
