package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

type createTaskInput struct {
	Title              string `json:"title" jsonschema:"Task title; its slug is the task id"`
	Phase              string `json:"phase" jsonschema:"Phase: requirements_gathering, planning, architecture, development, testing or validation"`
	Description        string `json:"description,omitempty" jsonschema:"What the task involves"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty" jsonschema:"How to tell the task is done"`
	Status             string `json:"status,omitempty" jsonschema:"Initial status (default: not_started)"`
}

type createTaskOutput struct {
	ID   string   `json:"id"`
	Task taskView `json:"task"`
}

type updateTaskInput struct {
	ID                 string `json:"id" jsonschema:"Task id as returned by backlog_create_task or backlog_list_tasks"`
	Status             string `json:"status,omitempty" jsonschema:"New status: not_started, in_progress or completed"`
	Phase              string `json:"phase,omitempty" jsonschema:"Move the task to another phase"`
	Description        string `json:"description,omitempty" jsonschema:"Replace the description"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty" jsonschema:"Replace the acceptance criteria"`
}

type updateTaskOutput struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

type listTasksInput struct {
	Phase string `json:"phase,omitempty" jsonschema:"Only list tasks of this phase. Empty lists all."`
}

type listTasksOutput struct {
	Count int        `json:"count"`
	Tasks []taskView `json:"tasks"`
}

type currentPhaseInput struct{}

type currentPhaseOutput struct {
	Phase string `json:"phase"`
}

// taskView is the wire form of a task.
type taskView struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Phase              string `json:"phase"`
	Status             string `json:"status"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	CreatedBy          string `json:"created_by,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
	Version            int64  `json:"version"`
}

func viewOf(t models.Task) taskView {
	v := taskView{
		ID:                 t.ID(),
		Title:              t.Title,
		Description:        t.Description,
		Phase:              string(t.Phase),
		Status:             string(t.Status),
		AcceptanceCriteria: t.AcceptanceCriteria,
		CreatedBy:          t.CreatedBy,
		Version:            t.Version,
	}
	if !t.CreatedAt.IsZero() {
		v.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return v
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backlog_create_task",
		Description: "Create a task in the project backlog. A task with the same title is replaced.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createTaskInput) (*mcp.CallToolResult, createTaskOutput, error) {
		out, err := s.createTask(ctx, args)
		observeTool("backlog_create_task", err)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backlog_update_task",
		Description: "Update fields of a backlog task. Mark finished work with status completed.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args updateTaskInput) (*mcp.CallToolResult, updateTaskOutput, error) {
		out, err := s.updateTask(ctx, args)
		observeTool("backlog_update_task", err)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backlog_list_tasks",
		Description: "List backlog tasks in creation order, optionally for one phase.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listTasksInput) (*mcp.CallToolResult, listTasksOutput, error) {
		out, err := s.listTasks(ctx, args)
		observeTool("backlog_list_tasks", err)
		return nil, out, err
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backlog_current_phase",
		Description: "Return the project phase implied by the backlog: the furthest phase that has a task.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args currentPhaseInput) (*mcp.CallToolResult, currentPhaseOutput, error) {
		phase := s.machine.CurrentPhase(ctx, nil)
		observeTool("backlog_current_phase", nil)
		return nil, currentPhaseOutput{Phase: string(phase)}, nil
	})
}

func (s *Server) createTask(ctx context.Context, args createTaskInput) (createTaskOutput, error) {
	if strings.TrimSpace(args.Title) == "" {
		return createTaskOutput{}, errors.New("title is required")
	}
	phase, err := models.ParsePhase(args.Phase)
	if err != nil {
		return createTaskOutput{}, err
	}
	status := models.TaskStatusNotStarted
	if args.Status != "" {
		if status, err = models.ParseTaskStatus(args.Status); err != nil {
			return createTaskOutput{}, err
		}
	}

	id, err := s.store.Create(ctx, models.Task{
		Title:              args.Title,
		Description:        args.Description,
		Phase:              phase,
		Status:             status,
		AcceptanceCriteria: args.AcceptanceCriteria,
	})
	if err != nil {
		return createTaskOutput{}, err
	}

	task, found, err := s.store.Get(ctx, id)
	if err != nil {
		return createTaskOutput{}, err
	}
	if !found {
		return createTaskOutput{}, fmt.Errorf("task %s vanished after create", id)
	}
	s.logger.Info("task created over MCP", zap.String("task", id), zap.String("phase", string(phase)))
	return createTaskOutput{ID: id, Task: viewOf(*task)}, nil
}

func (s *Server) updateTask(ctx context.Context, args updateTaskInput) (updateTaskOutput, error) {
	if args.ID == "" {
		return updateTaskOutput{}, errors.New("id is required")
	}

	var update models.TaskUpdate
	if args.Status != "" {
		status, err := models.ParseTaskStatus(args.Status)
		if err != nil {
			return updateTaskOutput{}, err
		}
		update.Status = &status
	}
	if args.Phase != "" {
		phase, err := models.ParsePhase(args.Phase)
		if err != nil {
			return updateTaskOutput{}, err
		}
		update.Phase = &phase
	}
	if args.Description != "" {
		update.Description = &args.Description
	}
	if args.AcceptanceCriteria != "" {
		update.AcceptanceCriteria = &args.AcceptanceCriteria
	}
	if update.Empty() {
		return updateTaskOutput{}, errors.New("nothing to update")
	}

	ok, err := s.store.Update(ctx, args.ID, update)
	if err != nil {
		return updateTaskOutput{}, err
	}
	if ok {
		s.logger.Info("task updated over MCP", zap.String("task", args.ID))
	}
	return updateTaskOutput{ID: args.ID, Updated: ok}, nil
}

func (s *Server) listTasks(ctx context.Context, args listTasksInput) (listTasksOutput, error) {
	var (
		tasks []models.Task
		err   error
	)
	if args.Phase == "" {
		tasks, err = s.store.ListAll(ctx)
	} else {
		var phase models.Phase
		if phase, err = models.ParsePhase(args.Phase); err != nil {
			return listTasksOutput{}, err
		}
		tasks, err = s.store.ListByPhase(ctx, phase)
	}
	if err != nil {
		return listTasksOutput{}, err
	}

	out := listTasksOutput{Count: len(tasks), Tasks: make([]taskView, 0, len(tasks))}
	for _, t := range tasks {
		out.Tasks = append(out.Tasks, viewOf(t))
	}
	return out, nil
}
