package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/rdteam/internal/llm"
	"github.com/ShayCichocki/rdteam/internal/orchestrator"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

const (
	toolCreateTask   = "create_task"
	toolAdvancePhase = "advance_phase"
)

// phaseTools are offered on general phase turns so the model can record
// deliverables and close the phase.
func phaseTools() []llm.Tool {
	return []llm.Tool{
		{
			Name:        toolCreateTask,
			Description: "Record a task for the current phase in the project backlog.",
			Properties: map[string]any{
				"title":               map[string]any{"type": "string", "description": "Short task title"},
				"description":         map[string]any{"type": "string", "description": "What the task involves"},
				"acceptance_criteria": map[string]any{"type": "string", "description": "How to tell the task is done"},
			},
			Required: []string{"title"},
		},
		{
			Name:        toolAdvancePhase,
			Description: "Finish the current phase and move the project to the next one.",
			Properties:  map[string]any{},
		},
	}
}

type createTaskInput struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
}

// applyToolCall runs one tool call for a turn in phase and returns the line
// reported to the user.
func (r *Runner) applyToolCall(ctx context.Context, phase models.Phase, call llm.ToolCall) (string, error) {
	switch call.Name {
	case toolCreateTask:
		var in createTaskInput
		if err := json.Unmarshal(call.Input, &in); err != nil {
			return "", fmt.Errorf("decode %s input: %w", call.Name, err)
		}
		if strings.TrimSpace(in.Title) == "" {
			return "", errors.New("create_task needs a title")
		}
		id, err := r.store.Create(ctx, models.Task{
			Title:              in.Title,
			Description:        in.Description,
			Phase:              phase,
			Status:             models.TaskStatusNotStarted,
			AcceptanceCriteria: in.AcceptanceCriteria,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created %s task '%s' (%s).", phase, in.Title, id), nil

	case toolAdvancePhase:
		next, err := r.machine.Advance(ctx, phase)
		if err != nil {
			return "", err
		}
		return orchestrator.TransitionMessage(next), nil

	default:
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
}
