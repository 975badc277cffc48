// Package executor runs delegated backlog tasks with a language model.
//
// An Agent works one task through the planning, execution and completion
// modes. Its mode is inferred from its own replies by a mode.Detector. When
// it reaches completion the agent marks the task completed in the backlog,
// which is how the orchestrator learns the work is done.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/conversation"
	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/internal/llm"
	"github.com/ShayCichocki/rdteam/internal/mode"
	"github.com/ShayCichocki/rdteam/internal/prompt"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ErrTurnLimit is returned when a run ends before reaching completion.
var ErrTurnLimit = errors.New("executor turn limit reached")

// DefaultMaxTurns bounds a run when the config does not.
const DefaultMaxTurns = 20

// continueMessage is sent between model turns so the conversation keeps
// alternating.
const continueMessage = "Continue."

// Runner executes one delegation to the end.
type Runner interface {
	Run(ctx context.Context, req delegate.Request) (*Result, error)
}

// Result is the outcome of one run.
type Result struct {
	TaskID string
	// Mode is the mode the run ended in.
	Mode mode.Mode
	// Turns counts model calls, including the closing summary.
	Turns int
	// Summary is the agent's last reply.
	Summary string
	// Completed is true when the task was marked completed in the backlog.
	Completed bool
	History   []models.Event
}

// Agent drives one task at a time through the model gateway.
type Agent struct {
	gateway  llm.Gateway
	store    backlog.Store
	prompts  *prompt.Renderer
	logger   *zap.Logger
	maxTurns int
}

// Config contains configuration for NewAgent.
type Config struct {
	Gateway llm.Gateway
	Store   backlog.Store
	// Prompts renders the per-mode system prompts. Nil uses the built-in
	// templates.
	Prompts *prompt.Renderer
	Logger  *zap.Logger
	// MaxTurns bounds the model calls of one run (0 = DefaultMaxTurns).
	MaxTurns int
}

// NewAgent creates an executor agent.
func NewAgent(cfg Config) *Agent {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = prompt.Must()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		gateway:  cfg.Gateway,
		store:    cfg.Store,
		prompts:  prompts,
		logger:   logger.Named("executor"),
		maxTurns: maxTurns,
	}
}

// Run works req until the agent announces completion or the turn limit is
// hit. On completion the task is marked completed and the agent gets one
// more turn, in completion mode, to summarise.
func (a *Agent) Run(ctx context.Context, req delegate.Request) (*Result, error) {
	log := a.logger.With(zap.String("task", req.TaskID))
	payload := req.Payload()

	history := []models.Event{models.UserEvent(briefing(payload))}
	detector := mode.NewDetector()
	detector.InitializeFromHistory(history)

	result := &Result{TaskID: req.TaskID, Mode: detector.Current()}
	log.Info("run started", zap.String("title", req.TaskTitle), zap.Int("max_turns", a.maxTurns))

	for result.Turns < a.maxTurns {
		reply, err := a.turn(ctx, detector.Current(), payload, history)
		result.Turns++
		if err != nil {
			RunsTotal.WithLabelValues("error").Inc()
			result.History = history
			return result, fmt.Errorf("executor turn %d: %w", result.Turns, err)
		}
		history = append(history, reply)

		if m, changed := detector.Observe(reply); changed {
			ModeTransitions.WithLabelValues(m.String()).Inc()
			log.Info("mode changed", zap.Stringer("mode", m), zap.Int("turn", result.Turns))
		}
		if detector.Current() == mode.Completion {
			break
		}
		history = append(history, models.UserEvent(continueMessage))
	}

	result.Mode = detector.Current()
	result.History = history
	TurnsTotal.Add(float64(result.Turns))

	if result.Mode != mode.Completion {
		RunsTotal.WithLabelValues("turn_limit").Inc()
		result.Summary = conversation.LastAgentResponse(history)
		log.Warn("run stopped before completion", zap.Int("turns", result.Turns), zap.Stringer("mode", result.Mode))
		return result, fmt.Errorf("%w after %d turns", ErrTurnLimit, result.Turns)
	}

	if err := a.complete(ctx, req); err != nil {
		RunsTotal.WithLabelValues("error").Inc()
		result.Summary = conversation.LastAgentResponse(history)
		return result, err
	}
	result.Completed = true

	history = append(history, models.UserEvent("Summarise the finished work."))
	summary, err := a.turn(ctx, mode.Completion, payload, history)
	result.Turns++
	if err != nil {
		// Task already completed.
		log.Warn("summary turn failed", zap.Error(err))
		result.Summary = conversation.LastAgentResponse(result.History)
	} else {
		result.History = append(history, summary)
		result.Summary = summary.Content
	}

	RunsTotal.WithLabelValues("completed").Inc()
	log.Info("run completed", zap.Int("turns", result.Turns))
	return result, nil
}

// turn asks the model for the next reply in mode m.
func (a *Agent) turn(ctx context.Context, m mode.Mode, payload delegate.Payload, history []models.Event) (models.Event, error) {
	system, err := a.prompts.Executor(m, payload)
	if err != nil {
		return models.Event{}, err
	}
	resp, err := a.gateway.Complete(ctx, llm.Request{
		System:   system,
		Messages: llm.FromHistory(history),
	})
	if err != nil {
		return models.Event{}, err
	}
	return models.AgentEvent(resp.Text), nil
}

// complete marks the delegated task completed.
func (a *Agent) complete(ctx context.Context, req delegate.Request) error {
	ok, err := a.store.Update(ctx, req.TaskID, models.StatusUpdate(models.TaskStatusCompleted))
	if err != nil {
		return fmt.Errorf("mark task %s completed: %w", req.TaskID, err)
	}
	if !ok {
		return fmt.Errorf("mark task %s completed: task not found", req.TaskID)
	}
	return nil
}

// briefing is the first user message of a run.
func briefing(p delegate.Payload) string {
	var sb strings.Builder
	sb.WriteString("Task: ")
	sb.WriteString(p.Title)
	sb.WriteString("\n")
	if p.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(p.Instructions)
	return sb.String()
}
