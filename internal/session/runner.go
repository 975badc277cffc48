// Package session runs the interactive orchestrator loop.
//
// Each user line is appended to the history, the phase machine decides an
// action, and the runner applies it: print a message, hand a task to the
// executor, run a general model turn or finish. The history is written to a
// transcript so a session can be resumed.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/internal/executor"
	"github.com/ShayCichocki/rdteam/internal/llm"
	"github.com/ShayCichocki/rdteam/internal/orchestrator"
	"github.com/ShayCichocki/rdteam/internal/prompt"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// Prompt is printed before reading each user line.
const Prompt = "you> "

// msgNoGateway replaces a model turn when no gateway is configured.
const msgNoGateway = "No language model is configured for this phase. Describe the next step or type /exit."

// Runner drives one session.
type Runner struct {
	machine    *orchestrator.Machine
	store      backlog.Store
	dispatcher delegate.Dispatcher
	gateway    llm.Gateway
	prompts    *prompt.Renderer
	transcript *Transcript
	logger     *zap.Logger
	out        io.Writer

	history []models.Event
}

// Config contains configuration for NewRunner.
type Config struct {
	Machine    *orchestrator.Machine
	Store      backlog.Store
	Dispatcher delegate.Dispatcher
	// Gateway serves general phase turns. Nil prints a notice instead.
	Gateway llm.Gateway
	Prompts *prompt.Renderer
	// Transcript records the session. Nil disables recording.
	Transcript *Transcript
	Logger     *zap.Logger
	Out        io.Writer
	// History resumes an earlier session.
	History []models.Event
}

// NewRunner creates a session runner.
func NewRunner(cfg Config) *Runner {
	r := &Runner{
		machine:    cfg.Machine,
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		gateway:    cfg.Gateway,
		prompts:    cfg.Prompts,
		transcript: cfg.Transcript,
		logger:     cfg.Logger,
		out:        cfg.Out,
		history:    append([]models.Event(nil), cfg.History...),
	}
	if r.prompts == nil {
		r.prompts = prompt.Must()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.out == nil {
		r.out = io.Discard
	}
	return r
}

// History returns a copy of the session history.
func (r *Runner) History() []models.Event {
	return append([]models.Event(nil), r.history...)
}

// Run reads user lines from in until the machine finishes, in is
// exhausted or ctx is done. A non-empty first is handled as the first line.
func (r *Runner) Run(ctx context.Context, in io.Reader, first string) error {
	if strings.TrimSpace(first) != "" {
		done, err := r.Turn(ctx, first)
		if err != nil || done {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.out, color.New(color.Bold).Sprint(Prompt))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(r.out)
			return nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		done, err := r.Turn(ctx, line)
		if err != nil || done {
			return err
		}
	}
}

// Turn handles one user line. It reports whether the session finished.
// Only a missing initial request is returned as an error; other failures
// are shown to the user and the session continues.
func (r *Runner) Turn(ctx context.Context, input string) (bool, error) {
	r.record(models.UserEvent(input))

	action, err := r.machine.Step(ctx, r.history)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoInitialUserMessage) {
			return true, err
		}
		r.logger.Warn("orchestrator turn failed", zap.Error(err))
		r.warn("Something went wrong: %v", err)
		return false, nil
	}

	switch a := action.(type) {
	case orchestrator.FinishAction:
		r.logger.Info("session finished", zap.String("thought", a.Thought))
		r.info("Goodbye.")
		return true, nil
	case orchestrator.MessageAction:
		r.say(a.Content)
	case orchestrator.DelegateAction:
		r.delegate(ctx, a.Request)
	case orchestrator.LLMTurnAction:
		r.llmTurn(ctx, a)
	default:
		return false, fmt.Errorf("unsupported action %T", action)
	}
	return false, nil
}

func (r *Runner) delegate(ctx context.Context, req delegate.Request) {
	if r.dispatcher == nil {
		r.warn("No executor is available to work on '%s'.", req.TaskTitle)
		return
	}
	err := r.dispatcher.Dispatch(ctx, req)
	switch {
	case errors.Is(err, executor.ErrAlreadyRunning):
		r.say(fmt.Sprintf("Task '%s' is still running with the %s.", req.TaskTitle, req.Target))
	case err != nil:
		r.logger.Warn("dispatch failed", zap.String("task", req.TaskID), zap.Error(err))
		r.warn("Could not start task '%s': %v", req.TaskTitle, err)
	default:
		r.logger.Info("task delegated", zap.String("task", req.TaskID), zap.String("target", req.Target))
		r.say(fmt.Sprintf("Delegated task '%s' to the %s.", req.TaskTitle, req.Target))
	}
}

// llmTurn runs a general phase turn. The phase context goes into the
// system prompt only, never into the history.
func (r *Runner) llmTurn(ctx context.Context, a orchestrator.LLMTurnAction) {
	if r.gateway == nil {
		r.say(msgNoGateway)
		return
	}

	system, err := r.prompts.Phase(a.PromptContext, r.store != nil)
	if err != nil {
		r.warn("Could not build the prompt: %v", err)
		return
	}
	req := llm.Request{System: system, Messages: llm.FromHistory(r.history)}
	if r.store != nil {
		req.Tools = phaseTools()
	}

	resp, err := r.gateway.Complete(ctx, req)
	if err != nil {
		r.logger.Warn("model turn failed", zap.String("phase", string(a.Phase)), zap.Error(err))
		r.warn("The model did not answer: %v", err)
		return
	}

	lines := []string{}
	if text := strings.TrimSpace(resp.Text); text != "" {
		lines = append(lines, text)
	}
	for _, call := range resp.ToolCalls {
		msg, err := r.applyToolCall(ctx, a.Phase, call)
		if err != nil {
			r.logger.Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
			msg = fmt.Sprintf("Tool %s failed: %v", call.Name, err)
		}
		lines = append(lines, msg)
	}
	if len(lines) == 0 {
		return
	}
	r.say(strings.Join(lines, "\n"))
}

// say prints an agent message and records it.
func (r *Runner) say(content string) {
	r.record(models.AgentEvent(content))
	fmt.Fprintf(r.out, "%s %s\n", color.CyanString("rdteam>"), content)
}

func (r *Runner) info(format string, args ...any) {
	fmt.Fprintln(r.out, color.GreenString(format, args...))
}

func (r *Runner) warn(format string, args ...any) {
	fmt.Fprintln(r.out, color.YellowString(format, args...))
}

func (r *Runner) record(e models.Event) {
	r.history = append(r.history, e)
	if r.transcript == nil {
		return
	}
	if err := r.transcript.Append(e); err != nil {
		r.logger.Warn("transcript write failed", zap.Error(err))
	}
}
