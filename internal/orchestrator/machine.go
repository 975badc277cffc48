package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/conversation"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ErrNoInitialUserMessage is returned by Step when the history holds no
// user message. The session cannot continue without the original request.
var ErrNoInitialUserMessage = errors.New("no initial user message in history")

// ErrNoNextPhase is returned by Advance from the last phase.
var ErrNoNextPhase = errors.New("no phase after validation")

// ExitCommand ends the session when sent as the whole user message.
const ExitCommand = "/exit"

const phaseMarker = "phase:"

// phaseHandler decides the action for one phase.
type phaseHandler func(ctx context.Context, phase models.Phase, history []models.Event) (Action, error)

// Machine is the phase state machine. It is safe to share between
// goroutines as long as the store is.
type Machine struct {
	store        backlog.Store
	logger       *zap.Logger
	doneCues     []string
	affirmatives []string
	handlers     map[models.Phase]phaseHandler
}

// New creates a Machine reading and writing tasks through store.
func New(store backlog.Store, opts ...Option) *Machine {
	o := machineOptions{
		doneCues:     DefaultDoneCues,
		affirmatives: DefaultAffirmatives,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	m := &Machine{
		store:        store,
		logger:       o.logger,
		doneCues:     o.doneCues,
		affirmatives: o.affirmatives,
	}
	m.handlers = map[models.Phase]phaseHandler{
		models.PhaseRequirementsGathering: m.handleRequirements,
		models.PhasePlanning:              m.handleGeneral,
		models.PhaseArchitecture:          m.handleGeneral,
		models.PhaseDevelopment:           m.handleDelivery,
		models.PhaseTesting:               m.handleDelivery,
		models.PhaseValidation:            m.handleGeneral,
	}
	return m
}

// CurrentPhase derives the project phase from history and the backlog.
//
// The newest explicit phase marker wins: a structured Phase tag, or a
// "phase:" substring followed by a phase name up to the end of the line.
// Without a marker the furthest phase with a task is returned, and
// requirements gathering when the backlog is empty or unreadable.
func (m *Machine) CurrentPhase(ctx context.Context, history []models.Event) models.Phase {
	if p, ok := markedPhase(history); ok {
		return p
	}

	tasks, err := m.store.ListAll(ctx)
	if err != nil {
		StoreErrors.WithLabelValues("list_all").Inc()
		m.logger.Warn("backlog unavailable, assuming empty", zap.Error(err))
		return models.FirstPhase()
	}

	phases := make([]models.Phase, 0, len(tasks))
	for _, t := range tasks {
		phases = append(phases, t.Phase)
	}
	if p, ok := models.MaxPhase(phases...); ok {
		return p
	}
	return models.FirstPhase()
}

// markedPhase scans history newest first for an explicit phase marker.
// Markers that do not name a known phase are ignored.
func markedPhase(history []models.Event) (models.Phase, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		if e.Phase != "" {
			if p, err := models.ParsePhase(string(e.Phase)); err == nil {
				return p, true
			}
		}

		content := strings.ToLower(e.Content)
		idx := strings.Index(content, phaseMarker)
		if idx < 0 {
			continue
		}
		rest := content[idx+len(phaseMarker):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		if p, err := models.ParsePhase(rest); err == nil {
			return p, true
		}
	}
	return "", false
}

// Step decides the next action for the session.
//
// A user message of exactly /exit finishes the session before any other
// check. A history without a user message is a fatal error.
func (m *Machine) Step(ctx context.Context, history []models.Event) (Action, error) {
	if last, ok := conversation.LastUserMessage(history); ok && conversation.IsCommand(last, ExitCommand) {
		StepsTotal.WithLabelValues("none", string(KindFinish)).Inc()
		return FinishAction{Thought: "User requested exit."}, nil
	}

	if _, ok := conversation.InitialUserMessage(history); !ok {
		return nil, ErrNoInitialUserMessage
	}

	phase := m.CurrentPhase(ctx, history)
	handler, ok := m.handlers[phase]
	if !ok {
		return nil, fmt.Errorf("no handler for phase %q", phase)
	}

	action, err := handler(ctx, phase, history)
	if err != nil {
		return nil, fmt.Errorf("%s turn: %w", phase, err)
	}

	StepsTotal.WithLabelValues(string(phase), string(action.Kind())).Inc()
	m.logger.Debug("orchestrator step",
		zap.String("phase", string(phase)),
		zap.String("action", string(action.Kind())),
	)
	return action, nil
}

// Advance creates the seed task of the phase after from and returns that
// phase. Advancing twice is harmless: the seed task is overwritten.
func (m *Machine) Advance(ctx context.Context, from models.Phase) (models.Phase, error) {
	tr, ok := models.TransitionFrom(from)
	if !ok {
		return from, ErrNoNextPhase
	}

	seed := models.Task{
		Title:              tr.Seed.Title,
		Description:        tr.Seed.Description,
		Phase:              tr.To,
		Status:             models.TaskStatusNotStarted,
		AcceptanceCriteria: tr.Seed.AcceptanceCriteria,
	}
	if _, err := m.store.Create(ctx, seed); err != nil {
		return from, fmt.Errorf("create %s seed task: %w", tr.To, err)
	}

	m.logger.Info("advanced phase",
		zap.String("from", string(from)),
		zap.String("to", string(tr.To)),
		zap.String("seed_task", tr.Seed.Title),
	)
	return tr.To, nil
}

// handleGeneral defers planning, architecture and validation turns to the
// model, with the phase in the prompt context.
func (m *Machine) handleGeneral(_ context.Context, phase models.Phase, _ []models.Event) (Action, error) {
	return LLMTurnAction{
		Phase:         phase,
		PromptContext: PhaseContext(phase),
	}, nil
}

// PhaseContext is the prompt line naming the current phase.
func PhaseContext(phase models.Phase) string {
	return "Current development phase: " + string(phase)
}

// listPhase lists a phase's tasks, treating store failures as no tasks.
func (m *Machine) listPhase(ctx context.Context, phase models.Phase) []models.Task {
	tasks, err := m.store.ListByPhase(ctx, phase)
	if err != nil {
		StoreErrors.WithLabelValues("list_by_phase").Inc()
		m.logger.Warn("listing phase tasks failed, treating as none",
			zap.String("phase", string(phase)),
			zap.Error(err),
		)
		return nil
	}
	return tasks
}

// lastUserContent returns the trimmed newest user message.
func lastUserContent(history []models.Event) string {
	last, _ := conversation.LastUserMessage(history)
	return strings.TrimSpace(last.Content)
}

// containsAny reports whether s contains any of the phrases, ignoring case.
func containsAny(s string, phrases []string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// equalsAny reports whether s equals any of the words, ignoring case.
func equalsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.EqualFold(s, w) {
			return true
		}
	}
	return false
}
