package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// noTasksMessages propose task creation for the delivery phases.
var noTasksMessages = map[models.Phase]string{
	models.PhaseDevelopment: "No development tasks found. Let's create some based on the requirements.",
	models.PhaseTesting:     "No testing tasks found. Let's create some to verify the implemented features.",
}

// handleDelivery delegates the first unfinished task of the development or
// testing phase. Once every task is completed it asks to move on, and
// advances when the user agrees.
func (m *Machine) handleDelivery(ctx context.Context, phase models.Phase, history []models.Event) (Action, error) {
	tasks := m.listPhase(ctx, phase)
	if len(tasks) == 0 {
		msg, ok := noTasksMessages[phase]
		if !ok {
			msg = fmt.Sprintf("No %s tasks found. Let's create some.", phase)
		}
		return MessageAction{Content: msg}, nil
	}

	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		if t.Status != models.TaskStatusInProgress {
			m.markInProgress(ctx, t)
		}
		return DelegateAction{Request: delegate.Delegate(t)}, nil
	}

	if equalsAny(lastUserContent(history), m.affirmatives) {
		next, err := m.Advance(ctx, phase)
		if err != nil {
			return nil, err
		}
		return MessageAction{Content: TransitionMessage(next)}, nil
	}
	return MessageAction{Content: phaseCompleteMessage(phase)}, nil
}

// markInProgress records that a task was handed off. Failure is logged and
// does not stop the delegation.
func (m *Machine) markInProgress(ctx context.Context, t models.Task) {
	ok, err := m.store.Update(ctx, t.ID(), models.StatusUpdate(models.TaskStatusInProgress))
	switch {
	case err != nil:
		StoreErrors.WithLabelValues("update").Inc()
		m.logger.Warn("marking task in progress failed",
			zap.String("task", t.Title),
			zap.Error(err),
		)
	case !ok:
		m.logger.Warn("task vanished before it could be marked in progress",
			zap.String("task", t.Title),
		)
	}
}

// phaseCompleteMessage asks whether to move past a finished phase.
func phaseCompleteMessage(phase models.Phase) string {
	next, ok := phase.Next()
	if !ok {
		return fmt.Sprintf("%s phase completed.", phaseLabel(phase))
	}
	return fmt.Sprintf("%s phase completed. Shall we move to %s? (Reply 'yes' to continue)",
		phaseLabel(phase), next)
}

// TransitionMessage announces the phase that was just entered.
func TransitionMessage(to models.Phase) string {
	if to == models.PhasePlanning {
		return "Let's start planning! Please describe the main milestones and deliverables for your project."
	}
	tr, _ := models.TransitionFrom(prevPhase(to))
	return fmt.Sprintf("Moving to %s. Created task '%s'.", to, tr.Seed.Title)
}

// prevPhase returns the phase before p, or p itself for the first phase.
func prevPhase(p models.Phase) models.Phase {
	all := models.AllPhases()
	if i := p.Index(); i > 0 {
		return all[i-1]
	}
	return p
}

// phaseLabel capitalises a phase name for messages.
func phaseLabel(p models.Phase) string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
