package orchestrator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/conversation"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// RequirementsTaskTitle is the single task that collects requirements.
const RequirementsTaskTitle = "Gather Requirements"

const requirementsAcceptance = "User requirements have been collected and documented"

const (
	msgRequirementsIntro = "As the Product Owner, please describe all the requirements for your project. " +
		"When finished, reply '/done'."
	msgRequirementsMore = "Noted. Do you have more requirements? If not, reply '/done'."
	msgRequirementsDone = "Thank you! All requirements have been documented. " +
		"Shall we move to planning? (Reply 'yes' to continue)"
)

// handleRequirements collects requirements into one task until the user
// signals they are done, then advances to planning on the following turn.
func (m *Machine) handleRequirements(ctx context.Context, phase models.Phase, history []models.Event) (Action, error) {
	for _, t := range m.listPhase(ctx, phase) {
		if t.IsCompleted() {
			next, err := m.Advance(ctx, phase)
			if err != nil {
				return nil, err
			}
			return MessageAction{Content: TransitionMessage(next)}, nil
		}
	}

	collected := strings.Join(conversation.UserMessages(history), "\n")

	if containsAny(lastUserContent(history), m.doneCues) {
		if err := m.recordRequirements(ctx, collected, models.TaskStatusCompleted); err != nil {
			return nil, err
		}
		return MessageAction{Content: msgRequirementsDone}, nil
	}

	if err := m.recordRequirements(ctx, collected, models.TaskStatusInProgress); err != nil {
		return nil, err
	}
	if conversation.CountUserMessages(history) <= 1 {
		return MessageAction{Content: msgRequirementsIntro}, nil
	}
	return MessageAction{Content: msgRequirementsMore}, nil
}

// recordRequirements upserts the requirements task.
func (m *Machine) recordRequirements(ctx context.Context, description string, status models.TaskStatus) error {
	_, err := m.store.Create(ctx, models.Task{
		Title:              RequirementsTaskTitle,
		Description:        description,
		Phase:              models.PhaseRequirementsGathering,
		Status:             status,
		AcceptanceCriteria: requirementsAcceptance,
	})
	if err != nil {
		StoreErrors.WithLabelValues("create").Inc()
		m.logger.Error("recording requirements failed", zap.Error(err))
		return err
	}
	return nil
}
