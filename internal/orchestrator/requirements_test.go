package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

func stepMessage(t *testing.T, m *Machine, h []models.Event) string {
	t.Helper()
	action, err := m.Step(context.Background(), h)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	msg, ok := action.(MessageAction)
	if !ok {
		t.Fatalf("Step = %T, want MessageAction", action)
	}
	return msg.Content
}

func requirementsTask(t *testing.T, store backlog.Store) *models.Task {
	t.Helper()
	task, found, err := store.Get(context.Background(), models.Slug(RequirementsTaskTitle))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("requirements task not found")
	}
	return task
}

func TestRequirements_FirstTurnIntroduces(t *testing.T) {
	m, store := setupTestMachine(t)

	got := stepMessage(t, m, history("I need a todo app"))
	if got != msgRequirementsIntro {
		t.Errorf("message = %q, want intro", got)
	}

	task := requirementsTask(t, store)
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("Status = %q, want in_progress", task.Status)
	}
	if task.Description != "I need a todo app" {
		t.Errorf("Description = %q, want the request", task.Description)
	}
}

func TestRequirements_CollectsMore(t *testing.T) {
	m, store := setupTestMachine(t)

	h := history("I need a todo app",
		models.AgentEvent(msgRequirementsIntro),
		models.UserEvent("it needs tags"),
	)
	if got := stepMessage(t, m, h); got != msgRequirementsMore {
		t.Errorf("message = %q, want %q", got, msgRequirementsMore)
	}

	task := requirementsTask(t, store)
	if task.Description != "I need a todo app\nit needs tags" {
		t.Errorf("Description = %q, want joined user messages", task.Description)
	}
}

func TestRequirements_DoneCues(t *testing.T) {
	for _, cue := range []string{"/done", "No more requirements, thanks", "listo", "Terminé"} {
		t.Run(cue, func(t *testing.T) {
			m, store := setupTestMachine(t)
			h := history("I need a todo app", models.AgentEvent("noted"), models.UserEvent(cue))

			if got := stepMessage(t, m, h); got != msgRequirementsDone {
				t.Errorf("message = %q, want %q", got, msgRequirementsDone)
			}

			task := requirementsTask(t, store)
			if task.Status != models.TaskStatusCompleted {
				t.Errorf("Status = %q, want completed", task.Status)
			}
			if task.AcceptanceCriteria != requirementsAcceptance {
				t.Errorf("AcceptanceCriteria = %q", task.AcceptanceCriteria)
			}
		})
	}
}

func TestRequirements_AdvancesAfterCompletion(t *testing.T) {
	ctx := context.Background()
	m, store := setupTestMachine(t)
	seedTasks(t, store, models.Task{
		Title:  RequirementsTaskTitle,
		Phase:  models.PhaseRequirementsGathering,
		Status: models.TaskStatusCompleted,
	})

	got := stepMessage(t, m, history("I need a todo app", models.AgentEvent(msgRequirementsDone), models.UserEvent("yes")))
	want := "Let's start planning! Please describe the main milestones and deliverables for your project."
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	tasks, err := store.ListByPhase(ctx, models.PhasePlanning)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Create Project Plan" {
		t.Fatalf("planning tasks = %+v, want Create Project Plan", tasks)
	}

	if p := m.CurrentPhase(ctx, history("I need a todo app")); p != models.PhasePlanning {
		t.Errorf("CurrentPhase() = %q after advance, want planning", p)
	}
}

func TestRequirements_FullConversation(t *testing.T) {
	ctx := context.Background()
	m, _ := setupTestMachine(t)

	h := history("Build a notes service")
	say := func(user string) string {
		if user != "" {
			h = append(h, models.UserEvent(user))
		}
		msg := stepMessage(t, m, h)
		h = append(h, models.AgentEvent(msg))
		return msg
	}

	if got := say(""); got != msgRequirementsIntro {
		t.Fatalf("turn 1 = %q", got)
	}
	if got := say("Markdown support"); got != msgRequirementsMore {
		t.Fatalf("turn 2 = %q", got)
	}
	if got := say("/done"); got != msgRequirementsDone {
		t.Fatalf("turn 3 = %q", got)
	}
	say("yes")

	action, err := m.Step(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := action.(LLMTurnAction); !ok {
		t.Errorf("planning turn = %T, want LLMTurnAction", action)
	}
}

func TestRequirements_ReadFailureReasks(t *testing.T) {
	m, store := setupTestMachine(t)
	store.listByPhaseErr = errors.New("unreadable")

	if got := stepMessage(t, m, history("request")); got != msgRequirementsIntro {
		t.Errorf("message = %q, want intro", got)
	}
}

func TestRequirements_WriteFailure(t *testing.T) {
	m, store := setupTestMachine(t)
	store.createErr = &backlog.StoreWriteError{Op: "create", ID: "Gather_Requirements", Err: errors.New("read-only")}

	_, err := m.Step(context.Background(), history("request"))
	if !errors.Is(err, backlog.ErrStoreWrite) {
		t.Errorf("Step error = %v, want ErrStoreWrite", err)
	}
	if errors.Is(err, ErrNoInitialUserMessage) {
		t.Error("write failure reported as fatal")
	}
}

func TestRequirements_CustomDoneCues(t *testing.T) {
	m, store := setupTestMachine(t, WithDoneCues("fertig"))

	if got := stepMessage(t, m, history("request", models.UserEvent("/done"))); got != msgRequirementsMore {
		t.Errorf("default cue still honoured: %q", got)
	}
	if got := stepMessage(t, m, history("request", models.UserEvent("fertig"))); got != msgRequirementsDone {
		t.Errorf("custom cue ignored: %q", got)
	}
	if requirementsTask(t, store).Status != models.TaskStatusCompleted {
		t.Error("requirements not completed by custom cue")
	}
}
