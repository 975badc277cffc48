package orchestrator

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

func TestDelivery_DelegatesSingleTask(t *testing.T) {
	ctx := context.Background()
	m, store := setupTestMachine(t)
	seedTasks(t, store, models.Task{
		Title:       "Implement Feature X",
		Description: "the feature",
		Phase:       models.PhaseDevelopment,
	})

	action, err := m.Step(ctx, history("request"))
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	d, ok := action.(DelegateAction)
	if !ok {
		t.Fatalf("Step = %T, want DelegateAction", action)
	}
	if d.Request.Target != delegate.ExecutorName {
		t.Errorf("Target = %q, want %q", d.Request.Target, delegate.ExecutorName)
	}
	if d.Request.TaskTitle != "Implement Feature X" {
		t.Errorf("TaskTitle = %q, want Implement Feature X", d.Request.TaskTitle)
	}

	task, _, err := store.Get(ctx, "Implement_Feature_X")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status == models.TaskStatusCompleted {
		t.Error("Step completed the delegated task")
	}
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("Status = %q, want in_progress", task.Status)
	}
}

func TestDelivery_FirstUnfinishedInOrder(t *testing.T) {
	m, store := setupTestMachine(t)
	seedTasks(t, store,
		models.Task{Title: "Zeta", Phase: models.PhaseTesting, Status: models.TaskStatusCompleted},
		models.Task{Title: "Alpha", Phase: models.PhaseTesting},
		models.Task{Title: "Beta", Phase: models.PhaseTesting},
	)

	action, err := m.Step(context.Background(), history("request"))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := action.(DelegateAction)
	if !ok {
		t.Fatalf("Step = %T, want DelegateAction", action)
	}
	if d.Request.TaskTitle != "Alpha" {
		t.Errorf("delegated %q, want Alpha (first unfinished by creation)", d.Request.TaskTitle)
	}
}

func TestDelivery_RedelegatesInProgressTask(t *testing.T) {
	ctx := context.Background()
	m, store := setupTestMachine(t)
	seedTasks(t, store, models.Task{Title: "Build", Phase: models.PhaseDevelopment, Status: models.TaskStatusInProgress})

	if _, err := m.Step(ctx, history("request")); err != nil {
		t.Fatal(err)
	}
	task, _, _ := store.Get(ctx, "Build")
	if task.Version != 1 {
		t.Errorf("Version = %d, want 1 (no redundant update)", task.Version)
	}
}

func TestDelivery_NoTasks(t *testing.T) {
	tests := []struct {
		phase models.Phase
		want  string
	}{
		{models.PhaseDevelopment, "No development tasks found. Let's create some based on the requirements."},
		{models.PhaseTesting, "No testing tasks found. Let's create some to verify the implemented features."},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			m, store := setupTestMachine(t)
			h := history("request", models.AgentEvent("phase: "+string(tt.phase)))

			if got := stepMessage(t, m, h); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
			tasks, _ := store.ListAll(context.Background())
			if len(tasks) != 0 {
				t.Errorf("Step created %d tasks, want none", len(tasks))
			}
		})
	}
}

func TestDelivery_ReadFailureTreatedAsNoTasks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m, store := setupTestMachine(t, WithLogger(zap.New(core)))
	seedTasks(t, store, models.Task{Title: "Build", Phase: models.PhaseDevelopment})
	store.listByPhaseErr = errors.New("io error")

	got := stepMessage(t, m, history("request"))
	if got != noTasksMessages[models.PhaseDevelopment] {
		t.Errorf("message = %q, want no-tasks message", got)
	}
	if logs.FilterMessage("listing phase tasks failed, treating as none").Len() != 1 {
		t.Error("expected read failure to be logged")
	}
}

func TestDelivery_UpdateFailureStillDelegates(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m, store := setupTestMachine(t, WithLogger(zap.New(core)))
	seedTasks(t, store, models.Task{Title: "Build", Phase: models.PhaseDevelopment})
	store.updateErr = errors.New("locked")

	action, err := m.Step(context.Background(), history("request"))
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if _, ok := action.(DelegateAction); !ok {
		t.Errorf("Step = %T, want DelegateAction", action)
	}
	if logs.FilterMessage("marking task in progress failed").Len() != 1 {
		t.Error("expected update failure to be logged")
	}
}

func TestDelivery_AllCompleted(t *testing.T) {
	ctx := context.Background()
	m, store := setupTestMachine(t)
	seedTasks(t, store, models.Task{Title: "Build", Phase: models.PhaseDevelopment, Status: models.TaskStatusCompleted})

	got := stepMessage(t, m, history("request", models.AgentEvent("done"), models.UserEvent("great")))
	want := "Development phase completed. Shall we move to testing? (Reply 'yes' to continue)"
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if p := m.CurrentPhase(ctx, history("request")); p != models.PhaseDevelopment {
		t.Fatalf("phase moved without confirmation: %q", p)
	}

	got = stepMessage(t, m, history("request", models.AgentEvent(want), models.UserEvent("Yes")))
	if got != "Moving to testing. Created task 'Test Core Features'." {
		t.Errorf("message = %q", got)
	}
	if p := m.CurrentPhase(ctx, history("request")); p != models.PhaseTesting {
		t.Errorf("CurrentPhase() = %q, want testing", p)
	}

	action, err := m.Step(ctx, history("request"))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := action.(DelegateAction)
	if !ok || d.Request.TaskTitle != "Test Core Features" {
		t.Errorf("Step = %#v, want delegation of the testing seed task", action)
	}
}
