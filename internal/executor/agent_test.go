package executor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/internal/llm"
	"github.com/ShayCichocki/rdteam/internal/mode"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// scriptedGateway replies with canned texts in order and records requests.
type scriptedGateway struct {
	mu       sync.Mutex
	replies  []string
	err      error
	errAt    int
	requests []llm.Request
}

func (g *scriptedGateway) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	if g.err != nil && n == g.errAt {
		return nil, g.err
	}
	if n > len(g.replies) {
		return &llm.Response{Text: "still working"}, nil
	}
	return &llm.Response{Text: g.replies[n-1]}, nil
}

func (g *scriptedGateway) Name() string { return "scripted" }

// setupTestAgent creates an agent over a file store holding one
// in-progress task.
func setupTestAgent(t *testing.T, gw llm.Gateway, maxTurns int) (*Agent, backlog.Store, delegate.Request) {
	t.Helper()
	store := backlog.NewFileStore(filepath.Join(t.TempDir(), "backlog"), backlog.FileStoreOptions{})
	task := models.Task{
		Title:       "Implement Feature X",
		Description: "Add tags",
		Phase:       models.PhaseDevelopment,
		Status:      models.TaskStatusInProgress,
	}
	if _, err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	agent := NewAgent(Config{Gateway: gw, Store: store, MaxTurns: maxTurns})
	return agent, store, delegate.Delegate(task)
}

func taskStatus(t *testing.T, store backlog.Store, id string) models.TaskStatus {
	t.Helper()
	task, found, err := store.Get(context.Background(), id)
	if err != nil || !found {
		t.Fatalf("Get(%q) = %v, %v", id, found, err)
	}
	return task.Status
}

func TestAgent_RunToCompletion(t *testing.T) {
	gw := &scriptedGateway{replies: []string{
		"Plan: add a tags column.",
		"Plan is ready. Moving to development.",
		"Added the column and tests.",
		"All green. Development complete.",
		"Added tagging with tests.",
	}}
	agent, store, req := setupTestAgent(t, gw, 10)

	res, err := agent.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Mode != mode.Completion {
		t.Errorf("Mode = %s, want completion", res.Mode)
	}
	if !res.Completed {
		t.Error("Completed = false")
	}
	if res.Turns != 5 {
		t.Errorf("Turns = %d, want 5", res.Turns)
	}
	if res.Summary != "Added tagging with tests." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if got := taskStatus(t, store, req.TaskID); got != models.TaskStatusCompleted {
		t.Errorf("task status = %q, want completed", got)
	}

	// System prompts follow the detected mode.
	wantModes := []string{"Mode: planning", "Mode: planning", "Mode: execution", "Mode: execution", "Mode: completion"}
	for i, want := range wantModes {
		if !strings.Contains(gw.requests[i].System, want) {
			t.Errorf("request %d system prompt missing %q", i, want)
		}
	}

	first := gw.requests[0].Messages
	if len(first) != 1 || !strings.Contains(first[0].Content, "Implement Feature X") {
		t.Errorf("first request messages = %+v, want the briefing", first)
	}
	last := gw.requests[len(gw.requests)-1].Messages
	if last[len(last)-1].Role != llm.RoleUser {
		t.Error("conversation sent to the model does not end with a user message")
	}
}

func TestAgent_CompletionWithoutExecution(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"Nothing to do, development complete.", "No changes needed."}}
	agent, store, req := setupTestAgent(t, gw, 5)

	res, err := agent.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Turns != 2 {
		t.Errorf("Turns = %d, want 2", res.Turns)
	}
	if got := taskStatus(t, store, req.TaskID); got != models.TaskStatusCompleted {
		t.Errorf("task status = %q, want completed", got)
	}
}

func TestAgent_TurnLimit(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"Moving to development."}}
	agent, store, req := setupTestAgent(t, gw, 3)

	res, err := agent.Run(context.Background(), req)
	if !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("Run error = %v, want ErrTurnLimit", err)
	}
	if res.Mode != mode.Execution {
		t.Errorf("Mode = %s, want execution", res.Mode)
	}
	if res.Completed {
		t.Error("Completed = true after turn limit")
	}
	if len(gw.requests) != 3 {
		t.Errorf("model calls = %d, want 3", len(gw.requests))
	}
	if got := taskStatus(t, store, req.TaskID); got != models.TaskStatusInProgress {
		t.Errorf("task status = %q, want in_progress", got)
	}
}

func TestAgent_GatewayError(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"planning"}, err: errors.New("overloaded"), errAt: 2}
	agent, store, req := setupTestAgent(t, gw, 5)

	res, err := agent.Run(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("Run error = %v, want gateway error", err)
	}
	if res.Turns != 2 {
		t.Errorf("Turns = %d, want 2", res.Turns)
	}
	if got := taskStatus(t, store, req.TaskID); got != models.TaskStatusInProgress {
		t.Errorf("task status = %q, want in_progress", got)
	}
}

func TestAgent_SummaryFailureStillCompletes(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"development complete"}, err: errors.New("timeout"), errAt: 2}
	agent, store, req := setupTestAgent(t, gw, 5)

	res, err := agent.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Completed {
		t.Error("Completed = false")
	}
	if res.Summary != "development complete" {
		t.Errorf("Summary = %q, want the last reply", res.Summary)
	}
	if got := taskStatus(t, store, req.TaskID); got != models.TaskStatusCompleted {
		t.Errorf("task status = %q, want completed", got)
	}
}

func TestAgent_MissingTask(t *testing.T) {
	gw := &scriptedGateway{replies: []string{"development complete"}}
	agent, _, req := setupTestAgent(t, gw, 5)
	req.TaskID = "Unknown_Task"

	res, err := agent.Run(context.Background(), req)
	if err == nil {
		t.Fatal("expected error for a task missing from the backlog")
	}
	if res.Completed {
		t.Error("Completed = true for a missing task")
	}
}

func TestBriefing(t *testing.T) {
	got := briefing(delegate.Payload{Title: "T", Instructions: "do it"})
	if got != "Task: T\n\ndo it" {
		t.Errorf("briefing() = %q", got)
	}
	got = briefing(delegate.Payload{Title: "T", Description: "D", Instructions: "do it"})
	if got != "Task: T\n\nD\n\ndo it" {
		t.Errorf("briefing() = %q", got)
	}
}
