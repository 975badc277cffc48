package conversation

import (
	"reflect"
	"testing"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

func sampleHistory() []models.Event {
	return []models.Event{
		models.AgentEvent("welcome"),
		models.UserEvent("build a todo app"),
		models.AgentEvent("noted"),
		models.UserEvent("also add tags"),
		models.AgentEvent("anything else?"),
	}
}

func TestInitialUserMessage(t *testing.T) {
	e, ok := InitialUserMessage(sampleHistory())
	if !ok {
		t.Fatal("expected an initial user message")
	}
	if e.Content != "build a todo app" {
		t.Errorf("Content = %q, want %q", e.Content, "build a todo app")
	}

	if _, ok := InitialUserMessage([]models.Event{models.AgentEvent("hi")}); ok {
		t.Error("expected no initial user message in agent-only history")
	}
	if _, ok := InitialUserMessage(nil); ok {
		t.Error("expected no initial user message in empty history")
	}
}

func TestLastUserMessage(t *testing.T) {
	e, ok := LastUserMessage(sampleHistory())
	if !ok || e.Content != "also add tags" {
		t.Errorf("LastUserMessage = %q, %v; want %q", e.Content, ok, "also add tags")
	}
}

func TestLastAgentResponse(t *testing.T) {
	tests := []struct {
		name    string
		history []models.Event
		want    string
	}{
		{"newest agent wins", sampleHistory(), "anything else?"},
		{"user last", append(sampleHistory(), models.UserEvent("done")), "anything else?"},
		{"no agent", []models.Event{models.UserEvent("x")}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastAgentResponse(tt.history); got != tt.want {
				t.Errorf("LastAgentResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessages(t *testing.T) {
	got := UserMessages(sampleHistory())
	want := []string{"build a todo app", "also add tags"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UserMessages() = %v, want %v", got, want)
	}
	if n := CountUserMessages(sampleHistory()); n != 2 {
		t.Errorf("CountUserMessages() = %d, want 2", n)
	}
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"/exit", true},
		{"  /exit\n", true},
		{"/exit now", false},
		{"/EXIT", false},
		{"please /exit", false},
	}
	for _, tt := range tests {
		if got := IsCommand(models.UserEvent(tt.content), "/exit"); got != tt.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
