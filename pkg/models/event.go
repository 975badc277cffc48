package models

import "time"

// EventSource identifies who produced a conversation event.
type EventSource string

const (
	// SourceUser marks events typed by the user.
	SourceUser EventSource = "user"
	// SourceAgent marks events produced by an agent.
	SourceAgent EventSource = "agent"
)

// ModeCue is a structured hint that the executor changed mode.
type ModeCue string

const (
	// CueNone carries no mode information.
	CueNone ModeCue = ""
	// CueExecution announces the move from planning to execution.
	CueExecution ModeCue = "execution"
	// CueCompletion announces that the work is finished.
	CueCompletion ModeCue = "completion"
)

// Event is one turn of a conversation. History is append-only and owned by
// the session; the orchestrator only reads it.
type Event struct {
	// Source is who produced the event.
	Source EventSource `json:"source"`
	// Content is the text of the turn.
	Content string `json:"content"`
	// Phase, when set, explicitly overrides the inferred project phase.
	Phase Phase `json:"phase,omitempty"`
	// Cue, when set, explicitly signals an executor mode change.
	Cue ModeCue `json:"cue,omitempty"`
	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// UserEvent creates an event from the user.
func UserEvent(content string) Event {
	return Event{Source: SourceUser, Content: content, Timestamp: time.Now()}
}

// AgentEvent creates an event from an agent.
func AgentEvent(content string) Event {
	return Event{Source: SourceAgent, Content: content, Timestamp: time.Now()}
}
