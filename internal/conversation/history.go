// Package conversation provides read-only queries over a session history.
package conversation

import (
	"strings"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// InitialUserMessage returns the first event authored by the user.
func InitialUserMessage(history []models.Event) (models.Event, bool) {
	for _, e := range history {
		if e.Source == models.SourceUser {
			return e, true
		}
	}
	return models.Event{}, false
}

// LastUserMessage returns the newest event authored by the user.
func LastUserMessage(history []models.Event) (models.Event, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Source == models.SourceUser {
			return history[i], true
		}
	}
	return models.Event{}, false
}

// LastAgentResponse returns the content of the newest agent event, or "".
func LastAgentResponse(history []models.Event) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Source == models.SourceAgent {
			return history[i].Content
		}
	}
	return ""
}

// UserMessages returns the content of every user event in order.
func UserMessages(history []models.Event) []string {
	var msgs []string
	for _, e := range history {
		if e.Source == models.SourceUser {
			msgs = append(msgs, e.Content)
		}
	}
	return msgs
}

// CountUserMessages returns how many events the user authored.
func CountUserMessages(history []models.Event) int {
	n := 0
	for _, e := range history {
		if e.Source == models.SourceUser {
			n++
		}
	}
	return n
}

// IsCommand reports whether the event's trimmed content is exactly cmd.
func IsCommand(e models.Event, cmd string) bool {
	return strings.TrimSpace(e.Content) == cmd
}
