// Package mode infers which mode the executor agent is in from its own
// conversation history.
//
// The executor starts in planning, moves to execution once it announces it
// is moving to development, and finishes in completion. Nothing is stored:
// a new Detector rebuilds its mode from history, then follows the newest
// messages incrementally.
package mode

import (
	"strings"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// Mode is the executor's current mode.
type Mode string

const (
	// Planning is the initial mode.
	Planning Mode = "PLANNING_MODE"
	// Execution is entered when the executor moves to development.
	Execution Mode = "EXECUTION_MODE"
	// Completion is terminal.
	Completion Mode = "COMPLETION_MODE"
)

// Text cues matched case-insensitively when an event carries no structured cue.
const (
	ExecutionCue  = "moving to development"
	CompletionCue = "development complete"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Template names the prompt template used in this mode.
func (m Mode) Template() string {
	switch m {
	case Execution:
		return "execution"
	case Completion:
		return "completion"
	default:
		return "planning"
	}
}

// rank orders modes so transitions only move forward.
func (m Mode) rank() int {
	switch m {
	case Execution:
		return 1
	case Completion:
		return 2
	default:
		return 0
	}
}

// Detector tracks the mode of one executor run. It is not safe for
// concurrent use; each executor run owns its own Detector.
type Detector struct {
	current Mode
}

// NewDetector returns a detector in planning mode.
func NewDetector() *Detector {
	return &Detector{current: Planning}
}

// Current returns the current mode.
func (d *Detector) Current() Mode {
	return d.current
}

// InitializeFromHistory resets the detector and scans history oldest first.
// A completion cue ends the scan in completion mode. An execution cue moves
// to execution mode and the scan continues, so a later completion cue
// still applies.
func (d *Detector) InitializeFromHistory(history []models.Event) Mode {
	d.current = Planning
	for _, e := range history {
		switch cueOf(e) {
		case models.CueCompletion:
			d.current = Completion
			return d.current
		case models.CueExecution:
			d.current = Execution
		}
	}
	return d.current
}

// DetectTransition returns the mode the latest event asks for, or the
// current mode if it carries no cue. It does not change the detector.
func (d *Detector) DetectTransition(latest models.Event) Mode {
	switch cueOf(latest) {
	case models.CueCompletion:
		return Completion
	case models.CueExecution:
		return Execution
	default:
		return d.current
	}
}

// Observe applies DetectTransition to the detector. Transitions never move
// backwards. It reports whether the mode changed.
func (d *Detector) Observe(latest models.Event) (Mode, bool) {
	next := d.DetectTransition(latest)
	if next.rank() <= d.current.rank() {
		return d.current, false
	}
	d.current = next
	return d.current, true
}

// cueOf returns the structured cue of an event, falling back to a
// case-insensitive substring match on its content. Completion is checked
// before execution.
func cueOf(e models.Event) models.ModeCue {
	if e.Cue != models.CueNone {
		return e.Cue
	}
	content := strings.ToLower(e.Content)
	if strings.Contains(content, CompletionCue) {
		return models.CueCompletion
	}
	if strings.Contains(content, ExecutionCue) {
		return models.CueExecution
	}
	return models.CueNone
}
