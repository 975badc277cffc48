package models

import (
	"fmt"
	"strings"
)

// Phase is one stage of the fixed project progression.
type Phase string

const (
	// PhaseRequirementsGathering collects requirements from the user.
	PhaseRequirementsGathering Phase = "requirements_gathering"
	// PhasePlanning defines milestones and deliverables.
	PhasePlanning Phase = "planning"
	// PhaseArchitecture designs the system.
	PhaseArchitecture Phase = "architecture"
	// PhaseDevelopment implements features through the executor.
	PhaseDevelopment Phase = "development"
	// PhaseTesting verifies features through the executor.
	PhaseTesting Phase = "testing"
	// PhaseValidation performs final acceptance.
	PhaseValidation Phase = "validation"
)

var phaseOrder = []Phase{
	PhaseRequirementsGathering,
	PhasePlanning,
	PhaseArchitecture,
	PhaseDevelopment,
	PhaseTesting,
	PhaseValidation,
}

// AllPhases returns every phase in progression order.
func AllPhases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}

// FirstPhase is where every project starts.
func FirstPhase() Phase {
	return phaseOrder[0]
}

// Index returns the position of the phase in the progression, or -1 if unknown.
func (p Phase) Index() int {
	for i, known := range phaseOrder {
		if known == p {
			return i
		}
	}
	return -1
}

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Next returns the phase that follows p. ok is false for the last phase
// and for unknown phases.
func (p Phase) Next() (next Phase, ok bool) {
	i := p.Index()
	if i < 0 || i == len(phaseOrder)-1 {
		return "", false
	}
	return phaseOrder[i+1], true
}

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase matches s case-insensitively against the known phases.
// Surrounding whitespace and a trailing period are ignored.
func ParsePhase(s string) (Phase, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, ".")
	norm = strings.ReplaceAll(norm, " ", "_")
	for _, p := range phaseOrder {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// MaxPhase returns the furthest-advanced valid phase among phases.
// ok is false when none of the given phases is valid.
func MaxPhase(phases ...Phase) (max Phase, ok bool) {
	best := -1
	for _, p := range phases {
		if i := p.Index(); i > best {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return phaseOrder[best], true
}

// SeedTask describes the task created when the workflow advances into a phase.
type SeedTask struct {
	Title              string
	Description        string
	AcceptanceCriteria string
}

// Transition is a row of the phase transition table.
type Transition struct {
	From Phase
	To   Phase
	Seed SeedTask
}

// transitions is keyed by the phase being left.
var transitions = map[Phase]Transition{
	PhaseRequirementsGathering: {
		From: PhaseRequirementsGathering,
		To:   PhasePlanning,
		Seed: SeedTask{
			Title:              "Create Project Plan",
			Description:        "Develop a project plan based on requirements",
			AcceptanceCriteria: "Milestones and deliverables are defined",
		},
	},
	PhasePlanning: {
		From: PhasePlanning,
		To:   PhaseArchitecture,
		Seed: SeedTask{
			Title:              "Design System Architecture",
			Description:        "Create architectural blueprints for the system",
			AcceptanceCriteria: "Components and their interfaces are documented",
		},
	},
	PhaseArchitecture: {
		From: PhaseArchitecture,
		To:   PhaseDevelopment,
		Seed: SeedTask{
			Title:              "Implement Core Features",
			Description:        "Develop the core functionality described in the architecture",
			AcceptanceCriteria: "Core features build and run",
		},
	},
	PhaseDevelopment: {
		From: PhaseDevelopment,
		To:   PhaseTesting,
		Seed: SeedTask{
			Title:              "Test Core Features",
			Description:        "Write and execute tests for the implemented features",
			AcceptanceCriteria: "Tests cover the implemented features and pass",
		},
	},
	PhaseTesting: {
		From: PhaseTesting,
		To:   PhaseValidation,
		Seed: SeedTask{
			Title:              "Validate Project",
			Description:        "Perform final validation against the requirements",
			AcceptanceCriteria: "Every requirement is traced to a verified feature",
		},
	},
}

// TransitionFrom returns the transition that leaves p.
// ok is false for the last phase.
func TransitionFrom(p Phase) (Transition, bool) {
	t, ok := transitions[p]
	return t, ok
}
