package orchestrator

import (
	"go.uber.org/zap"
)

// DefaultDoneCues end requirements gathering when found in a user message.
var DefaultDoneCues = []string{"/done", "no more requirements", "listo", "terminé"}

// DefaultAffirmatives confirm a move to the next phase.
var DefaultAffirmatives = []string{"yes", "y"}

// Option configures a Machine. Use With* functions to create Options.
type Option func(*machineOptions)

type machineOptions struct {
	logger       *zap.Logger
	doneCues     []string
	affirmatives []string
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *machineOptions) { o.logger = l }
}

// WithDoneCues replaces the phrases that end requirements gathering.
func WithDoneCues(cues ...string) Option {
	return func(o *machineOptions) { o.doneCues = cues }
}

// WithAffirmatives replaces the replies accepted as "move to the next phase".
func WithAffirmatives(words ...string) Option {
	return func(o *machineOptions) { o.affirmatives = words }
}
