// Package orchestrator drives a project through its development phases.
//
// The Machine holds no state of its own. Each call recomputes the current
// phase from the conversation history and the backlog:
//
//   - an explicit phase marker in the history wins (newest first)
//   - otherwise the furthest phase that has at least one task
//   - otherwise requirements gathering
//
// Step turns that phase into a single Action for the session to apply:
// print a message, delegate a task to the executor, run a general LLM turn,
// or finish.
//
// Example usage:
//
//	m := orchestrator.New(store, orchestrator.WithLogger(logger))
//	action, err := m.Step(ctx, history)
package orchestrator
