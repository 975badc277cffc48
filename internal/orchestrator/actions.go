package orchestrator

import (
	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ActionKind names an action for logs and metrics.
type ActionKind string

const (
	KindFinish   ActionKind = "finish"
	KindMessage  ActionKind = "message"
	KindDelegate ActionKind = "delegate"
	KindLLMTurn  ActionKind = "llm_turn"
)

// Action is the outcome of one orchestrator turn. The set of actions is
// closed; switch on the concrete type to apply one.
type Action interface {
	Kind() ActionKind
	isAction()
}

// FinishAction ends the session.
type FinishAction struct {
	Thought string
}

// MessageAction shows a message to the user and waits for a reply.
type MessageAction struct {
	Content string
}

// DelegateAction hands a task to the executor without waiting for it.
type DelegateAction struct {
	Request delegate.Request
}

// LLMTurnAction asks the session to run a general model turn with the
// phase injected into the prompt context.
type LLMTurnAction struct {
	Phase         models.Phase
	PromptContext string
}

func (FinishAction) Kind() ActionKind   { return KindFinish }
func (MessageAction) Kind() ActionKind  { return KindMessage }
func (DelegateAction) Kind() ActionKind { return KindDelegate }
func (LLMTurnAction) Kind() ActionKind  { return KindLLMTurn }

func (FinishAction) isAction()   {}
func (MessageAction) isAction()  {}
func (DelegateAction) isAction() {}
func (LLMTurnAction) isAction()  {}
