// Package builtinagents implements the two reserved pseudo-agents the
// Router can route to directly: clarification and fallback. Neither holds
// conversation state, mirroring the "treat the whole reply as the final
// answer" graceful-fallback idiom in the teacher's agent engine.
package builtinagents

import (
	"context"

	"github.com/seiggy/lucia/internal/pipeline"
)

// ClarificationAgent answers with a templated request for more detail when
// the Router's confidence falls below threshold.
type ClarificationAgent struct {
	Prompt string
}

// DefaultClarificationPrompt is used when Prompt is empty.
const DefaultClarificationPrompt = "I'm not confident which assistant should handle that. Could you give a bit more detail about what you'd like me to do?"

// Handle implements wrapper.LocalAgent. It is stateless: thread is ignored
// and nil is always returned.
func (a ClarificationAgent) Handle(_ context.Context, _ pipeline.ChatTurn, _ any) (pipeline.ChatTurn, any, error) {
	prompt := a.Prompt
	if prompt == "" {
		prompt = DefaultClarificationPrompt
	}
	return pipeline.ChatTurn{Role: "assistant", Text: prompt}, nil, nil
}

// FallbackAgent answers with a templated apology when the Router could not
// match the request to any registered specialist.
type FallbackAgent struct {
	Message string
}

// DefaultFallbackMessage is used when Message is empty.
const DefaultFallbackMessage = "I don't have a specialist registered for that request yet. Could you rephrase it or ask something else?"

// Handle implements wrapper.LocalAgent.
func (a FallbackAgent) Handle(_ context.Context, _ pipeline.ChatTurn, _ any) (pipeline.ChatTurn, any, error) {
	msg := a.Message
	if msg == "" {
		msg = DefaultFallbackMessage
	}
	return pipeline.ChatTurn{Role: "assistant", Text: msg}, nil, nil
}
