// Package dispatcher executes a routing decision against a map of agent
// wrappers, strictly sequentially, collecting one AgentResponse per agent.
package dispatcher

import (
	"context"

	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/telemetry"
)

// Invoker is the subset of wrapper.Wrapper the Dispatcher depends on,
// narrowed to an interface so dispatcher tests don't need a real Wrapper.
type Invoker interface {
	AgentID() string
	Invoke(ctx context.Context, userTurn pipeline.ChatTurn, octx *pipeline.OrchestrationContext) pipeline.AgentResponse
}

// Dispatch runs primaryAgentID followed by additionalAgentIDs, in that
// order, against wrappers. IDs absent from wrappers are dropped silently
// (spec.md §4.5 step 2 — the router's normalization makes this rare, and
// remote-card agents may only be resolved by the caller here). Execution
// is strictly sequential: agent N+1 observes whatever agent N mutated on
// octx. A context cancellation between agents stops the sequence early and
// returns the responses collected so far, plus the cancellation error.
func Dispatch(
	ctx context.Context,
	primaryAgentID string,
	additionalAgentIDs []string,
	wrappers map[string]Invoker,
	userTurn pipeline.ChatTurn,
	octx *pipeline.OrchestrationContext,
) (responses []pipeline.AgentResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, observerbus.StageDispatcher)
	defer func() { telemetry.EndSpan(span, err) }()

	order := make([]string, 0, 1+len(additionalAgentIDs))
	order = append(order, primaryAgentID)
	order = append(order, additionalAgentIDs...)

	responses = make([]pipeline.AgentResponse, 0, len(order))
	for _, id := range order {
		w, ok := wrappers[id]
		if !ok {
			continue
		}
		if cErr := ctx.Err(); cErr != nil {
			err = cErr
			return responses, err
		}
		responses = append(responses, w.Invoke(ctx, userTurn, octx))
	}
	return responses, nil
}
