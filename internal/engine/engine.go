// Package engine owns one request end-to-end: it wires the Durable Task
// Store, Observer Bus, Agent Registry, Router, Dispatcher, and Aggregator
// together per spec.md §4.7.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/seiggy/lucia/internal/aggregator"
	"github.com/seiggy/lucia/internal/dispatcher"
	"github.com/seiggy/lucia/internal/observability"
	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/registry"
	"github.com/seiggy/lucia/internal/router"
	"github.com/seiggy/lucia/internal/task"
	"github.com/seiggy/lucia/internal/telemetry"
)

// gracefulFailureMessage is returned to the caller (and never a stack
// trace or raw error) on internal_error, per spec.md §6.
const gracefulFailureMessage = "I encountered an issue processing your request."

// WrapperResolver builds the agent_id -> dispatcher.Invoker map for one
// request's routing decision. The Engine has no opinion on how local vs.
// remote wrappers are constructed; that belongs to whatever wired the
// process together (cmd/orchestrator).
type WrapperResolver interface {
	Resolve(decision router.Decision) map[string]dispatcher.Invoker
}

// SessionOptions bounds how long a resumed task's history is trusted
// before the Engine starts a fresh OrchestrationContext (SPEC_FULL.md §5).
type SessionOptions struct {
	SessionCacheLength time.Duration
	MaxHistoryItems    int
}

// Engine is the Orchestrator Engine (C8).
type Engine struct {
	store      task.Store
	bus        *observerbus.Bus
	registry   *registry.Registry
	router     *router.Router
	resolver   WrapperResolver
	aggregator *aggregator.Aggregator
	session    SessionOptions

	ready bool
}

// New wires together the components an Engine needs to process requests.
func New(
	store task.Store,
	bus *observerbus.Bus,
	reg *registry.Registry,
	rt *router.Router,
	resolver WrapperResolver,
	agg *aggregator.Aggregator,
	session SessionOptions,
) *Engine {
	return &Engine{
		store:      store,
		bus:        bus,
		registry:   reg,
		router:     rt,
		resolver:   resolver,
		aggregator: agg,
		session:    session,
		ready:      true,
	}
}

// ErrCanceled is returned by ProcessRequest when ctx is canceled, distinct
// from any per-agent failure.
var ErrCanceled = errors.New("request canceled")

// ProcessRequest implements spec.md §4.7's 10 steps.
func (e *Engine) ProcessRequest(ctx context.Context, userUtterance string, taskID string) (reply string, err error) {
	requestID := uuid.NewString()
	ctx = telemetry.ContextWithRequestID(ctx, requestID)
	ctx, span := telemetry.StartSpan(ctx, observerbus.StageEngine)
	defer func() { telemetry.EndSpan(span, err) }()

	// Step 2: resolve task.
	t, octx, warning := e.resolveTask(ctx, taskID)

	// Step 1: publish RequestStarted.
	e.publish(ctx, observerbus.Event{
		Kind:      observerbus.KindRequestStarted,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		RequestStarted: &observerbus.RequestStarted{
			UserUtterance: userUtterance,
			HasHistory:    len(octx.History) > 0,
		},
	})
	if warning != "" {
		observability.LoggerWithTrace(ctx).Warn().Str("request_id", requestID).Str("warning", warning).Msg("engine_storage_warning")
	}

	// Step 3: append user turn, persist.
	userTurn := pipeline.ChatTurn{Role: "user", Text: userUtterance, Timestamp: time.Now().UTC()}
	octx.AppendTurn(userTurn)
	if t != nil {
		t.AppendTurn(task.NewTurn(task.RoleUser, requestID+"-user", userUtterance))
		t.TrimHistory(e.historyLimit())
		e.persist(ctx, t)
	}

	if cErr := ctx.Err(); cErr != nil {
		e.cancelTask(ctx, t)
		err = ErrCanceled
		return "", err
	}

	// Step 4: route.
	decision, routeErr := e.router.Route(ctx, userUtterance, e.recapFrom(t))
	if routeErr != nil {
		if ctx.Err() != nil {
			e.cancelTask(ctx, t)
			err = ErrCanceled
			return "", err
		}
		reply, err = e.internalError(ctx, requestID, t, "router", routeErr)
		return reply, err
	}
	e.publish(ctx, observerbus.Event{
		Kind:      observerbus.KindRoutingCompleted,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		RoutingCompleted: &observerbus.RoutingCompleted{
			PrimaryAgentID:     decision.PrimaryAgentID,
			AdditionalAgentIDs: decision.AdditionalAgentIDs,
			Confidence:         decision.Confidence,
			Reasoning:          decision.Reasoning,
		},
	})

	// Step 5: build wrapper map.
	wrappers := e.resolver.Resolve(decision)

	// Step 6: dispatch.
	responses, dispatchErr := dispatcher.Dispatch(ctx, decision.PrimaryAgentID, decision.AdditionalAgentIDs, wrappers, userTurn, octx)
	for _, r := range responses {
		e.publish(ctx, observerbus.Event{
			Kind:      observerbus.KindAgentExecutionCompleted,
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
			AgentExecutionCompleted: &observerbus.AgentExecutionCompleted{
				AgentID:     r.AgentID,
				Success:     r.Success,
				ErrorMsg:    r.ErrorMessage,
				ExecutionMS: r.ExecutionMS,
			},
		})
	}
	if dispatchErr != nil {
		e.cancelTask(ctx, t)
		err = ErrCanceled
		return "", err
	}

	// Step 7: aggregate.
	result := e.aggregator.Aggregate(ctx, responses)

	// Step 8: persist assistant turn + final status.
	finalStatus := task.StatusCompleted
	if len(result.SuccessfulAgents) == 0 && len(result.FailedAgents) > 0 {
		finalStatus = task.StatusFailed
	}
	if t != nil {
		t.AppendTurn(task.NewTurn(task.RoleAgent, requestID+"-assistant", result.Message))
		t.TrimHistory(e.historyLimit())
		e.transition(ctx, t, finalStatus)
		e.persist(ctx, t)
	}

	// Step 9: publish ResponseAggregated.
	e.publish(ctx, observerbus.Event{
		Kind:      observerbus.KindResponseAggregated,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		ResponseAggregated: &observerbus.ResponseAggregated{
			FinalText: result.Message,
		},
	})

	// Step 10.
	return result.Message, nil
}

func (e *Engine) historyLimit() int {
	if e.session.MaxHistoryItems > 0 {
		return e.session.MaxHistoryItems
	}
	return 20
}

// resolveTask implements step 2, plus the SPEC_FULL.md §5 session-staleness
// rule: history older than SessionCacheLength since the task's last status
// update starts a fresh OrchestrationContext rather than resuming threads
// against stale agent state.
func (e *Engine) resolveTask(ctx context.Context, taskID string) (*task.Task, *pipeline.OrchestrationContext, string) {
	if taskID != "" {
		t, err := e.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, pipeline.NewContext(uuid.NewString(), e.historyLimit()), "storage_unavailable: " + err.Error()
		}
		if t != nil {
			octx := pipeline.NewContext(t.ContextID, e.historyLimit())
			if e.session.SessionCacheLength <= 0 || time.Since(t.Status.Timestamp) <= e.session.SessionCacheLength {
				for _, turn := range t.History {
					octx.AppendTurn(pipeline.ChatTurn{Role: string(turn.Role), Text: turn.Text(), Timestamp: turn.Timestamp})
				}
			}
			return t, octx, ""
		}
	}

	id := taskID
	if id == "" {
		id = uuid.NewString()
	}
	contextID := uuid.NewString()
	newTask := task.New(id, contextID)
	if err := e.store.SetTask(ctx, newTask); err != nil {
		return nil, pipeline.NewContext(contextID, e.historyLimit()), "storage_unavailable: " + err.Error()
	}
	if err := e.store.UpdateStatus(ctx, newTask.ID, task.StatusWorking, nil); err == nil {
		e.transition(ctx, newTask, task.StatusWorking)
	}
	return newTask, pipeline.NewContext(contextID, e.historyLimit()), ""
}

// transition moves t to next if the A2A state machine allows it
// (task.CanTransition), logging and discarding illegal requests rather than
// corrupting t's recorded status.
func (e *Engine) transition(ctx context.Context, t *task.Task, next task.Status) {
	if t == nil {
		return
	}
	if !task.CanTransition(t.Status.State, next) {
		observability.LoggerWithTrace(ctx).Warn().
			Str("task_id", t.ID).Str("from", string(t.Status.State)).Str("to", string(next)).
			Msg("engine_illegal_transition")
		return
	}
	t.Status.State = next
	t.Status.Timestamp = time.Now().UTC()
}

func (e *Engine) recapFrom(t *task.Task) *router.Recap {
	if t == nil || len(t.Metadata) == 0 {
		return nil
	}
	recap := &router.Recap{}
	if loc, ok := t.Metadata["location"].(string); ok {
		recap.Location = loc
	}
	if topic, ok := t.Metadata["conversationTopic"].(string); ok {
		recap.ConversationTopic = topic
	}
	if prev, ok := t.Metadata["previousAgents"].([]string); ok {
		recap.PreviousAgents = prev
	} else if prevAny, ok := t.Metadata["previousAgents"].([]any); ok {
		for _, p := range prevAny {
			if s, ok := p.(string); ok {
				recap.PreviousAgents = append(recap.PreviousAgents, s)
			}
		}
	}
	return recap
}

func (e *Engine) persist(ctx context.Context, t *task.Task) {
	if t == nil {
		return
	}
	if err := e.store.SetTask(ctx, t); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("task_id", t.ID).Msg("engine_persist_failed")
	}
}

func (e *Engine) cancelTask(ctx context.Context, t *task.Task) {
	if t == nil {
		return
	}
	e.transition(ctx, t, task.StatusCanceled)
	e.persist(context.Background(), t)
}

func (e *Engine) internalError(ctx context.Context, requestID string, t *task.Task, stage string, cause error) (string, error) {
	message := redactErrorMessage(cause)
	observability.LoggerWithTrace(ctx).Error().Str("request_id", requestID).Str("stage", stage).Str("error", message).Msg("engine_internal_error")
	e.publish(ctx, observerbus.Event{
		Kind:      observerbus.KindError,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Error:     &observerbus.ErrorEvent{Stage: stage, Message: message},
	})
	return gracefulFailureMessage, nil
}

// redactErrorMessage scrubs cause's message through observability.RedactJSON
// when the whole message is itself a JSON document; any other error string,
// including one with a JSON body after a text prefix, passes through
// unchanged.
func redactErrorMessage(cause error) string {
	msg := cause.Error()
	if !json.Valid([]byte(msg)) {
		return msg
	}
	return string(observability.RedactJSON(json.RawMessage(msg)))
}

func (e *Engine) publish(ctx context.Context, event observerbus.Event) {
	if e.bus == nil {
		return
	}
	e.bus.PublishCtx(ctx, event)
}

// Status is the Engine's public GetStatus() surface (spec.md §6).
type Status struct {
	IsReady             bool
	AvailableAgentCount int
	AvailableAgents     []registry.AgentCard
}

// GetStatus reports readiness and the current registry snapshot.
func (e *Engine) GetStatus() Status {
	cards := e.registry.List()
	return Status{
		IsReady:             e.ready,
		AvailableAgentCount: len(cards),
		AvailableAgents:     cards,
	}
}

// Subscribe passes through to the Observer Bus.
func (e *Engine) Subscribe(handler observerbus.Handler) uint64 {
	return e.bus.Subscribe(handler)
}

// Unsubscribe passes through to the Observer Bus.
func (e *Engine) Unsubscribe(id uint64) {
	e.bus.Unsubscribe(id)
}
