// Package wrapper invokes exactly one agent — local in-process handler or
// remote A2A card — producing exactly one pipeline.AgentResponse per call,
// regardless of how the underlying call fails.
package wrapper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/telemetry"
)

// LocalAgent is the capability a local, in-process agent handler must
// satisfy. thread is the opaque per-conversation state handle (nil on
// first use); the returned thread replaces whatever was stored for this
// agent_id.
type LocalAgent interface {
	Handle(ctx context.Context, turn pipeline.ChatTurn, thread any) (reply pipeline.ChatTurn, newThread any, err error)
}

// RemoteDelivery delivers a task to a remote A2A agent card and returns
// whatever the remote endpoint reports back. Generalized from
// a2a/client.A2AClient.SendTask in the teacher repo.
type RemoteDelivery interface {
	Deliver(ctx context.Context, payload RemoteTaskPayload) (*RemoteTaskResult, error)
}

// RemoteTaskPayload is what gets sent to a remote agent.
type RemoteTaskPayload struct {
	ContextID      string
	TaskID         string
	Message        pipeline.ChatTurn
	AgentExtension string // remote card URL
}

// RemoteTaskStatus mirrors the terminal states a remote task delivery can
// report; spec.md §4.4 only distinguishes success-transport statuses from
// "failed".
type RemoteTaskStatus string

const (
	RemoteStatusCompleted     RemoteTaskStatus = "completed"
	RemoteStatusWorking       RemoteTaskStatus = "working"
	RemoteStatusInputRequired RemoteTaskStatus = "input-required"
	RemoteStatusFailed        RemoteTaskStatus = "failed"
)

// RemoteTaskResult is the response from a RemoteDelivery call. Exactly one
// of FullTask/BareMessage should be set; a result with neither populated is
// treated as "no response" (see invokeRemote).
type RemoteTaskResult struct {
	FullTask    *RemoteFullTask
	BareMessage *string
}

// RemoteFullTask is the "full task object" branch of spec.md §4.4 step 5.
type RemoteFullTask struct {
	Status      RemoteTaskStatus
	LastMessage string
}

// Options are the WrapperOptions of spec.md §4.4.
type Options struct {
	Timeout      time.Duration
	HistoryLimit int
}

// DefaultOptions returns spec.md §4.4's defaults.
func DefaultOptions() Options {
	return Options{Timeout: 30 * time.Second, HistoryLimit: 20}
}

// Wrapper is bound to exactly one agent_id, and to either a LocalAgent or a
// RemoteDelivery (never both, never neither) — the sum type spec.md §9
// calls for, expressed as two optional fields validated at construction.
type Wrapper struct {
	agentID string
	local   LocalAgent
	remote  RemoteDelivery
	cardURL string
	opts    Options
	bus     *observerbus.Bus
}

// NewLocal builds a Wrapper around a local agent handler.
func NewLocal(agentID string, local LocalAgent, opts Options, bus *observerbus.Bus) *Wrapper {
	return &Wrapper{agentID: agentID, local: local, opts: opts, bus: bus}
}

// NewRemote builds a Wrapper around a remote agent card's delivery
// capability. Supplying a nil delivery capability fails construction, per
// spec.md §4.4 ("supplying a remote card without the delivery capability
// fails construction").
func NewRemote(agentID string, cardURL string, remote RemoteDelivery, opts Options, bus *observerbus.Bus) (*Wrapper, error) {
	if remote == nil {
		return nil, errors.New("remote agent wrapper requires a delivery capability")
	}
	return &Wrapper{agentID: agentID, remote: remote, cardURL: cardURL, opts: opts, bus: bus}, nil
}

// AgentID returns the agent_id this wrapper is bound to.
func (w *Wrapper) AgentID() string { return w.agentID }

// Invoke runs the agent once against userTurn and octx, respecting
// w.opts.Timeout composed with the caller's cancellation. It never panics
// out to the caller and always returns a well-formed AgentResponse.
func (w *Wrapper) Invoke(ctx context.Context, userTurn pipeline.ChatTurn, octx *pipeline.OrchestrationContext) (resp pipeline.AgentResponse) {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, observerbus.StageWrapper)
	defer func() {
		var spanErr error
		if !resp.Success {
			spanErr = errors.New(resp.ErrorMessage)
		}
		telemetry.EndSpan(span, spanErr)
	}()

	effectiveCtx, cancel := w.effectiveDeadline(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			resp = w.failure(ctx, fmt.Sprintf("%v", r), start)
		}
	}()

	var content string
	var err error
	if w.local != nil {
		content, err = w.invokeLocal(effectiveCtx, userTurn, octx)
	} else {
		content, err = w.invokeRemote(effectiveCtx, userTurn, octx)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return w.timeoutResponse(ctx, start)
		}
		return w.failure(ctx, err.Error(), start)
	}

	w.recordTurns(octx, userTurn, content)
	octx.PreviousAgentID = w.agentID

	resp = pipeline.AgentResponse{
		AgentID:     w.agentID,
		Content:     content,
		Success:     true,
		ExecutionMS: time.Since(start).Milliseconds(),
	}
	w.publishTerminal(ctx, resp)
	return resp
}

func (w *Wrapper) effectiveDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := w.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (w *Wrapper) invokeLocal(ctx context.Context, userTurn pipeline.ChatTurn, octx *pipeline.OrchestrationContext) (string, error) {
	thread, ok := octx.Thread(w.agentID)
	if !ok {
		thread = nil
	}
	reply, newThread, err := w.local.Handle(ctx, userTurn, thread)
	if err != nil {
		return "", err
	}
	octx.SetThread(w.agentID, newThread)
	return reply.Text, nil
}

func (w *Wrapper) invokeRemote(ctx context.Context, userTurn pipeline.ChatTurn, octx *pipeline.OrchestrationContext) (string, error) {
	payload := RemoteTaskPayload{
		ContextID:      octx.ConversationID,
		Message:        userTurn,
		AgentExtension: w.cardURL,
	}
	result, err := w.remote.Deliver(ctx, payload)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("remote agent returned no response")
	}
	if result.FullTask != nil {
		switch result.FullTask.Status {
		case RemoteStatusCompleted, RemoteStatusWorking, RemoteStatusInputRequired:
			return result.FullTask.LastMessage, nil
		default:
			return "", fmt.Errorf("remote task failed: %s", result.FullTask.Status)
		}
	}
	if result.BareMessage != nil {
		return *result.BareMessage, nil
	}
	return "", errors.New("remote agent returned no response")
}

func (w *Wrapper) recordTurns(octx *pipeline.OrchestrationContext, userTurn pipeline.ChatTurn, assistantText string) {
	octx.AppendTurn(userTurn)
	octx.AppendTurn(pipeline.ChatTurn{Role: "assistant", Text: assistantText, Timestamp: time.Now().UTC()})
}

func (w *Wrapper) timeoutResponse(ctx context.Context, start time.Time) pipeline.AgentResponse {
	resp := pipeline.AgentResponse{
		AgentID:      w.agentID,
		Success:      false,
		ErrorMessage: fmt.Sprintf("agent timed out after %s", w.opts.Timeout),
		ExecutionMS:  time.Since(start).Milliseconds(),
	}
	w.publishTerminal(ctx, resp)
	return resp
}

func (w *Wrapper) failure(ctx context.Context, message string, start time.Time) pipeline.AgentResponse {
	resp := pipeline.AgentResponse{
		AgentID:      w.agentID,
		Success:      false,
		ErrorMessage: message,
		ExecutionMS:  time.Since(start).Milliseconds(),
	}
	w.publishTerminal(ctx, resp)
	return resp
}

func (w *Wrapper) publishTerminal(ctx context.Context, resp pipeline.AgentResponse) {
	w.publish(ctx, observerbus.Event{
		Kind: observerbus.KindAgentExecutionCompleted,
		AgentExecutionCompleted: &observerbus.AgentExecutionCompleted{
			AgentID:     resp.AgentID,
			Success:     resp.Success,
			ErrorMsg:    resp.ErrorMessage,
			ExecutionMS: resp.ExecutionMS,
		},
	})
}

func (w *Wrapper) publish(ctx context.Context, event observerbus.Event) {
	if w.bus == nil {
		return
	}
	w.bus.PublishCtx(ctx, event)
}
