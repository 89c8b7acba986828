// Package pipeline holds the value records shared across the Router,
// Dispatcher, Agent Wrapper, and Aggregator stages, so those packages can
// depend on a common vocabulary without importing each other.
package pipeline

import "time"

// ChatTurn is one turn in an OrchestrationContext's bounded history. It is
// distinct from task.Turn (the durable, A2A-shaped history entry); the
// Engine translates between the two at the task boundary.
type ChatTurn struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// OrchestrationContext is per-conversation mutable state threaded through
// one request's Router/Dispatcher/Wrapper calls. It is owned by a single
// request and handed in sequence between agent wrappers — no concurrent
// mutation.
type OrchestrationContext struct {
	ConversationID  string
	PreviousAgentID string
	History         []ChatTurn
	HistoryLimit    int

	// AgentThreads maps agent_id to an opaque thread handle owned by that
	// agent. NewContext starts it empty; assigning a different
	// ConversationID to an existing context does not clear it.
	AgentThreads map[string]any
}

// NewContext builds a context for conversationID with the given history
// trim limit.
func NewContext(conversationID string, historyLimit int) *OrchestrationContext {
	return &OrchestrationContext{
		ConversationID: conversationID,
		HistoryLimit:   historyLimit,
		AgentThreads:   make(map[string]any),
	}
}

// AppendTurn appends turn and trims from the front until |History| <=
// HistoryLimit.
func (c *OrchestrationContext) AppendTurn(turn ChatTurn) {
	c.History = append(c.History, turn)
	if c.HistoryLimit > 0 && len(c.History) > c.HistoryLimit {
		c.History = c.History[len(c.History)-c.HistoryLimit:]
	}
}

// Thread returns the thread handle stored for agentID and whether one is
// stored. Handles are keyed by agent id only; they are not checked against
// ConversationID.
func (c *OrchestrationContext) Thread(agentID string) (any, bool) {
	t, ok := c.AgentThreads[agentID]
	return t, ok
}

// SetThread stores a (possibly new) thread handle for agentID.
func (c *OrchestrationContext) SetThread(agentID string, handle any) {
	c.AgentThreads[agentID] = handle
}

// AgentResponse is produced by exactly one Agent Wrapper invocation.
type AgentResponse struct {
	AgentID      string
	Content      string
	Success      bool
	ErrorMessage string
	ExecutionMS  int64
}

// ClampedExecutionMS returns ExecutionMS clamped to >= 0, per spec.md §3.
func (r AgentResponse) ClampedExecutionMS() int64 {
	if r.ExecutionMS < 0 {
		return 0
	}
	return r.ExecutionMS
}

// FailedAgent is one entry in an AggregatedResult's failure list.
type FailedAgent struct {
	AgentID string
	Error   string
}

// AggregatedResult is the Aggregator's output handoff record.
type AggregatedResult struct {
	Message          string
	SuccessfulAgents []string
	FailedAgents     []FailedAgent
	TotalExecutionMS int64
}
