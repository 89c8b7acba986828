// Package router selects the primary agent (and any additional agents) to
// handle an incoming utterance, by prompting a chat client for a strict
// JSON routing decision and normalizing/validating the result.
package router

// Decision is the Router's output. After Normalize, PrimaryAgentID is
// never present in AdditionalAgentIDs.
type Decision struct {
	PrimaryAgentID     string
	AdditionalAgentIDs []string
	Confidence         float64
	Reasoning          string
}

// rawDecision is the wire shape the chat client is asked to produce,
// matching spec.md §6's Router->chat-client response body.
type rawDecision struct {
	AgentID          string   `json:"agentId"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	AdditionalAgents []string `json:"additionalAgents"`
}
