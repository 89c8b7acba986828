package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seiggy/lucia/internal/llm"
	"github.com/seiggy/lucia/internal/observability"
	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/registry"
	"github.com/seiggy/lucia/internal/telemetry"
)

const (
	defaultSystemPrompt = "You are the router for a multi-agent assistant. " +
		"Choose exactly one primary agent (and optionally additional agents) " +
		"to handle the user's message. Respond with a strict JSON object only."
	defaultCatalogHeader      = "Available agents:"
	defaultUserPromptTemplate = "%s\n\nUser message: %s"
)

var routingSchema = llm.ResponseSchema{
	Name: "routing_decision",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agentId":          map[string]any{"type": "string"},
			"confidence":       map[string]any{"type": "number"},
			"reasoning":        map[string]any{"type": "string"},
			"additionalAgents": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"agentId", "confidence"},
	},
}

// Recap is the compressed history summary the Engine extracts from a
// DurableTask's metadata before calling the Router. Per spec.md §4.3 step
// 3, the raw conversation content is never forwarded — only these three
// fields.
type Recap struct {
	Location          string
	PreviousAgents    []string
	ConversationTopic string
}

func (r *Recap) empty() bool {
	return r == nil || (r.Location == "" && len(r.PreviousAgents) == 0 && r.ConversationTopic == "")
}

func (r *Recap) render() string {
	if r.empty() {
		return ""
	}
	var parts []string
	if r.Location != "" {
		parts = append(parts, "location: "+r.Location)
	}
	if len(r.PreviousAgents) > 0 {
		parts = append(parts, "previous agents: "+strings.Join(r.PreviousAgents, ", "))
	}
	if r.ConversationTopic != "" {
		parts = append(parts, "prior topic: "+r.ConversationTopic)
	}
	return "Conversation recap (" + strings.Join(parts, "; ") + ")"
}

// Router chooses the agent(s) that should handle an utterance.
type Router struct {
	registry *registry.Registry
	provider llm.Provider
	opts     Options
}

// New builds a Router bound to reg (consulted per-call, always current at
// call time) and provider (selected by opts.ChatClientKey at wiring time).
func New(reg *registry.Registry, provider llm.Provider, opts Options) *Router {
	return &Router{registry: reg, provider: provider, opts: opts}
}

// Route implements the 9-step algorithm of spec.md §4.3.
func (r *Router) Route(ctx context.Context, utterance string, recap *Recap) (decision Decision, err error) {
	ctx, span := telemetry.StartSpan(ctx, observerbus.StageRouter)
	defer func() { telemetry.EndSpan(span, err) }()

	cards := r.registry.List()

	// Step 1: empty registry short-circuits with no chat call.
	if len(cards) == 0 {
		return Decision{
			PrimaryAgentID: r.opts.FallbackAgentID,
			Confidence:     0,
			Reasoning:      "no registered agents",
		}, nil
	}

	// Steps 2-3: catalog + prompt.
	catalog := renderCatalog(cards, r.opts)
	systemPrompt := combinePrompts(r.opts.SystemPromptPreamble, defaultSystemPrompt)
	userPrompt := combinePrompts(defaultCatalogHeader+"\n"+catalog, recap.render())
	userPrompt = fmt.Sprintf(defaultUserPromptTemplate, userPrompt, utterance)

	msgs := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	chatOpts := llm.ChatOptions{
		Model:           r.opts.ChatClientKey,
		Temperature:     r.opts.Temperature,
		MaxOutputTokens: r.opts.MaxOutputTokens,
		ResponseSchema:  &routingSchema,
	}

	// Steps 4-5: call + parse, retrying up to MaxAttempts total calls.
	var raw rawDecision
	var lastErr error
	ok := false
	for attempt := 0; attempt < r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		resp, err := r.provider.Chat(ctx, msgs, chatOpts)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(resp.Content), &raw); err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(raw.AgentID) == "" {
			lastErr = fmt.Errorf("routing response missing agentId")
			continue
		}
		ok = true
		break
	}
	if !ok {
		observability.LoggerWithTrace(ctx).Debug().Err(lastErr).Int("attempts", r.opts.MaxAttempts).Msg("router_parse_failed")
		return Decision{
			PrimaryAgentID: r.opts.FallbackAgentID,
			Confidence:     0,
			Reasoning:      fmt.Sprintf("routing failed after %d attempts", r.opts.MaxAttempts),
		}, nil
	}

	decision = Decision{
		PrimaryAgentID:     strings.ToLower(strings.TrimSpace(raw.AgentID)),
		AdditionalAgentIDs: raw.AdditionalAgents,
		Confidence:         raw.Confidence,
		Reasoning:          raw.Reasoning,
	}

	r.normalize(&decision)

	// Step 7: unknown primary (and not reserved) rewrites to fallback.
	if !r.isKnownOrReserved(decision.PrimaryAgentID) {
		decision.PrimaryAgentID = r.opts.FallbackAgentID
	}

	// Step 8: confidence threshold diverts to clarification.
	if decision.Confidence < r.opts.ConfidenceThreshold {
		decision.Reasoning = clarificationReasoning(decision)
		decision.PrimaryAgentID = r.opts.ClarificationAgentID
	}

	return decision, nil
}

// normalize implements step 6: lowercase, dedupe, remove primary and
// unknown ids from AdditionalAgentIDs, preserving order.
func (r *Router) normalize(d *Decision) {
	seen := make(map[string]bool, len(d.AdditionalAgentIDs))
	out := make([]string, 0, len(d.AdditionalAgentIDs))
	for _, id := range d.AdditionalAgentIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || id == d.PrimaryAgentID || seen[id] {
			continue
		}
		if !r.registry.Has(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	d.AdditionalAgentIDs = out
}

func (r *Router) isKnownOrReserved(id string) bool {
	if id == r.opts.ClarificationAgentID || id == r.opts.FallbackAgentID {
		return true
	}
	return r.registry.Has(id)
}

// clarificationReasoning names the two highest-ranked candidates per
// spec.md §4.3 step 8. "Highest-ranked" here is the primary id followed by
// the first additional id, since the router has no finer-grained per-agent
// score to sort by.
func clarificationReasoning(d Decision) string {
	candidates := []string{d.PrimaryAgentID}
	candidates = append(candidates, d.AdditionalAgentIDs...)
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	return "low-confidence routing; top candidates: " + strings.Join(candidates, ", ")
}
