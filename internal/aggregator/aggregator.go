// Package aggregator reduces a sequence of AgentResponses into a single
// user-facing string and a summary record.
package aggregator

import (
	"context"
	"sort"
	"strings"

	"github.com/seiggy/lucia/internal/config"
	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/telemetry"
)

// Options mirrors config.AggregatorOptions with defaults filled in.
type Options struct {
	AgentPriority          []string
	DefaultSuccessTemplate string
	DefaultFallbackMessage string
	DefaultFailureMessage  string
}

// NewOptions applies spec.md §4.6's defaults to anything left empty in c.
func NewOptions(c config.AggregatorOptions) Options {
	o := Options{
		AgentPriority:          c.AgentPriority,
		DefaultSuccessTemplate: c.DefaultSuccessTemplate,
		DefaultFallbackMessage: c.DefaultFallbackMessage,
		DefaultFailureMessage:  c.DefaultFailureMessage,
	}
	if o.DefaultFallbackMessage == "" {
		o.DefaultFallbackMessage = "I wasn't able to get a response from any agent."
	}
	if o.DefaultFailureMessage == "" {
		o.DefaultFailureMessage = "Something went wrong while handling your request."
	}
	return o
}

// Aggregator composes one AggregatedResult from a Dispatcher's responses.
type Aggregator struct {
	opts         Options
	priorityRank map[string]int
}

// New builds an Aggregator from opts.
func New(opts Options) *Aggregator {
	rank := make(map[string]int, len(opts.AgentPriority))
	for i, id := range opts.AgentPriority {
		rank[id] = i
	}
	return &Aggregator{opts: opts, priorityRank: rank}
}

// Aggregate implements the 4-step algorithm of spec.md §4.6.
func (a *Aggregator) Aggregate(ctx context.Context, responses []pipeline.AgentResponse) pipeline.AggregatedResult {
	_, span := telemetry.StartSpan(ctx, observerbus.StageAggregator)
	defer telemetry.EndSpan(span, nil)

	if len(responses) == 0 {
		return pipeline.AggregatedResult{Message: a.opts.DefaultFallbackMessage}
	}

	var successful, failed []pipeline.AgentResponse
	var totalMS int64
	for _, r := range responses {
		totalMS += r.ClampedExecutionMS()
		if r.Success {
			successful = append(successful, r)
		} else {
			failed = append(failed, r)
		}
	}

	a.orderByPriority(successful)

	result := pipeline.AggregatedResult{
		TotalExecutionMS: totalMS,
	}
	for _, r := range successful {
		result.SuccessfulAgents = append(result.SuccessfulAgents, r.AgentID)
	}
	for _, r := range failed {
		result.FailedAgents = append(result.FailedAgents, pipeline.FailedAgent{AgentID: r.AgentID, Error: r.ErrorMessage})
	}

	result.Message = a.compose(successful, failed)
	return result
}

// orderByPriority sorts successful in place: index in AgentPriority
// ascending (agents absent from the list sort after priority-listed ones),
// ties broken by original arrival order (sort.SliceStable).
func (a *Aggregator) orderByPriority(successful []pipeline.AgentResponse) {
	sort.SliceStable(successful, func(i, j int) bool {
		ri, oki := a.priorityRank[successful[i].AgentID]
		rj, okj := a.priorityRank[successful[j].AgentID]
		if oki && okj {
			return ri < rj
		}
		if oki != okj {
			return oki // priority-listed agents sort first
		}
		return false // both absent: stable sort preserves arrival order
	})
}

func (a *Aggregator) compose(successful, failed []pipeline.AgentResponse) string {
	switch {
	case len(successful) == 0:
		return a.failureOnlyMessage(failed)
	case len(failed) == 0:
		return joinSuccesses(successful)
	default:
		return joinSuccesses(successful) + " However, " + joinFailureSentences(failed)
	}
}

// failureOnlyMessage opens with the configured failure message as the
// overall-trouble sentence, then lists each failed agent's error behind the
// same "However," connector the mixed branch uses.
func (a *Aggregator) failureOnlyMessage(failed []pipeline.AgentResponse) string {
	return a.opts.DefaultFailureMessage + " However, " + joinFailureSentences(failed)
}

func joinFailureSentences(failed []pipeline.AgentResponse) string {
	sentences := make([]string, 0, len(failed))
	for _, f := range failed {
		sentences = append(sentences, f.ErrorMessage+".")
	}
	return strings.Join(sentences, " ")
}

// joinSuccesses concatenates content in order, separated by a single space,
// or a newline when the preceding content already ends in sentence
// punctuation. A single success is returned verbatim.
func joinSuccesses(successful []pipeline.AgentResponse) string {
	if len(successful) == 1 {
		return successful[0].Content
	}
	var b strings.Builder
	for i, r := range successful {
		if i > 0 {
			prev := successful[i-1].Content
			if endsWithSentencePunctuation(prev) {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(r.Content)
	}
	return b.String()
}

func endsWithSentencePunctuation(s string) bool {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}
