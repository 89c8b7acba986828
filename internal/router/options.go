package router

import "github.com/seiggy/lucia/internal/config"

// Options is the subset of config.RouterOptions the Router actually reads,
// with zero-value-safe defaults applied. Build one with NewOptions.
type Options struct {
	ChatClientKey        string
	ConfidenceThreshold  float64
	MaxAttempts          int
	Temperature          float64
	MaxOutputTokens      int
	IncludeCapabilities  bool
	IncludeSkillExamples bool
	ClarificationAgentID string
	FallbackAgentID      string
	SystemPromptPreamble string
}

// NewOptions builds Options from config.RouterOptions, applying spec.md
// §4.3's defaults to the numeric and agent-id fields left at their zero
// value. The two Include flags are taken as given, so a zero-value
// config.RouterOptions leaves both false.
func NewOptions(c config.RouterOptions) Options {
	o := Options{
		ChatClientKey:        c.ChatClientKey,
		ConfidenceThreshold:  c.ConfidenceThreshold,
		MaxAttempts:          c.MaxAttempts,
		Temperature:          c.Temperature,
		MaxOutputTokens:      c.MaxOutputTokens,
		IncludeCapabilities:  c.IncludeCapabilities,
		IncludeSkillExamples: c.IncludeSkillExamples,
		ClarificationAgentID: c.ClarificationAgentID,
		FallbackAgentID:      c.FallbackAgentID,
		SystemPromptPreamble: c.SystemPromptPreamble,
	}
	if o.ConfidenceThreshold == 0 {
		o.ConfidenceThreshold = 0.7
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.Temperature == 0 {
		o.Temperature = 0.3
	}
	if o.MaxOutputTokens == 0 {
		o.MaxOutputTokens = 500
	}
	if o.ClarificationAgentID == "" {
		o.ClarificationAgentID = "clarification"
	}
	if o.FallbackAgentID == "" {
		o.FallbackAgentID = "general-assistant"
	}
	return o
}
