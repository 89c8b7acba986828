// Package config loads orchestrator-wide settings from the environment,
// an optional .env file, and a static agent-card seed. It owns no knowledge
// of concrete chat backends or transports; it only describes how the
// pipeline stages should be parameterized.
package config

import "time"

// Config is the root settings object produced by Load.
type Config struct {
	Redis        RedisConfig
	Obs          ObsConfig
	Logging      LoggingOptions
	Router       RouterOptions
	Wrapper      WrapperOptions
	Aggregator   AggregatorOptions
	SessionCache SessionCacheOptions

	// AgentsFile points at the YAML seed consumed by the registry loader.
	AgentsFile string

	// ChatClients maps a chat_client_key (referenced by RouterOptions) to
	// the binding the caller should resolve into
	// a concrete llm.Provider when wiring the process together. The
	// orchestrator core never constructs a Provider itself.
	ChatClients map[string]ChatClientBinding
}

// RedisConfig mirrors the shape manifold's skills package uses for its
// Redis-backed cache: enable flag, address, auth, and an optional relaxed
// TLS mode for self-signed test deployments.
type RedisConfig struct {
	Enabled               bool
	Addr                  string
	Password              string
	DB                    int
	TLSInsecureSkipVerify bool
}

// ObsConfig configures the OTLP exporters in observability.InitOTel.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// LoggingOptions configures observability.InitLogger.
type LoggingOptions struct {
	Level    string
	FilePath string
}

// ChatClientBinding names the provider a chat_client_key should resolve to.
// It carries no vendor-specific fields; the wire protocol lives entirely
// outside this module.
type ChatClientBinding struct {
	Name   string
	Model  string
	Labels map[string]string
}

// RouterOptions parameterizes C4's routing decision.
type RouterOptions struct {
	ChatClientKey          string
	ConfidenceThreshold    float64
	MaxAttempts            int
	Temperature            float64
	MaxOutputTokens        int
	IncludeCapabilities    bool
	IncludeSkillExamples   bool
	ClarificationAgentID   string
	FallbackAgentID        string
	SystemPromptPreamble   string
}

// WrapperOptions parameterizes C5's per-agent execution.
type WrapperOptions struct {
	Timeout      time.Duration
	HistoryLimit int
}

// AggregatorOptions parameterizes C7's reply composition.
type AggregatorOptions struct {
	AgentPriority           []string
	DefaultSuccessTemplate  string
	DefaultFallbackMessage string
	DefaultFailureMessage  string
}

// SessionCacheOptions bounds how long after a task's last status update its
// stored history is still loaded into a resumed orchestration context, and
// how many history items are kept.
type SessionCacheOptions struct {
	SessionCacheLength time.Duration
	MaxHistoryItems    int
}
