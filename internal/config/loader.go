package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads .env (if present) and overlays environment variables onto a
// set of sane defaults, the way internal/config/loader.go does it in the
// teacher repo: best-effort dotenv, then direct os.Getenv reads.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		AgentsFile: firstNonEmpty(os.Getenv("LUCIA_AGENTS_FILE"), "agents.yaml"),
		Redis: RedisConfig{
			Enabled:               strings.EqualFold(strings.TrimSpace(os.Getenv("LUCIA_REDIS_ENABLED")), "true"),
			Addr:                  firstNonEmpty(os.Getenv("LUCIA_REDIS_ADDR"), "localhost:6379"),
			Password:              os.Getenv("LUCIA_REDIS_PASSWORD"),
			DB:                    intFromEnv("LUCIA_REDIS_DB", 0),
			TLSInsecureSkipVerify: strings.EqualFold(strings.TrimSpace(os.Getenv("LUCIA_REDIS_TLS_INSECURE")), "true"),
		},
		Obs: ObsConfig{
			OTLP:           os.Getenv("LUCIA_OTLP_ENDPOINT"),
			ServiceName:    firstNonEmpty(os.Getenv("LUCIA_SERVICE_NAME"), "lucia-orchestrator"),
			ServiceVersion: firstNonEmpty(os.Getenv("LUCIA_SERVICE_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("LUCIA_ENVIRONMENT"), "development"),
		},
		Logging: LoggingOptions{
			Level:    firstNonEmpty(os.Getenv("LUCIA_LOG_LEVEL"), "info"),
			FilePath: os.Getenv("LUCIA_LOG_FILE"),
		},
		Router: RouterOptions{
			ChatClientKey:        firstNonEmpty(os.Getenv("LUCIA_ROUTER_CHAT_CLIENT_KEY"), "default"),
			ConfidenceThreshold:  floatFromEnv("LUCIA_ROUTER_CONFIDENCE_THRESHOLD", 0.7),
			MaxAttempts:          intFromEnv("LUCIA_ROUTER_MAX_ATTEMPTS", 3),
			Temperature:          floatFromEnv("LUCIA_ROUTER_TEMPERATURE", 0.3),
			MaxOutputTokens:      intFromEnv("LUCIA_ROUTER_MAX_OUTPUT_TOKENS", 500),
			IncludeCapabilities:  !strings.EqualFold(strings.TrimSpace(os.Getenv("LUCIA_ROUTER_OMIT_CAPABILITIES")), "true"),
			IncludeSkillExamples: !strings.EqualFold(strings.TrimSpace(os.Getenv("LUCIA_ROUTER_OMIT_SKILL_EXAMPLES")), "true"),
			ClarificationAgentID: firstNonEmpty(os.Getenv("LUCIA_ROUTER_CLARIFICATION_AGENT"), "clarification"),
			FallbackAgentID:      firstNonEmpty(os.Getenv("LUCIA_ROUTER_FALLBACK_AGENT"), "general-assistant"),
			SystemPromptPreamble: os.Getenv("LUCIA_ROUTER_SYSTEM_PROMPT_PREAMBLE"),
		},
		Wrapper: WrapperOptions{
			Timeout:      time.Duration(intFromEnv("LUCIA_WRAPPER_TIMEOUT_SECONDS", 30)) * time.Second,
			HistoryLimit: intFromEnv("LUCIA_WRAPPER_HISTORY_LIMIT", 20),
		},
		Aggregator: AggregatorOptions{
			AgentPriority:          parseCommaSeparatedList(os.Getenv("LUCIA_AGGREGATOR_PRIORITY")),
			DefaultSuccessTemplate: firstNonEmpty(os.Getenv("LUCIA_AGGREGATOR_SUCCESS_TEMPLATE"), "{{.Message}}"),
			DefaultFallbackMessage: firstNonEmpty(os.Getenv("LUCIA_AGGREGATOR_FALLBACK_MESSAGE"),
				"I wasn't able to get a response from any agent."),
			DefaultFailureMessage: firstNonEmpty(os.Getenv("LUCIA_AGGREGATOR_FAILURE_MESSAGE"),
				"Something went wrong while handling your request."),
		},
		SessionCache: SessionCacheOptions{
			SessionCacheLength: time.Duration(intFromEnv("LUCIA_SESSION_CACHE_LENGTH_MINUTES", 5)) * time.Minute,
			MaxHistoryItems:    intFromEnv("LUCIA_SESSION_MAX_HISTORY_ITEMS", 20),
		},
		ChatClients: map[string]ChatClientBinding{
			"default": {
				Name:  firstNonEmpty(os.Getenv("LUCIA_DEFAULT_CHAT_CLIENT_NAME"), "default"),
				Model: os.Getenv("LUCIA_DEFAULT_CHAT_CLIENT_MODEL"),
			},
		},
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseCommaSeparatedList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
