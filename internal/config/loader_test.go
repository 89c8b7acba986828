package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	clearLuciaEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AgentsFile != "agents.yaml" {
		t.Errorf("AgentsFile = %q, want agents.yaml", cfg.AgentsFile)
	}
	if cfg.Router.MaxAttempts != 3 {
		t.Errorf("Router.MaxAttempts = %d, want 3", cfg.Router.MaxAttempts)
	}
	if cfg.Router.ConfidenceThreshold != 0.7 {
		t.Errorf("Router.ConfidenceThreshold = %v, want 0.7", cfg.Router.ConfidenceThreshold)
	}
	if cfg.Wrapper.Timeout != 30*time.Second {
		t.Errorf("Wrapper.Timeout = %v, want 30s", cfg.Wrapper.Timeout)
	}
	if cfg.Wrapper.HistoryLimit != 20 {
		t.Errorf("Wrapper.HistoryLimit = %d, want 20", cfg.Wrapper.HistoryLimit)
	}
	if cfg.SessionCache.SessionCacheLength != 5*time.Minute {
		t.Errorf("SessionCache.SessionCacheLength = %v, want 5m", cfg.SessionCache.SessionCacheLength)
	}
	if cfg.SessionCache.MaxHistoryItems != 20 {
		t.Errorf("SessionCache.MaxHistoryItems = %d, want 20", cfg.SessionCache.MaxHistoryItems)
	}
	if cfg.Redis.Enabled {
		t.Errorf("Redis.Enabled = true, want false by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearLuciaEnv(t)
	t.Setenv("LUCIA_REDIS_ENABLED", "true")
	t.Setenv("LUCIA_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("LUCIA_ROUTER_MAX_ATTEMPTS", "5")
	t.Setenv("LUCIA_AGGREGATOR_PRIORITY", "weather, calendar , email")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Errorf("Redis.Enabled = false, want true")
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Router.MaxAttempts != 5 {
		t.Errorf("Router.MaxAttempts = %d, want 5", cfg.Router.MaxAttempts)
	}
	want := []string{"weather", "calendar", "email"}
	if len(cfg.Aggregator.AgentPriority) != len(want) {
		t.Fatalf("AgentPriority = %v, want %v", cfg.Aggregator.AgentPriority, want)
	}
	for i, w := range want {
		if cfg.Aggregator.AgentPriority[i] != w {
			t.Errorf("AgentPriority[%d] = %q, want %q", i, cfg.Aggregator.AgentPriority[i], w)
		}
	}
}

func clearLuciaEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		idx := strings.IndexByte(e, '=')
		if idx < 0 {
			continue
		}
		key := e[:idx]
		if strings.HasPrefix(key, "LUCIA_") {
			t.Setenv(key, "")
		}
	}
}
