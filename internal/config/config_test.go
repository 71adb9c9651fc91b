package config

import (
	"os"
	"testing"
)

func clearConnectionEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SIGNALCORE_HTTP_PORT", "SIGNALCORE_REDIS_ADDR", "SIGNALCORE_MYSQL_DSN", "SIGNALCORE_POSTGRES_DSN"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			}
		})
	}
}

func TestLoadConnections_DefaultsWhenUnset(t *testing.T) {
	clearConnectionEnv(t)

	conns := LoadConnections()
	if conns.HTTPPort != 8090 {
		t.Errorf("expected default HTTP port 8090, got %d", conns.HTTPPort)
	}
	if conns.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("expected default redis address, got %s", conns.RedisAddr)
	}
}

func TestLoadConnections_EnvOverrides(t *testing.T) {
	clearConnectionEnv(t)
	os.Setenv("SIGNALCORE_HTTP_PORT", "9100")
	os.Setenv("SIGNALCORE_REDIS_ADDR", "redis.internal:6380")

	conns := LoadConnections()
	if conns.HTTPPort != 9100 {
		t.Errorf("expected overridden HTTP port 9100, got %d", conns.HTTPPort)
	}
	if conns.RedisAddr != "redis.internal:6380" {
		t.Errorf("expected overridden redis address, got %s", conns.RedisAddr)
	}
}

func TestLoadConnections_InvalidPortFallsBackToDefault(t *testing.T) {
	clearConnectionEnv(t)
	os.Setenv("SIGNALCORE_HTTP_PORT", "not-a-port")

	conns := LoadConnections()
	if conns.HTTPPort != 8090 {
		t.Errorf("an unparseable port should fall back to the default, got %d", conns.HTTPPort)
	}
}

func TestDefault_HasNonZeroCoreThresholds(t *testing.T) {
	cfg := Default()
	if cfg.Trigger.ConvergenceScoreThresh <= 0 {
		t.Error("default convergence threshold must be positive")
	}
	if cfg.USCP.MaxPerSymbol <= 0 {
		t.Error("default max candidates per symbol must be positive")
	}
	if len(cfg.OPC.TokenAddresses) == 0 {
		t.Error("default token address table should not be empty")
	}
}
