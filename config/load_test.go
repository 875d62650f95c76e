package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
env: test
logger:
  level: info
  outputs: [stdout]
  format: console
metrics:
  enabled: true
  addr: ":9090"
routing:
  profileStalenessSec: 300
  ewmaAlpha: 0.2
  epsilon: 0.01
  largeOrderRatio: 1.0
  maxSplitVenues: 3
  dispatchTimeoutMs: 5000
  healthIntervalSec: 10
feedback:
  buffer: 1024
defaults:
  timeoutMs: 2000
  retry:
    maxAttempts: 3
    backoffMs: 100
    backoffFactor: 2
  breaker:
    windowSize: 20
    minCalls: 10
    failureThreshold: 0.6
    openTimeoutSec: 30
    halfOpenSuccesses: 2
venues:
  alpha:
    endpoint: https://alpha.example.com
    rateLimit:
      ratePerSec: 50
      burst: 10
  beta:
    endpoint: https://beta.example.com
    timeoutMs: 500
    breaker:
      failureThreshold: 0.4
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "test" {
		t.Errorf("env = %q, want test", cfg.Env)
	}
	if len(cfg.Venues) != 2 {
		t.Fatalf("venues = %d, want 2", len(cfg.Venues))
	}
	if cfg.Venues["beta"].Breaker.FailureThreshold != 0.4 {
		t.Errorf("beta threshold = %v, want 0.4", cfg.Venues["beta"].Breaker.FailureThreshold)
	}
	if rl := cfg.Venues["alpha"].RateLimit; rl.RatePerSec != 50 || rl.Burst != 10 {
		t.Errorf("alpha rate limit = %+v, want 50/s burst 10", rl)
	}
	if cfg.Routing.ProfileStaleness() != 5*time.Minute {
		t.Errorf("staleness = %v, want 5m", cfg.Routing.ProfileStaleness())
	}
	if cfg.Routing.DispatchTimeout() != 5*time.Second {
		t.Errorf("dispatch timeout = %v, want 5s", cfg.Routing.DispatchTimeout())
	}
}

func TestGuardConfigs(t *testing.T) {
	cfg, err := Load(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	configs, defaults := cfg.GuardConfigs()
	if defaults.Timeout != 2*time.Second {
		t.Errorf("default timeout = %v, want 2s", defaults.Timeout)
	}
	if defaults.Breaker.OpenTimeout != 30*time.Second {
		t.Errorf("default open timeout = %v, want 30s", defaults.Breaker.OpenTimeout)
	}
	if configs["beta"].Timeout != 500*time.Millisecond {
		t.Errorf("beta timeout = %v, want 500ms", configs["beta"].Timeout)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ROUTER_METRICS_ADDR", ":19090")
	t.Setenv("ROUTER_FEEDBACK_WS", "wss://reports.example.com/exec")

	cfg, err := LoadWithEnvOverrides(writeTemp(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Metrics.Addr != ":19090" {
		t.Errorf("metrics addr = %q, want :19090", cfg.Metrics.Addr)
	}
	if cfg.Feedback.WSEndpoint != "wss://reports.example.com/exec" {
		t.Errorf("ws endpoint = %q", cfg.Feedback.WSEndpoint)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"missing env", func(c *AppConfig) { c.Env = "" }},
		{"no venues", func(c *AppConfig) { c.Venues = nil }},
		{"metrics addr missing", func(c *AppConfig) { c.Metrics.Addr = "" }},
		{"alpha out of range", func(c *AppConfig) { c.Routing.EWMAAlpha = 1.5 }},
		{"negative epsilon", func(c *AppConfig) { c.Routing.Epsilon = -0.1 }},
		{"threshold out of range", func(c *AppConfig) {
			vc := c.Venues["alpha"]
			vc.Breaker.FailureThreshold = 1.2
			c.Venues["alpha"] = vc
		}},
		{"negative rate limit", func(c *AppConfig) {
			vc := c.Venues["alpha"]
			vc.RateLimit.RatePerSec = -1
			c.Venues["alpha"] = vc
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, sampleYAML))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
