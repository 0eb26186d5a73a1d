package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("FINDOC_API_BASE_URL", "https://svc.example.com/api")
	t.Setenv("FINDOC_REQUEST_TIMEOUT", "12")
	t.Setenv("FINDOC_MONTHLY_UNIT_COST", "1999.5")
	t.Setenv("FINDOC_EFFICIENCY_FACTOR", "not-a-number")
	t.Setenv("FINDOC_DATA_DIR", "/tmp/findoc")
	t.Setenv("FINDOC_DEBUG", "true")

	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.loadFromEnv()

	if cfg.APIBaseURL != "https://svc.example.com/api" {
		t.Fatalf("unexpected api base url %s", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout() != 12*time.Second {
		t.Fatalf("expected 12s timeout, got %s", cfg.RequestTimeout())
	}
	if cfg.MonthlyUnitCost != 1999.5 {
		t.Fatalf("expected unit cost 1999.5, got %v", cfg.MonthlyUnitCost)
	}
	if cfg.EfficiencyFactor != 0.968 {
		t.Fatalf("unparsable override should keep default, got %v", cfg.EfficiencyFactor)
	}
	if cfg.HistoryDBPath != filepath.Join("/tmp/findoc", "history.db") {
		t.Fatalf("unexpected history db %s", cfg.HistoryDBPath)
	}
	if !cfg.Debug {
		t.Fatalf("expected debug enabled")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"missing url", func(c *Config) { c.APIBaseURL = " " }, false},
		{"non http url", func(c *Config) { c.APIBaseURL = "ftp://x" }, false},
		{"zero timeout", func(c *Config) { c.RequestTimeoutSeconds = 0 }, false},
		{"bad period", func(c *Config) { c.DefaultPeriod = "forever" }, false},
		{"zero unit cost", func(c *Config) { c.MonthlyUnitCost = 0 }, false},
		{"efficiency one", func(c *Config) { c.EfficiencyFactor = 1 }, true},
		{"efficiency zero", func(c *Config) { c.EfficiencyFactor = 0 }, false},
		{"history without db", func(c *Config) { c.HistoryDBPath = "" }, false},
		{"history disabled", func(c *Config) { c.HistoryEnabled = false; c.HistoryDBPath = "" }, true},
	}
	for _, tc := range cases {
		cfg := DefaultConfigWithRoot(t.TempDir())
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
