package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/FinDocHub/models"
)

type Config struct {
	APIBaseURL            string `json:"api_base_url" yaml:"api_base_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	DefaultPeriod         string `json:"default_period" yaml:"default_period"`
	UserAgent             string `json:"user_agent" yaml:"user_agent"`

	// ROI projection constants: per-seat monthly price and efficiency gain.
	MonthlyUnitCost  float64 `json:"monthly_unit_cost" yaml:"monthly_unit_cost"`
	EfficiencyFactor float64 `json:"efficiency_factor" yaml:"efficiency_factor"`

	DataDir        string `json:"data_dir" yaml:"data_dir"`
	HistoryEnabled bool   `json:"history_enabled" yaml:"history_enabled"`
	HistoryDBPath  string `json:"history_db_path" yaml:"history_db_path"`

	Debug bool `json:"debug" yaml:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults with data kept under root.
func DefaultConfigWithRoot(root string) *Config {
	dataDir := filepath.Join(root, "data")
	return &Config{
		APIBaseURL:            "http://localhost:8000/api",
		RequestTimeoutSeconds: 30,
		DefaultPeriod:         "1y",
		UserAgent:             "FinDocHub/1.0",

		MonthlyUnitCost:  2347,
		EfficiencyFactor: 0.968,

		DataDir:        dataDir,
		HistoryEnabled: true,
		HistoryDBPath:  filepath.Join(dataDir, "history.db"),
	}
}

// WithEnv returns a copy of c with .env and FINDOC_* overrides applied.
func (c Config) WithEnv() Config {
	_ = godotenv.Load()
	c.loadFromEnv()
	return c
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("FINDOC_API_BASE_URL"); val != "" {
		c.APIBaseURL = val
	}
	if val := os.Getenv("FINDOC_REQUEST_TIMEOUT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RequestTimeoutSeconds = v
		}
	}
	if val := os.Getenv("FINDOC_DEFAULT_PERIOD"); val != "" {
		c.DefaultPeriod = val
	}
	if val := os.Getenv("FINDOC_USER_AGENT"); val != "" {
		c.UserAgent = val
	}

	if val := os.Getenv("FINDOC_MONTHLY_UNIT_COST"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.MonthlyUnitCost = v
		}
	}
	if val := os.Getenv("FINDOC_EFFICIENCY_FACTOR"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.EfficiencyFactor = v
		}
	}

	if val := os.Getenv("FINDOC_DATA_DIR"); val != "" {
		c.DataDir = val
		c.HistoryDBPath = filepath.Join(val, "history.db")
	}
	if val := os.Getenv("FINDOC_HISTORY_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.HistoryEnabled = enabled
		}
	}
	if val := os.Getenv("FINDOC_HISTORY_DB"); val != "" {
		c.HistoryDBPath = val
	}

	if val := os.Getenv("FINDOC_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// RequestTimeout is the deadline applied to each analysis call.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) url: %s", c.APIBaseURL)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if _, err := models.NormalizePeriod(c.DefaultPeriod); err != nil {
		return fmt.Errorf("default_period: %w", err)
	}
	if c.MonthlyUnitCost <= 0 {
		return fmt.Errorf("monthly_unit_cost must be positive, got %v", c.MonthlyUnitCost)
	}
	if c.EfficiencyFactor <= 0 || c.EfficiencyFactor > 1 {
		return fmt.Errorf("efficiency_factor must be in (0,1], got %v", c.EfficiencyFactor)
	}
	if c.HistoryEnabled && strings.TrimSpace(c.HistoryDBPath) == "" {
		return fmt.Errorf("history_db_path is required when history is enabled")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.HistoryEnabled {
		dirs = append(dirs, filepath.Dir(c.HistoryDBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
