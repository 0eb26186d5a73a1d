package cli

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/pkg/bridge"
)

// execute runs the root command against a config file in a temp dir.
func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestROICommand(t *testing.T) {
	out, err := execute(t, newConfigPath(t), "roi", "--team-size", "10", "--hours", "40", "--rate", "200")
	if err != nil {
		t.Fatalf("roi: %v\n%s", err, out)
	}
	for _, want := range []string{"$4,160,000", "$281,640", "$3,745,240", "1329.8%", "1 month"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestROICommandRejectsInvalidInputs(t *testing.T) {
	out, err := execute(t, newConfigPath(t), "roi", "--rate", "0")
	if err == nil {
		t.Fatalf("expected an error for a zero hourly rate")
	}
	if !strings.Contains(out, "hourly rate") {
		t.Fatalf("expected the validation message:\n%s", out)
	}
}

func TestAskCommandRecordsHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"answer":        "Revenue grew 12% year over year.",
			"response_time": 1.2,
			"accuracy":      94.5,
			"sources":       3,
			"confidence":    0.91,
		})
	}))
	defer server.Close()

	configPath := newConfigPath(t)
	out, err := execute(t, configPath, "--api", server.URL, "ask", "What", "was", "the", "revenue", "growth?")
	if err != nil {
		t.Fatalf("ask: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Revenue grew 12% year over year.") || !strings.Contains(out, "91.0%") {
		t.Fatalf("unexpected answer panel:\n%s", out)
	}

	out, err = execute(t, configPath, "history", "--tool", "ask")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ask") || !strings.Contains(out, "succeeded") {
		t.Fatalf("expected the ask call in history:\n%s", out)
	}

	out, err = execute(t, configPath, "history", "--export")
	if err != nil {
		t.Fatalf("history --export: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Exported 1 record to") || !strings.Contains(out, filepath.Join(filepath.Dir(configPath), "data", "exports")) {
		t.Fatalf("unexpected export output:\n%s", out)
	}
}

func TestHistoryShow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sentiment":       "positive",
			"confidence":      0.88,
			"processing_time": 0.4,
			"sentiment_score": 0.7,
		})
	}))
	defer server.Close()

	configPath := newConfigPath(t)
	if out, err := execute(t, configPath, "--api", server.URL, "sentiment", "Margins", "expanded"); err != nil {
		t.Fatalf("sentiment: %v\n%s", err, out)
	}

	out, err := execute(t, configPath, "history")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		t.Fatalf("empty history listing")
	}
	prefix := fields[0]

	out, err = execute(t, configPath, "history", "show", prefix)
	if err != nil {
		t.Fatalf("history show %s: %v\n%s", prefix, err, out)
	}
	for _, want := range []string{"History " + prefix, "sentiment", "succeeded", `"text": "Margins expanded"`, `"confidence": 0.88`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	_, err = execute(t, configPath, "history", "show", "zzzz")
	if err == nil || !strings.Contains(err.Error(), `no history record matches "zzzz"`) {
		t.Fatalf("expected a not-found message, got %v", err)
	}
}

func TestConfigSet(t *testing.T) {
	configPath := newConfigPath(t)

	out, err := execute(t, configPath, "config", "set", "request_timeout_seconds", "5")
	if err != nil {
		t.Fatalf("config set: %v\n%s", err, out)
	}
	if !strings.Contains(out, "request_timeout_seconds = 5") {
		t.Fatalf("unexpected confirmation:\n%s", out)
	}
	if _, err := execute(t, configPath, "config", "set", "history_enabled", "false"); err != nil {
		t.Fatalf("config set bool: %v", err)
	}
	if _, err := execute(t, configPath, "config", "set", "default_period", "6mo"); err != nil {
		t.Fatalf("config set string: %v", err)
	}

	out, err = execute(t, configPath, "config", "show", "-o", "json")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("expected json output: %v\n%s", err, out)
	}
	if cfg["request_timeout_seconds"] != float64(5) || cfg["history_enabled"] != false || cfg["default_period"] != "6mo" {
		t.Fatalf("settings not persisted: %v", cfg)
	}

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown key", args: []string{"timeout", "5"}, wantErr: "unknown config key"},
		{name: "not a number", args: []string{"request_timeout_seconds", "soon"}, wantErr: "must be a number"},
		{name: "not a bool", args: []string{"debug", "maybe"}, wantErr: "must be true or false"},
		{name: "fails validation", args: []string{"efficiency_factor", "2"}, wantErr: "efficiency_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, configPath, append([]string{"config", "set"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDebugSessionFansOutEvents(t *testing.T) {
	var logged bytes.Buffer
	log.SetOutput(&logged)
	var (
		mu     sync.Mutex
		topics []string
	)
	bridge.SetNotifyImpl(func(topic, payload string) {
		mu.Lock()
		topics = append(topics, topic)
		mu.Unlock()
	})
	t.Cleanup(func() {
		bridge.SetNotifyImpl(nil)
		log.SetOutput(os.Stderr)
	})

	if out, err := execute(t, newConfigPath(t), "--debug", "roi", "--team-size", "4"); err != nil {
		t.Fatalf("roi: %v\n%s", err, out)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(topics, consts.Topic_ROIUpdated) {
		t.Fatalf("receiver missed %s, got %v", consts.Topic_ROIUpdated, topics)
	}
	if !strings.Contains(logged.String(), "event: "+consts.Topic_ROIUpdated) {
		t.Fatalf("debug log missed the event:\n%s", logged.String())
	}
}

func TestStockCompareCommandReportsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"upstream quote feed unavailable"}`))
	}))
	defer server.Close()

	out, err := execute(t, newConfigPath(t), "--api", server.URL, "stock", "compare", "aapl", "msft")
	if err == nil {
		t.Fatalf("expected the rejection to be returned")
	}
	if !strings.Contains(out, "HTTP 500") || !strings.Contains(out, "upstream quote feed unavailable") {
		t.Fatalf("expected the failure in the panel:\n%s", out)
	}
}

func TestBlankSentimentIsRejectedLocally(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	if _, err := execute(t, newConfigPath(t), "--api", server.URL, "sentiment", "   "); err == nil {
		t.Fatalf("expected invalid input")
	}
	if hits.Load() != 0 {
		t.Fatalf("blank text must not reach the service")
	}
}

func TestHistoryCommandRejectsUnknownTool(t *testing.T) {
	if _, err := execute(t, newConfigPath(t), "history", "--tool", "forecast"); err == nil {
		t.Fatalf("expected an error for an unknown tool")
	}
}

func TestConfigShow(t *testing.T) {
	configPath := newConfigPath(t)

	out, err := execute(t, configPath, "--api", "https://analysis.example.com/api", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "api_base_url: https://analysis.example.com/api") {
		t.Fatalf("expected the flag override in yaml output:\n%s", out)
	}

	out, err = execute(t, configPath, "config", "show", "-o", "json")
	if err != nil {
		t.Fatalf("config show json: %v", err)
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("expected json output: %v\n%s", err, out)
	}
	if cfg["default_period"] != "1y" {
		t.Fatalf("unexpected default period %v", cfg["default_period"])
	}

	if _, err := execute(t, configPath, "config", "show", "-o", "toml"); err == nil {
		t.Fatalf("expected an unsupported format error")
	}
}

func TestConfigPathAndValidate(t *testing.T) {
	configPath := newConfigPath(t)

	out, err := execute(t, configPath, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != configPath {
		t.Fatalf("expected %s, got %q", configPath, out)
	}

	out, err = execute(t, configPath, "config", "validate")
	if err != nil || !strings.Contains(out, "is valid") {
		t.Fatalf("config validate: %v\n%s", err, out)
	}

	if _, err := execute(t, configPath, "--api", "ftp://nowhere", "config", "validate"); err == nil {
		t.Fatalf("expected a non-http base url to be invalid")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, newConfigPath(t), "version")
	if err != nil || strings.TrimSpace(out) != "FinDocHub test" {
		t.Fatalf("unexpected version output %q (%v)", out, err)
	}
}
