package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/orchestrator"
)

func newTestManager(t *testing.T, apiURL string) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfigWithRoot(dir)
	cfg.APIBaseURL = apiURL
	mgr, err := config.NewManager(config.WithConfigDir(dir), config.WithInitialConfig(cfg))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestRuntimeServesThroughCurrentEngine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"answer":        "served by " + r.Host,
			"response_time": 0.4,
			"accuracy":      94.7,
			"sources":       2,
			"confidence":    0.8,
		})
	}))
	defer server.Close()

	mgr := newTestManager(t, server.URL+"/api")
	rt, err := NewRuntime(mgr, WithoutWatch())
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	res, err := rt.Ask(context.Background(), models.AskRequest{Question: "who?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.SourceCount != 2 {
		t.Fatalf("unexpected answer %+v", res)
	}
	if rt.Engine().Version == 0 {
		t.Fatalf("expected a versioned engine")
	}
}

func TestRuntimeReloadSwapsCalculator(t *testing.T) {
	mgr := newTestManager(t, "http://127.0.0.1:1/api")

	var mu sync.Mutex
	var topics []string
	var o *orchestrator.Orchestrator
	rt, err := NewRuntime(mgr,
		WithNotifier(func(topic, payload string) {
			mu.Lock()
			topics = append(topics, topic)
			mu.Unlock()
		}),
		WithOnReload(func(e *Engine) {
			if o != nil {
				o.SetCalculator(e.Calculator)
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	o = orchestrator.New(rt, rt.Engine().Calculator, orchestrator.WithNotifier(func(string, string) {}))
	first := rt.Engine().Version

	cfg := mgr.Get()
	cfg.MonthlyUnitCost = 1000
	cfg.EfficiencyFactor = 0.5
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if rt.Engine().Version <= first {
		t.Fatalf("expected a new engine after update")
	}
	if got := o.ROI().Result.AnnualSavings.String(); got != "564000" {
		t.Fatalf("expected recomputed savings 564000, got %s", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(topics) != 2 || topics[0] != consts.Topic_EngineReloaded || topics[1] != consts.Topic_EngineReloaded {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestRuntimeKeepsEngineWhenBuildFails(t *testing.T) {
	mgr := newTestManager(t, "http://127.0.0.1:1/api")

	calls := 0
	builder := func(cfg config.Config) (*Engine, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("boom")
		}
		return BuildEngine(cfg)
	}

	var failed []string
	rt, err := NewRuntime(mgr, WithBuilder(builder), WithNotifier(func(topic, payload string) {
		if topic == consts.Topic_EngineFailed {
			failed = append(failed, payload)
		}
	}))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	before := rt.Engine()
	cfg := mgr.Get()
	cfg.RequestTimeoutSeconds = 5
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if rt.Engine() != before {
		t.Fatalf("failed build must keep the previous engine")
	}
	if len(failed) != 1 {
		t.Fatalf("expected one failure event, got %v", failed)
	}
}

func TestNewRuntimeRequiresManager(t *testing.T) {
	if _, err := NewRuntime(nil); err == nil {
		t.Fatalf("expected error without a config manager")
	}
}
