package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/internal/storage"
	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/app"
	"github.com/dyike/FinDocHub/pkg/bridge"
	"github.com/dyike/FinDocHub/pkg/orchestrator"
	"github.com/dyike/FinDocHub/pkg/roi"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	apiURL     string
	debug      bool
}

// Session is one CLI invocation's view of the dashboard: the runtime, the
// orchestrator driving the tool slots and the optional history store.
type Session struct {
	out      io.Writer
	runtime  *app.Runtime
	orch     *orchestrator.Orchestrator
	store    *storage.Store
	recorder *storage.AsyncRecorder
}

// openSession builds the dashboard from the config file. Flags override the
// environment, which overrides the file; none of them is written back.
func openSession(opts *globalOptions, out io.Writer, watch bool) (*Session, error) {
	var mgrOpts []config.ManagerOption
	if opts.configPath != "" {
		mgrOpts = append(mgrOpts, config.WithConfigPath(opts.configPath))
	}
	mgr, err := config.NewManager(mgrOpts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s := &Session{out: out}
	builder := func(cfg config.Config) (*app.Engine, error) {
		return app.BuildEngine(opts.apply(cfg))
	}
	rtOpts := []app.Option{
		app.WithBuilder(builder),
		app.WithOnReload(func(e *app.Engine) {
			if s.orch != nil {
				s.orch.SetCalculator(e.Calculator)
			}
		}),
	}
	if !watch {
		rtOpts = append(rtOpts, app.WithoutWatch())
	}
	notify := bridge.NotifyFunc(bridge.Notify)
	if opts.debug {
		notify = bridge.Fanout(logEvent, bridge.Notify)
	}
	rtOpts = append(rtOpts, app.WithNotifier(notify))

	rt, err := app.NewRuntime(mgr, rtOpts...)
	if err != nil {
		return nil, err
	}
	s.runtime = rt

	cfg := rt.Config()
	if err := cfg.EnsureDirectories(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithNotifier(notify),
		orchestrator.WithTimeout(cfg.RequestTimeout()),
		orchestrator.WithDefaultPeriod(cfg.DefaultPeriod),
	}
	if cfg.HistoryEnabled {
		store, err := storage.OpenFromConfig(cfg)
		if err != nil {
			log.Printf("cli: history unavailable: %v", err)
		} else {
			recorder, err := storage.NewAsyncRecorder(store)
			if err != nil {
				store.Close()
				rt.Close()
				return nil, err
			}
			s.store, s.recorder = store, recorder
			orchOpts = append(orchOpts, orchestrator.WithRecorder(recorder))
		}
	}

	s.orch = orchestrator.New(rt, rt.Engine().Calculator, orchOpts...)
	return s, nil
}

func logEvent(topic, payload string) {
	log.Printf("event: %s %s", topic, payload)
}

// apply layers the environment and the flags over cfg.
func (o *globalOptions) apply(cfg config.Config) config.Config {
	cfg = cfg.WithEnv()
	if strings.TrimSpace(o.apiURL) != "" {
		cfg.APIBaseURL = strings.TrimSpace(o.apiURL)
	}
	if o.debug {
		cfg.Debug = true
	}
	return cfg
}

func (s *Session) Config() config.Config {
	return s.runtime.Config()
}

func (s *Session) ConfigPath() string {
	return s.runtime.ConfigManager().Path()
}

// Run triggers the slot req belongs to, waits for it to settle and prints it.
// The slot's failure, if any, is returned.
func (s *Session) Run(ctx context.Context, req models.Request) error {
	if err := s.orch.Trigger(ctx, req); err != nil {
		return err
	}
	s.orch.Wait()
	view, err := s.renderSlot(req.Tool())
	fmt.Fprintln(s.out, view)
	return err
}

func (s *Session) renderSlot(tool string) (string, error) {
	switch tool {
	case consts.ToolAsk:
		st := s.orch.AskState()
		return renderState("Document Q&A", st, renderAnswer), st.Err()
	case consts.ToolSentiment:
		st := s.orch.SentimentState()
		return renderState("Sentiment", st, renderSentiment), st.Err()
	case consts.ToolStockAnalyze:
		st := s.orch.StockAnalyzeState()
		return renderState("Stock analysis", st, renderStock), st.Err()
	case consts.ToolStockCompare:
		st := s.orch.StockCompareState()
		return renderState("Stock comparison", st, renderComparison), st.Err()
	default:
		return "", fmt.Errorf("unknown tool %q", tool)
	}
}

// ROI applies in to the projection and prints it. Unusable inputs are
// returned after the panel is shown.
func (s *Session) ROI(in roi.Inputs) error {
	p := s.orch.SetROIInputs(in)
	fmt.Fprintln(s.out, renderROI(p))
	return p.Err
}

// Status prints the service health followed by its usage counters.
func (s *Session) Status(ctx context.Context) error {
	if err := s.Health(ctx); err != nil {
		return err
	}
	return s.Metrics(ctx)
}

func (s *Session) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config().RequestTimeout())
	defer cancel()
	health, err := s.runtime.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, renderHealth(health, s.runtime.Engine().Client.BaseURL()))
	return nil
}

func (s *Session) Metrics(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.Config().RequestTimeout())
	defer cancel()
	metrics, err := s.runtime.Metrics(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, renderMetrics(metrics))
	return nil
}

func (s *Session) PrintHistory(ctx context.Context, params models.HistoryParams) error {
	records, err := s.History(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, renderHistory(records, time.Now()))
	return nil
}

// ExportHistory writes the matching records to a CSV file under the data dir.
func (s *Session) ExportHistory(ctx context.Context, params models.HistoryParams) error {
	records, err := s.History(ctx, params)
	if err != nil {
		return err
	}
	path, err := storage.ExportCSV(filepath.Join(s.Config().DataDir, "exports"), records, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "📄 Exported %d %s to %s\n", len(records), plural(int64(len(records)), "record"), path)
	return nil
}

// ShowHistory prints one record, looked up by ID or unique ID prefix.
func (s *Session) ShowHistory(ctx context.Context, id string) error {
	if s.store == nil {
		return storage.ErrHistoryDisabled
	}
	if s.recorder != nil {
		if err := s.recorder.Flush(ctx); err != nil {
			return fmt.Errorf("flush history: %w", err)
		}
	}
	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		return fmt.Errorf("no history record matches %q; run `findoc history` to list ids", id)
	case errors.Is(err, storage.ErrAmbiguousID):
		return fmt.Errorf("%q matches several history records; use more of the id", id)
	case err != nil:
		return err
	}
	fmt.Fprintln(s.out, renderHistoryRecord(rec))
	return nil
}

// SetConfigValue writes key=value to the config file. The value is parsed
// according to the key's current type.
func (s *Session) SetConfigValue(key, value string) error {
	updated, err := setConfigField(s.runtime.ConfigManager().Get(), key, value)
	if err != nil {
		return err
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := s.runtime.UpdateConfigJSON(string(data)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	fmt.Fprintf(s.out, "✅ %s = %s (%s)\n", key, value, s.ConfigPath())
	return nil
}

func setConfigField(cfg config.Config, key, value string) (config.Config, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("encode config: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	current, ok := fields[key]
	if !ok {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return cfg, fmt.Errorf("unknown config key %q, expected one of %s", key, strings.Join(keys, ", "))
	}

	var raw json.RawMessage
	switch {
	case strings.HasPrefix(string(current), `"`):
		raw, _ = json.Marshal(value)
	case string(current) == "true" || string(current) == "false":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		raw = json.RawMessage(strconv.FormatBool(b))
	default:
		raw = json.RawMessage(strings.TrimSpace(value))
		var n float64
		if !json.Valid(raw) || json.Unmarshal(raw, &n) != nil {
			return cfg, fmt.Errorf("%s must be a number, got %q", key, value)
		}
	}
	fields[key] = raw

	data, err = json.Marshal(fields)
	if err != nil {
		return cfg, fmt.Errorf("encode config: %w", err)
	}
	var out config.Config
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func (s *Session) History(ctx context.Context, params models.HistoryParams) ([]models.HistoryRecord, error) {
	if s.store == nil {
		return nil, storage.ErrHistoryDisabled
	}
	if s.recorder != nil {
		if err := s.recorder.Flush(ctx); err != nil {
			return nil, fmt.Errorf("flush history: %w", err)
		}
	}
	return s.store.List(ctx, params)
}

func (s *Session) Close() error {
	s.orch.Wait()
	if s.recorder != nil {
		s.recorder.Close()
	}
	s.runtime.Close()
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
