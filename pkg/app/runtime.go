// Package app keeps the analysis client and ROI constants in step with the
// config file and serves the tool calls through whichever engine is current.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
)

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

// WithOnReload registers fn to run after every engine swap, including the first.
func WithOnReload(fn func(*Engine)) Option {
	return func(r *Runtime) {
		r.onReload = fn
	}
}

// WithoutWatch builds the engine once and ignores later edits of the file.
func WithoutWatch() Option {
	return func(r *Runtime) {
		r.watch = false
	}
}

type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]

	builder  EngineBuilder
	notify   func(string, string)
	onReload func(*Engine)
	watch    bool
	cancel   context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr:  cfgMgr,
		builder: BuildEngine,
		watch:   true,
	}

	for _, opt := range opts {
		opt(rt)
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		return nil, err
	}
	if !rt.watch {
		return rt, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
		if err := rt.reload(cfg); err != nil && rt.notify == nil {
			log.Printf("app: engine reload failed: %v", err)
		}
	}); err != nil {
		cancel()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Config() config.Config {
	return r.Engine().Config
}

func (r *Runtime) ConfigManager() *config.Manager {
	return r.cfgMgr
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

// The tool calls below resolve the engine per call, so a reload never
// affects a request that is already in flight.

func (r *Runtime) Ask(ctx context.Context, req models.AskRequest) (models.Answer, error) {
	return r.Engine().Client.Ask(ctx, req)
}

func (r *Runtime) Sentiment(ctx context.Context, req models.SentimentRequest) (models.Sentiment, error) {
	return r.Engine().Client.Sentiment(ctx, req)
}

func (r *Runtime) AnalyzeStock(ctx context.Context, req models.StockAnalyzeRequest) (models.StockAnalysis, error) {
	return r.Engine().Client.AnalyzeStock(ctx, req)
}

func (r *Runtime) CompareStocks(ctx context.Context, req models.StockCompareRequest) (models.StockComparison, error) {
	return r.Engine().Client.CompareStocks(ctx, req)
}

func (r *Runtime) Health(ctx context.Context) (models.HealthStatus, error) {
	return r.Engine().Client.Health(ctx)
}

func (r *Runtime) Metrics(ctx context.Context) (models.ServiceMetrics, error) {
	return r.Engine().Client.Metrics(ctx)
}

func (r *Runtime) reload(cfg config.Config) error {
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	r.engine.Store(engine)
	if engine.Config.Debug {
		log.Printf("app: engine v%d using %s", engine.Version, engine.Config.APIBaseURL)
	}
	if r.onReload != nil {
		r.onReload(engine)
	}
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":      engine.Version,
		"built_at":     engine.BuiltAt.UTC().Format(time.RFC3339),
		"api_base_url": engine.Config.APIBaseURL,
	})
	r.notify(consts.Topic_EngineReloaded, string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify(consts.Topic_EngineFailed, string(payload))
}
