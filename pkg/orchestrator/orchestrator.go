// Package orchestrator owns the four tool slots and the ROI projection that
// make up the dashboard, and is the only thing the presentation layer drives.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/bridge"
	"github.com/dyike/FinDocHub/pkg/roi"
	"github.com/dyike/FinDocHub/pkg/tracker"
)

// Service performs the remote half of each tool.
type Service interface {
	Ask(ctx context.Context, req models.AskRequest) (models.Answer, error)
	Sentiment(ctx context.Context, req models.SentimentRequest) (models.Sentiment, error)
	AnalyzeStock(ctx context.Context, req models.StockAnalyzeRequest) (models.StockAnalysis, error)
	CompareStocks(ctx context.Context, req models.StockCompareRequest) (models.StockComparison, error)
}

// Recorder stores one record per completed remote call.
type Recorder interface {
	Record(ctx context.Context, rec models.HistoryRecord) error
}

type Option func(*Orchestrator)

// WithTimeout bounds every remote call; an expired deadline fails the slot
// with a timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithNotifier replaces the bridge as the receiver of state events.
func WithNotifier(fn bridge.NotifyFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.notify = fn
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithDefaultPeriod sets the period used when a stock request leaves it blank.
func WithDefaultPeriod(period string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(period) != "" {
			o.defaultPeriod = period
		}
	}
}

func WithInitialInputs(in roi.Inputs) Option {
	return func(o *Orchestrator) {
		o.initialInputs = in
	}
}

type Orchestrator struct {
	service Service

	ask       *tracker.Tracker[models.AskRequest, models.Answer]
	sentiment *tracker.Tracker[models.SentimentRequest, models.Sentiment]
	stock     *tracker.Tracker[models.StockAnalyzeRequest, models.StockAnalysis]
	compare   *tracker.Tracker[models.StockCompareRequest, models.StockComparison]
	roi       *roi.Model

	timeout       time.Duration
	notify        bridge.NotifyFunc
	recorder      Recorder
	defaultPeriod string
	initialInputs roi.Inputs
}

// Snapshot is the whole dashboard at one instant.
type Snapshot struct {
	Ask          tracker.State[models.Answer]          `json:"ask"`
	Sentiment    tracker.State[models.Sentiment]       `json:"sentiment"`
	StockAnalyze tracker.State[models.StockAnalysis]   `json:"stock_analyze"`
	StockCompare tracker.State[models.StockComparison] `json:"stock_compare"`
	ROI          roi.Projection                        `json:"roi"`
}

func New(service Service, calc roi.Calculator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:       service,
		notify:        bridge.Notify,
		defaultPeriod: models.DefaultPeriod,
		initialInputs: roi.DefaultInputs(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.ask = tracker.New(consts.ToolAsk, models.AskRequest.Normalize,
		instrument(o, consts.ToolAsk, service.Ask))
	o.sentiment = tracker.New(consts.ToolSentiment, models.SentimentRequest.Normalize,
		instrument(o, consts.ToolSentiment, service.Sentiment))
	o.stock = tracker.New(consts.ToolStockAnalyze, o.prepareStock,
		instrument(o, consts.ToolStockAnalyze, service.AnalyzeStock))
	o.compare = tracker.New(consts.ToolStockCompare, o.prepareCompare,
		instrument(o, consts.ToolStockCompare, service.CompareStocks))

	o.ask.SetObserver(publishState[models.Answer](o, consts.ToolAsk))
	o.sentiment.SetObserver(publishState[models.Sentiment](o, consts.ToolSentiment))
	o.stock.SetObserver(publishState[models.StockAnalysis](o, consts.ToolStockAnalyze))
	o.compare.SetObserver(publishState[models.StockComparison](o, consts.ToolStockCompare))

	o.roi = roi.NewModel(calc, o.initialInputs)
	o.roi.SetObserver(func(p roi.Projection) { o.publish(consts.Topic_ROIUpdated, p) })

	return o
}

// Ask starts a document question. Only local rejections are returned; the
// outcome lands in the ask slot.
func (o *Orchestrator) Ask(ctx context.Context, req models.AskRequest) error {
	return o.ask.Start(ctx, req)
}

func (o *Orchestrator) AnalyzeSentiment(ctx context.Context, req models.SentimentRequest) error {
	return o.sentiment.Start(ctx, req)
}

func (o *Orchestrator) AnalyzeStock(ctx context.Context, req models.StockAnalyzeRequest) error {
	return o.stock.Start(ctx, req)
}

func (o *Orchestrator) CompareStocks(ctx context.Context, req models.StockCompareRequest) error {
	return o.compare.Start(ctx, req)
}

// Trigger starts whichever slot req belongs to.
func (o *Orchestrator) Trigger(ctx context.Context, req models.Request) error {
	switch r := req.(type) {
	case models.AskRequest:
		return o.Ask(ctx, r)
	case models.SentimentRequest:
		return o.AnalyzeSentiment(ctx, r)
	case models.StockAnalyzeRequest:
		return o.AnalyzeStock(ctx, r)
	case models.StockCompareRequest:
		return o.CompareStocks(ctx, r)
	default:
		return &models.Error{Kind: models.KindInvalidInput, Detail: fmt.Sprintf("unsupported request %T", req)}
	}
}

// Wait blocks until every started call has settled.
func (o *Orchestrator) Wait() {
	var wg sync.WaitGroup
	for _, wait := range []func(){o.ask.Wait, o.sentiment.Wait, o.stock.Wait, o.compare.Wait} {
		wg.Add(1)
		go func(wait func()) {
			defer wg.Done()
			wait()
		}(wait)
	}
	wg.Wait()
}

func (o *Orchestrator) AskState() tracker.State[models.Answer] {
	return o.ask.Snapshot()
}

func (o *Orchestrator) SentimentState() tracker.State[models.Sentiment] {
	return o.sentiment.Snapshot()
}

func (o *Orchestrator) StockAnalyzeState() tracker.State[models.StockAnalysis] {
	return o.stock.Snapshot()
}

func (o *Orchestrator) StockCompareState() tracker.State[models.StockComparison] {
	return o.compare.Snapshot()
}

func (o *Orchestrator) Snapshot() Snapshot {
	return Snapshot{
		Ask:          o.ask.Snapshot(),
		Sentiment:    o.sentiment.Snapshot(),
		StockAnalyze: o.stock.Snapshot(),
		StockCompare: o.compare.Snapshot(),
		ROI:          o.roi.Projection(),
	}
}

// Reset returns a settled slot to Idle.
func (o *Orchestrator) Reset(tool string) error {
	switch tool {
	case consts.ToolAsk:
		return o.ask.Reset()
	case consts.ToolSentiment:
		return o.sentiment.Reset()
	case consts.ToolStockAnalyze:
		return o.stock.Reset()
	case consts.ToolStockCompare:
		return o.compare.Reset()
	default:
		return &models.Error{Kind: models.KindInvalidInput, Detail: fmt.Sprintf("unknown tool %q", tool)}
	}
}

func (o *Orchestrator) ROI() roi.Projection {
	return o.roi.Projection()
}

func (o *Orchestrator) SetTeamSize(n int) roi.Projection {
	return o.roi.SetTeamSize(n)
}

func (o *Orchestrator) SetHoursPerWeek(hours float64) roi.Projection {
	return o.roi.SetHoursPerWeek(hours)
}

func (o *Orchestrator) SetHourlyRate(rate float64) roi.Projection {
	return o.roi.SetHourlyRate(rate)
}

func (o *Orchestrator) SetROIInputs(in roi.Inputs) roi.Projection {
	return o.roi.SetInputs(in)
}

// SetCalculator swaps the ROI pricing constants, e.g. after a config reload.
func (o *Orchestrator) SetCalculator(calc roi.Calculator) roi.Projection {
	return o.roi.SetCalculator(calc)
}

func (o *Orchestrator) prepareStock(req models.StockAnalyzeRequest) (models.StockAnalyzeRequest, error) {
	if strings.TrimSpace(req.Period) == "" {
		req.Period = o.defaultPeriod
	}
	return req.Normalize()
}

func (o *Orchestrator) prepareCompare(req models.StockCompareRequest) (models.StockCompareRequest, error) {
	if strings.TrimSpace(req.Period) == "" {
		req.Period = o.defaultPeriod
	}
	return req.Normalize()
}

// instrument applies the call timeout and records the outcome.
func instrument[Req models.Request, Res any](o *Orchestrator, tool string, call tracker.Call[Req, Res]) tracker.Call[Req, Res] {
	return func(ctx context.Context, req Req) (Res, error) {
		if o.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}

		start := time.Now()
		res, err := call(ctx, req)
		o.record(tool, req, res, err, time.Since(start))
		return res, err
	}
}

func (o *Orchestrator) record(tool string, req, res any, err error, elapsed time.Duration) {
	if o.recorder == nil {
		return
	}

	rec := models.HistoryRecord{
		Tool:      tool,
		Duration:  elapsed,
		CreatedAt: time.Now().UTC(),
	}
	if data, mErr := json.Marshal(req); mErr == nil {
		rec.Request = data
	}
	if err != nil {
		rec.Status = models.HistoryStatusFailed
		rec.ErrorKind = models.KindOf(err)
		rec.StatusCode = models.StatusCodeOf(err)
		rec.ErrorDetail = err.Error()
	} else {
		rec.Status = models.HistoryStatusSucceeded
		if data, mErr := json.Marshal(res); mErr == nil {
			rec.Result = data
		}
	}

	if rErr := o.recorder.Record(context.Background(), rec); rErr != nil {
		log.Printf("orchestrator: record %s history: %v", tool, rErr)
	}
}

func publishState[T any](o *Orchestrator, tool string) func(tracker.State[T]) {
	topic := consts.ToolStateTopic(tool)
	return func(st tracker.State[T]) {
		o.publish(topic, st)
	}
}

func (o *Orchestrator) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("orchestrator: encode %s: %v", topic, err)
		return
	}
	o.notify(topic, string(payload))
}
