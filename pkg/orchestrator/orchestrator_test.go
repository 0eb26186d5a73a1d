package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/roi"
	"github.com/dyike/FinDocHub/pkg/tracker"
)

type fakeService struct {
	mu       sync.Mutex
	asked    []models.AskRequest
	analyzed []models.StockAnalyzeRequest
	compared []models.StockCompareRequest

	askGate    chan struct{}
	compareErr error
	askErr     error
}

func (f *fakeService) Ask(ctx context.Context, req models.AskRequest) (models.Answer, error) {
	f.mu.Lock()
	f.asked = append(f.asked, req)
	gate := f.askGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Answer{}, &models.Error{Kind: models.KindTimeout, Err: ctx.Err()}
		}
	}
	if f.askErr != nil {
		return models.Answer{}, f.askErr
	}
	return models.Answer{Answer: "42", SourceCount: 3, Confidence: 0.9}, nil
}

func (f *fakeService) Sentiment(ctx context.Context, req models.SentimentRequest) (models.Sentiment, error) {
	return models.Sentiment{Label: models.SentimentNeutral, Confidence: 0.5}, nil
}

func (f *fakeService) AnalyzeStock(ctx context.Context, req models.StockAnalyzeRequest) (models.StockAnalysis, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, req)
	f.mu.Unlock()
	return models.StockAnalysis{Symbol: req.Symbol, CurrentPrice: decimal.NewFromInt(100)}, nil
}

func (f *fakeService) CompareStocks(ctx context.Context, req models.StockCompareRequest) (models.StockComparison, error) {
	f.mu.Lock()
	f.compared = append(f.compared, req)
	f.mu.Unlock()
	if f.compareErr != nil {
		return models.StockComparison{}, f.compareErr
	}
	return models.StockComparison{WinnerSymbol: req.Symbol1}, nil
}

type memRecorder struct {
	mu      sync.Mutex
	records []models.HistoryRecord
}

func (m *memRecorder) Record(ctx context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

type event struct {
	topic   string
	payload string
}

type eventLog struct {
	mu     sync.Mutex
	events []event
}

func (l *eventLog) notify(topic, payload string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{topic, payload})
}

func (l *eventLog) topics() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.topic)
	}
	return out
}

func newTestOrchestrator(svc Service, opts ...Option) (*Orchestrator, *eventLog) {
	events := &eventLog{}
	opts = append([]Option{WithNotifier(events.notify)}, opts...)
	return New(svc, roi.DefaultCalculator(), opts...), events
}

func TestCompareRejectedFailsSlot(t *testing.T) {
	svc := &fakeService{compareErr: models.Rejected(500)}
	o, _ := newTestOrchestrator(svc)

	if err := o.CompareStocks(context.Background(), models.StockCompareRequest{Symbol1: "aapl", Symbol2: "msft"}); err != nil {
		t.Fatalf("CompareStocks: %v", err)
	}
	o.Wait()

	st := o.StockCompareState()
	if st.Phase() != tracker.Failed {
		t.Fatalf("expected failed, got %s", st.Phase())
	}
	if !errors.Is(st.Err(), models.Rejected(500)) {
		t.Fatalf("expected rejection 500, got %v", st.Err())
	}
	if len(svc.compared) != 1 || svc.compared[0].Symbol1 != "AAPL" || svc.compared[0].Symbol2 != "MSFT" {
		t.Fatalf("expected uppercase symbols, got %+v", svc.compared)
	}
	if svc.compared[0].Period != "1y" {
		t.Fatalf("expected default period, got %q", svc.compared[0].Period)
	}
}

func TestBlankQuestionDoesNotTransition(t *testing.T) {
	svc := &fakeService{}
	o, events := newTestOrchestrator(svc)

	err := o.Ask(context.Background(), models.AskRequest{Question: "  \t "})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	o.Wait()

	if o.AskState().Phase() != tracker.Idle {
		t.Fatalf("expected idle, got %s", o.AskState().Phase())
	}
	if len(svc.asked) != 0 {
		t.Fatalf("service must not be called")
	}
	if len(events.topics()) != 0 {
		t.Fatalf("expected no events, got %v", events.topics())
	}
}

func TestAskWhilePendingIsRejected(t *testing.T) {
	gate := make(chan struct{})
	svc := &fakeService{askGate: gate}
	o, _ := newTestOrchestrator(svc)

	if err := o.Ask(context.Background(), models.AskRequest{Question: "first"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	before := o.AskState()

	if err := o.Ask(context.Background(), models.AskRequest{Question: "second"}); !errors.Is(err, models.ErrAlreadyInFlight) {
		t.Fatalf("expected already in flight, got %v", err)
	}
	after := o.AskState()
	if after.Phase() != tracker.Pending || after.Seq() != before.Seq() {
		t.Fatalf("in-flight state changed: %s seq %d -> %d", after.Phase(), before.Seq(), after.Seq())
	}

	// Other slots stay independent.
	if err := o.AnalyzeSentiment(context.Background(), models.SentimentRequest{Text: "fine"}); err != nil {
		t.Fatalf("AnalyzeSentiment: %v", err)
	}

	close(gate)
	o.Wait()

	res, ok := o.AskState().Result()
	if !ok || res.Answer != "42" {
		t.Fatalf("expected first answer, got %+v", res)
	}
	if len(svc.asked) != 1 || svc.asked[0].Question != "first" {
		t.Fatalf("expected a single call for the first question, got %+v", svc.asked)
	}
	if o.SentimentState().Phase() != tracker.Succeeded {
		t.Fatalf("expected sentiment to succeed, got %s", o.SentimentState().Phase())
	}
}

func TestTimeoutFailsSlot(t *testing.T) {
	svc := &fakeService{askGate: make(chan struct{})}
	o, _ := newTestOrchestrator(svc, WithTimeout(20*time.Millisecond))

	if err := o.Ask(context.Background(), models.AskRequest{Question: "slow"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	o.Wait()

	if !errors.Is(o.AskState().Err(), models.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", o.AskState().Err())
	}
}

func TestTriggerDispatchesOnRequestKind(t *testing.T) {
	svc := &fakeService{}
	o, _ := newTestOrchestrator(svc, WithDefaultPeriod("6mo"))

	if err := o.Trigger(context.Background(), models.StockAnalyzeRequest{Symbol: "nvda"}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	o.Wait()

	res, ok := o.StockAnalyzeState().Result()
	if !ok || res.Symbol != "NVDA" {
		t.Fatalf("unexpected stock state %+v", res)
	}
	if svc.analyzed[0].Period != "6mo" {
		t.Fatalf("expected configured default period, got %q", svc.analyzed[0].Period)
	}
	if o.AskState().Phase() != tracker.Idle {
		t.Fatalf("other slots must stay idle")
	}
}

func TestEventsPublishedPerTransition(t *testing.T) {
	svc := &fakeService{}
	o, events := newTestOrchestrator(svc)

	o.Ask(context.Background(), models.AskRequest{Question: "q"})
	o.Wait()
	if err := o.Reset(consts.ToolAsk); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	o.SetTeamSize(8)

	topic := consts.ToolStateTopic(consts.ToolAsk)
	want := []string{topic, topic, topic, consts.Topic_ROIUpdated}
	got := events.topics()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	var st struct {
		Phase  string          `json:"phase"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(events.events[1].payload), &st); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if st.Phase != "succeeded" || !strings.Contains(string(st.Result), `"answer":"42"`) {
		t.Fatalf("unexpected payload %s", events.events[1].payload)
	}

	var p struct {
		Inputs roi.Inputs `json:"inputs"`
	}
	json.Unmarshal([]byte(events.events[3].payload), &p)
	if p.Inputs.TeamSize != 8 {
		t.Fatalf("unexpected roi payload %s", events.events[3].payload)
	}
}

func TestHistoryRecordedPerCompletedCall(t *testing.T) {
	rec := &memRecorder{}
	svc := &fakeService{compareErr: models.Rejected(503)}
	o, _ := newTestOrchestrator(svc, WithRecorder(rec))

	o.Ask(context.Background(), models.AskRequest{Question: "q"})
	o.CompareStocks(context.Background(), models.StockCompareRequest{Symbol1: "A", Symbol2: "B"})
	o.Ask(context.Background(), models.AskRequest{Question: ""})
	o.Wait()

	if len(rec.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rec.records))
	}
	byTool := map[string]models.HistoryRecord{}
	for _, r := range rec.records {
		byTool[r.Tool] = r
	}
	ask := byTool[consts.ToolAsk]
	if ask.Status != models.HistoryStatusSucceeded || !strings.Contains(string(ask.Result), "42") {
		t.Fatalf("unexpected ask record %+v", ask)
	}
	cmp := byTool[consts.ToolStockCompare]
	if cmp.Status != models.HistoryStatusFailed || cmp.ErrorKind != models.KindServiceRejected || cmp.StatusCode != 503 {
		t.Fatalf("unexpected compare record %+v", cmp)
	}
}

func TestResetRejectsUnknownTool(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeService{})
	if err := o.Reset("forecast"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestROIDelegation(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeService{})

	if got := o.ROI().Result.AnnualSavings.String(); got != "1067244" {
		t.Fatalf("expected default savings 1067244, got %s", got)
	}

	p := o.SetHourlyRate(0)
	if !errors.Is(p.Err, models.ErrInvalidInput) || p.Result != nil {
		t.Fatalf("expected invalid projection, got %+v", p)
	}

	calc, err := roi.NewCalculator(1000, 0.5)
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	o.SetHourlyRate(150)
	p = o.SetCalculator(calc)
	if p.Result.AnnualSavings.String() != "564000" {
		t.Fatalf("expected 564000, got %s", p.Result.AnnualSavings)
	}

	data, err := json.Marshal(o.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	for _, key := range []string{`"ask"`, `"sentiment"`, `"stock_analyze"`, `"stock_compare"`, `"roi"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("snapshot missing %s: %s", key, data)
		}
	}
}
