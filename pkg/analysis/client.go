// Package analysis talks to the remote document and market analysis service.
// Each call sends exactly one request and never retries.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/FinDocHub/config"
	"github.com/dyike/FinDocHub/consts"
	"github.com/dyike/FinDocHub/models"
)

// maxDetailLen bounds how much of an unstructured error body is kept.
const maxDetailLen = 200

// Client handles analysis service operations
type Client struct {
	client        *resty.Client
	defaultPeriod string
	debug         bool
}

// NewClient creates a client for the service at cfg.APIBaseURL.
func NewClient(cfg *config.Config) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/"))
	client.SetTimeout(cfg.RequestTimeout())
	client.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.SetRetryCount(0)

	period := cfg.DefaultPeriod
	if period == "" {
		period = models.DefaultPeriod
	}

	return &Client{
		client:        client,
		defaultPeriod: period,
		debug:         cfg.Debug,
	}
}

// BaseURL returns the service root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

// Ask answers a question about the indexed financial documents.
func (c *Client) Ask(ctx context.Context, req models.AskRequest) (models.Answer, error) {
	req, err := req.Normalize()
	if err != nil {
		return models.Answer{}, err
	}
	var wire askResponse
	if err := c.do(ctx, resty.MethodPost, consts.PathAsk, req, &wire); err != nil {
		return models.Answer{}, err
	}
	return wire.toModel()
}

// Sentiment classifies a piece of financial text.
func (c *Client) Sentiment(ctx context.Context, req models.SentimentRequest) (models.Sentiment, error) {
	req, err := req.Normalize()
	if err != nil {
		return models.Sentiment{}, err
	}
	var wire sentimentResponse
	if err := c.do(ctx, resty.MethodPost, consts.PathSentiment, req, &wire); err != nil {
		return models.Sentiment{}, err
	}
	return wire.toModel()
}

// AnalyzeStock fetches the performance summary of one symbol.
func (c *Client) AnalyzeStock(ctx context.Context, req models.StockAnalyzeRequest) (models.StockAnalysis, error) {
	if strings.TrimSpace(req.Period) == "" {
		req.Period = c.defaultPeriod
	}
	req, err := req.Normalize()
	if err != nil {
		return models.StockAnalysis{}, err
	}
	var wire stockResponse
	if err := c.do(ctx, resty.MethodPost, consts.PathStockAnalyze, req, &wire); err != nil {
		return models.StockAnalysis{}, err
	}
	return wire.toModel("", req.Symbol)
}

// CompareStocks compares two symbols over the same period.
func (c *Client) CompareStocks(ctx context.Context, req models.StockCompareRequest) (models.StockComparison, error) {
	if strings.TrimSpace(req.Period) == "" {
		req.Period = c.defaultPeriod
	}
	req, err := req.Normalize()
	if err != nil {
		return models.StockComparison{}, err
	}
	var wire compareResponse
	if err := c.do(ctx, resty.MethodPost, consts.PathStockCompare, req, &wire); err != nil {
		return models.StockComparison{}, err
	}
	return wire.toModel(req)
}

// Health reports whether the service is up and which version it runs.
func (c *Client) Health(ctx context.Context) (models.HealthStatus, error) {
	var wire healthResponse
	if err := c.do(ctx, resty.MethodGet, consts.PathHealth, nil, &wire); err != nil {
		return models.HealthStatus{}, err
	}
	return wire.toModel()
}

// Metrics returns the service's self-reported performance figures.
func (c *Client) Metrics(ctx context.Context) (models.ServiceMetrics, error) {
	var wire metricsResponse
	if err := c.do(ctx, resty.MethodGet, consts.PathMetrics, nil, &wire); err != nil {
		return models.ServiceMetrics{}, err
	}
	return wire.toModel()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	r := c.client.R().SetContext(ctx)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return transportError(ctx, method, path, err)
	}
	if c.debug {
		log.Printf("analysis: %s %s -> %d in %s", method, path, resp.StatusCode(), resp.Time())
	}

	if !resp.IsSuccess() {
		return &models.Error{
			Kind:       models.KindServiceRejected,
			StatusCode: resp.StatusCode(),
			Detail:     errorDetail(resp),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &models.Error{Kind: models.KindMalformed, Detail: "decode " + path + " response", Err: err}
	}
	return nil
}

func transportError(ctx context.Context, method, path string, err error) error {
	detail := method + " " + path
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.Error{Kind: models.KindTimeout, Detail: detail, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &models.Error{Kind: models.KindTimeout, Detail: detail, Err: err}
	}
	return &models.Error{Kind: models.KindNetwork, Detail: detail, Err: err}
}

// errorDetail extracts FastAPI's detail message, falling back to the raw body.
func errorDetail(resp *resty.Response) string {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && len(body.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(body.Detail, &msg); err == nil {
			return msg
		}
		return truncate(string(body.Detail))
	}
	if text := strings.TrimSpace(resp.String()); text != "" {
		return truncate(text)
	}
	return resp.Status()
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	return s[:maxDetailLen] + "..."
}
