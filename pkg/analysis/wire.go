package analysis

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dyike/FinDocHub/models"
)

// Response bodies as the analysis service sends them. Required fields are
// pointers so that an absent field can be told apart from a zero value.

type askResponse struct {
	Answer       *string  `json:"answer"`
	ResponseTime *float64 `json:"response_time"`
	Accuracy     *float64 `json:"accuracy"`
	Sources      *int     `json:"sources"`
	Confidence   *float64 `json:"confidence"`
}

type sentimentResponse struct {
	Sentiment      *string  `json:"sentiment"`
	Confidence     *float64 `json:"confidence"`
	ProcessingTime *float64 `json:"processing_time"`
	SentimentScore *float64 `json:"sentiment_score"`
}

type stockResponse struct {
	Symbol         *string           `json:"symbol"`
	Name           *string           `json:"name"`
	CurrentPrice   *decimal.Decimal  `json:"current_price"`
	ReturnPercent  *float64          `json:"return_percent"`
	Volatility     *float64          `json:"volatility"`
	MarketCap      *string           `json:"market_cap"`
	PERatio        *float64          `json:"pe_ratio"`
	Sentiment      json.RawMessage   `json:"sentiment"`
	ProcessingTime *float64          `json:"processing_time"`
	HistoricalData []json.RawMessage `json:"historical_data"`
}

type compareResponse struct {
	Stock1                *stockResponse `json:"stock1"`
	Stock2                *stockResponse `json:"stock2"`
	Winner                *string        `json:"winner"`
	PerformanceDifference *float64       `json:"performance_difference"`
	ProcessingTime        *float64       `json:"processing_time"`
}

type healthResponse struct {
	Status  *string `json:"status"`
	Version *string `json:"version"`
}

type metricsResponse struct {
	Accuracy           *string `json:"accuracy"`
	AvgResponseTime    *string `json:"avg_response_time"`
	Uptime             *string `json:"uptime"`
	DocumentsProcessed *int    `json:"documents_processed"`
	TotalQueries       *int    `json:"total_queries"`
}

// errorResponse is FastAPI's error body. detail is a string for
// HTTPException and a list for request validation errors.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func missing(field string) error {
	return models.Malformedf("missing field %s", field)
}

func (r askResponse) toModel() (models.Answer, error) {
	switch {
	case r.Answer == nil:
		return models.Answer{}, missing("answer")
	case r.ResponseTime == nil:
		return models.Answer{}, missing("response_time")
	case r.Accuracy == nil:
		return models.Answer{}, missing("accuracy")
	case r.Sources == nil:
		return models.Answer{}, missing("sources")
	case r.Confidence == nil:
		return models.Answer{}, missing("confidence")
	}
	if *r.Sources < 0 {
		return models.Answer{}, models.Malformedf("sources out of range: %d", *r.Sources)
	}
	if !inUnitRange(*r.Confidence) {
		return models.Answer{}, models.Malformedf("confidence out of range: %v", *r.Confidence)
	}
	return models.Answer{
		Answer:              *r.Answer,
		ResponseTimeSeconds: *r.ResponseTime,
		AccuracyPercent:     *r.Accuracy,
		SourceCount:         *r.Sources,
		Confidence:          *r.Confidence,
	}, nil
}

func (r sentimentResponse) toModel() (models.Sentiment, error) {
	switch {
	case r.Sentiment == nil:
		return models.Sentiment{}, missing("sentiment")
	case r.Confidence == nil:
		return models.Sentiment{}, missing("confidence")
	case r.ProcessingTime == nil:
		return models.Sentiment{}, missing("processing_time")
	case r.SentimentScore == nil:
		return models.Sentiment{}, missing("sentiment_score")
	}
	label, ok := models.ParseSentimentLabel(*r.Sentiment)
	if !ok {
		return models.Sentiment{}, models.Malformedf("unknown sentiment label %q", *r.Sentiment)
	}
	if !inUnitRange(*r.Confidence) {
		return models.Sentiment{}, models.Malformedf("confidence out of range: %v", *r.Confidence)
	}
	return models.Sentiment{
		Label:                 label,
		Confidence:            *r.Confidence,
		ProcessingTimeSeconds: *r.ProcessingTime,
		Score:                 *r.SentimentScore,
	}, nil
}

// toModel converts one stock summary. want is the normalized symbol that was
// requested; a summary of any other symbol is malformed.
func (r stockResponse) toModel(prefix, want string) (models.StockAnalysis, error) {
	field := func(name string) error { return missing(prefix + name) }
	switch {
	case r.Symbol == nil || strings.TrimSpace(*r.Symbol) == "":
		return models.StockAnalysis{}, field("symbol")
	case r.Name == nil:
		return models.StockAnalysis{}, field("name")
	case r.CurrentPrice == nil:
		return models.StockAnalysis{}, field("current_price")
	case r.ReturnPercent == nil:
		return models.StockAnalysis{}, field("return_percent")
	case r.Volatility == nil:
		return models.StockAnalysis{}, field("volatility")
	case r.ProcessingTime == nil:
		return models.StockAnalysis{}, field("processing_time")
	}
	if symbol := strings.ToUpper(strings.TrimSpace(*r.Symbol)); symbol != want {
		return models.StockAnalysis{}, models.Malformedf("%ssymbol %s does not match requested %s", prefix, symbol, want)
	}
	if r.CurrentPrice.IsNegative() {
		return models.StockAnalysis{}, models.Malformedf("%scurrent_price out of range: %s", prefix, r.CurrentPrice)
	}
	if *r.Volatility < 0 {
		return models.StockAnalysis{}, models.Malformedf("%svolatility out of range: %v", prefix, *r.Volatility)
	}
	if r.PERatio != nil && *r.PERatio < 0 {
		return models.StockAnalysis{}, models.Malformedf("%spe_ratio out of range: %v", prefix, *r.PERatio)
	}

	out := models.StockAnalysis{
		Symbol:                strings.ToUpper(strings.TrimSpace(*r.Symbol)),
		Name:                  *r.Name,
		CurrentPrice:          *r.CurrentPrice,
		ReturnPercent:         *r.ReturnPercent,
		Volatility:            *r.Volatility,
		MarketCap:             r.MarketCap,
		PERatio:               r.PERatio,
		ProcessingTimeSeconds: *r.ProcessingTime,
		HistoricalData:        r.HistoricalData,
	}
	if len(r.Sentiment) > 0 && string(r.Sentiment) != "null" {
		out.Sentiment = r.Sentiment
	}
	return out, nil
}

// toModel checks the service's verdict against the winner rule. The
// difference is always recomputed so that it equals |a − b| exactly. The two
// summaries must cover exactly the requested pair; a swapped pair is put back
// in request order.
func (r compareResponse) toModel(req models.StockCompareRequest) (models.StockComparison, error) {
	switch {
	case r.Stock1 == nil:
		return models.StockComparison{}, missing("stock1")
	case r.Stock2 == nil:
		return models.StockComparison{}, missing("stock2")
	case r.Winner == nil:
		return models.StockComparison{}, missing("winner")
	case r.PerformanceDifference == nil:
		return models.StockComparison{}, missing("performance_difference")
	case r.ProcessingTime == nil:
		return models.StockComparison{}, missing("processing_time")
	}
	first, second := r.Stock1, r.Stock2
	if got := responseSymbol(first); got != req.Symbol1 && got == req.Symbol2 && responseSymbol(second) == req.Symbol1 {
		first, second = second, first
	}
	a, err := first.toModel("stock1.", req.Symbol1)
	if err != nil {
		return models.StockComparison{}, err
	}
	b, err := second.toModel("stock2.", req.Symbol2)
	if err != nil {
		return models.StockComparison{}, err
	}

	winner, diff := models.DecideWinner(a, b)
	reported := strings.ToUpper(strings.TrimSpace(*r.Winner))
	if reported != a.Symbol && reported != b.Symbol {
		return models.StockComparison{}, models.Malformedf("winner %q is neither %s nor %s", *r.Winner, a.Symbol, b.Symbol)
	}
	if a.ReturnPercent != b.ReturnPercent && reported != winner {
		return models.StockComparison{}, models.Malformedf("winner %s contradicts returns %v%% vs %v%%", reported, a.ReturnPercent, b.ReturnPercent)
	}

	return models.StockComparison{
		StockA:                       a,
		StockB:                       b,
		WinnerSymbol:                 winner,
		PerformanceDifferencePercent: diff,
		ProcessingTimeSeconds:        *r.ProcessingTime,
	}, nil
}

func (r healthResponse) toModel() (models.HealthStatus, error) {
	switch {
	case r.Status == nil:
		return models.HealthStatus{}, missing("status")
	case r.Version == nil:
		return models.HealthStatus{}, missing("version")
	}
	return models.HealthStatus{Status: *r.Status, Version: *r.Version}, nil
}

func (r metricsResponse) toModel() (models.ServiceMetrics, error) {
	switch {
	case r.Accuracy == nil:
		return models.ServiceMetrics{}, missing("accuracy")
	case r.AvgResponseTime == nil:
		return models.ServiceMetrics{}, missing("avg_response_time")
	case r.Uptime == nil:
		return models.ServiceMetrics{}, missing("uptime")
	case r.DocumentsProcessed == nil:
		return models.ServiceMetrics{}, missing("documents_processed")
	case r.TotalQueries == nil:
		return models.ServiceMetrics{}, missing("total_queries")
	}
	return models.ServiceMetrics{
		Accuracy:           *r.Accuracy,
		AvgResponseTime:    *r.AvgResponseTime,
		Uptime:             *r.Uptime,
		DocumentsProcessed: *r.DocumentsProcessed,
		TotalQueries:       *r.TotalQueries,
	}, nil
}

func responseSymbol(r *stockResponse) string {
	if r.Symbol == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*r.Symbol))
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
