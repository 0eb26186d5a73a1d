package models

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// SentimentLabel is the service's classification of a text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// ParseSentimentLabel accepts any casing of the three known labels.
func ParseSentimentLabel(s string) (SentimentLabel, bool) {
	switch l := SentimentLabel(strings.ToUpper(strings.TrimSpace(s))); l {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return l, true
	}
	return "", false
}

// Answer is the result of a document question.
type Answer struct {
	Answer              string  `json:"answer"`
	ResponseTimeSeconds float64 `json:"response_time_seconds"`
	AccuracyPercent     float64 `json:"accuracy_percent"`
	SourceCount         int     `json:"source_count"`
	Confidence          float64 `json:"confidence"`
}

type Sentiment struct {
	Label                 SentimentLabel `json:"label"`
	Confidence            float64        `json:"confidence"`
	ProcessingTimeSeconds float64        `json:"processing_time_seconds"`
	Score                 float64        `json:"sentiment_score"`
}

type StockAnalysis struct {
	Symbol                string            `json:"symbol"`
	Name                  string            `json:"name"`
	CurrentPrice          decimal.Decimal   `json:"current_price"`
	ReturnPercent         float64           `json:"return_percent"`
	Volatility            float64           `json:"volatility"`
	MarketCap             *string           `json:"market_cap,omitempty"`
	PERatio               *float64          `json:"pe_ratio,omitempty"`
	Sentiment             json.RawMessage   `json:"sentiment,omitempty"`
	ProcessingTimeSeconds float64           `json:"processing_time_seconds"`
	HistoricalData        []json.RawMessage `json:"historical_data,omitempty"`
}

type StockComparison struct {
	StockA                       StockAnalysis `json:"stock_a"`
	StockB                       StockAnalysis `json:"stock_b"`
	WinnerSymbol                 string        `json:"winner_symbol"`
	PerformanceDifferencePercent float64       `json:"performance_difference_percent"`
	ProcessingTimeSeconds        float64       `json:"processing_time_seconds"`
}

// DecideWinner picks the stock with the strictly higher return. Equal returns
// go to the lexically smaller symbol.
func DecideWinner(a, b StockAnalysis) (winner string, difference float64) {
	difference = math.Abs(a.ReturnPercent - b.ReturnPercent)
	switch {
	case a.ReturnPercent > b.ReturnPercent:
		return a.Symbol, difference
	case b.ReturnPercent > a.ReturnPercent:
		return b.Symbol, difference
	case b.Symbol < a.Symbol:
		return b.Symbol, difference
	default:
		return a.Symbol, difference
	}
}

// HealthStatus is the service's liveness report.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ServiceMetrics is the service's self-reported performance summary.
type ServiceMetrics struct {
	Accuracy           string `json:"accuracy"`
	AvgResponseTime    string `json:"avg_response_time"`
	Uptime             string `json:"uptime"`
	DocumentsProcessed int    `json:"documents_processed"`
	TotalQueries       int    `json:"total_queries"`
}
