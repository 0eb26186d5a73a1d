package models

import (
	"regexp"
	"strings"

	"github.com/dyike/FinDocHub/consts"
)

// DefaultPeriod is the lookback window the dashboard sends when none is chosen.
const DefaultPeriod = "1y"

var (
	symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

	validPeriods = map[string]bool{
		"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
		"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
	}
)

// Request is one of AskRequest, SentimentRequest, StockAnalyzeRequest or
// StockCompareRequest.
type Request interface {
	Tool() string
	Validate() error
	isRequest()
}

type AskRequest struct {
	Question string `json:"question"`
}

type SentimentRequest struct {
	Text string `json:"text"`
}

type StockAnalyzeRequest struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
}

type StockCompareRequest struct {
	Symbol1 string `json:"symbol1"`
	Symbol2 string `json:"symbol2"`
	Period  string `json:"period"`
}

func (AskRequest) Tool() string          { return consts.ToolAsk }
func (SentimentRequest) Tool() string    { return consts.ToolSentiment }
func (StockAnalyzeRequest) Tool() string { return consts.ToolStockAnalyze }
func (StockCompareRequest) Tool() string { return consts.ToolStockCompare }

func (AskRequest) isRequest()          {}
func (SentimentRequest) isRequest()    {}
func (StockAnalyzeRequest) isRequest() {}
func (StockCompareRequest) isRequest() {}

func (r AskRequest) Validate() error          { _, err := r.Normalize(); return err }
func (r SentimentRequest) Validate() error    { _, err := r.Normalize(); return err }
func (r StockAnalyzeRequest) Validate() error { _, err := r.Normalize(); return err }
func (r StockCompareRequest) Validate() error { _, err := r.Normalize(); return err }

// Normalize returns the request as it is sent on the wire.
func (r AskRequest) Normalize() (AskRequest, error) {
	q := strings.TrimSpace(r.Question)
	if q == "" {
		return r, invalidInput("question cannot be empty")
	}
	return AskRequest{Question: q}, nil
}

func (r SentimentRequest) Normalize() (SentimentRequest, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return r, invalidInput("text cannot be empty")
	}
	return SentimentRequest{Text: text}, nil
}

func (r StockAnalyzeRequest) Normalize() (StockAnalyzeRequest, error) {
	symbol, err := NormalizeSymbol(r.Symbol)
	if err != nil {
		return r, err
	}
	period, err := NormalizePeriod(r.Period)
	if err != nil {
		return r, err
	}
	return StockAnalyzeRequest{Symbol: symbol, Period: period}, nil
}

func (r StockCompareRequest) Normalize() (StockCompareRequest, error) {
	s1, err := NormalizeSymbol(r.Symbol1)
	if err != nil {
		return r, err
	}
	s2, err := NormalizeSymbol(r.Symbol2)
	if err != nil {
		return r, err
	}
	period, err := NormalizePeriod(r.Period)
	if err != nil {
		return r, err
	}
	return StockCompareRequest{Symbol1: s1, Symbol2: s2, Period: period}, nil
}

// NormalizeSymbol trims and upper-cases a ticker and checks its format.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.TrimSpace(strings.ToUpper(symbol))
	if s == "" {
		return "", invalidInput("symbol cannot be empty")
	}
	if len(s) > 10 {
		return "", invalidInput("symbol too long: %s", s)
	}
	if !symbolPattern.MatchString(s) {
		return "", invalidInput("invalid symbol format: %s", s)
	}
	return s, nil
}

// NormalizePeriod lower-cases a period and falls back to DefaultPeriod when blank.
func NormalizePeriod(period string) (string, error) {
	p := strings.TrimSpace(strings.ToLower(period))
	if p == "" {
		return DefaultPeriod, nil
	}
	if !validPeriods[p] {
		return "", invalidInput("unsupported period: %s", period)
	}
	return p, nil
}
