package models

import (
	"encoding/json"
	"time"
)

const (
	HistoryStatusSucceeded = "succeeded"
	HistoryStatusFailed    = "failed"
)

// HistoryRecord is one completed remote call of a tool slot.
type HistoryRecord struct {
	ID          string          `json:"id"`
	Tool        string          `json:"tool"`
	Status      string          `json:"status"`
	Request     json.RawMessage `json:"request"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorKind   ErrorKind       `json:"error_kind,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	Duration    time.Duration   `json:"duration"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HistoryParams filters a history listing.
type HistoryParams struct {
	Tool  string `json:"tool"`
	Limit int    `json:"limit"` // default 50, max 200
}
