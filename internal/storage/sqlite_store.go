package storage

import (
	"errors"
	"strings"

	"github.com/dyike/FinDocHub/config"
)

var (
	// ErrHistoryDisabled indicates config.HistoryEnabled is false.
	ErrHistoryDisabled = errors.New("history is disabled")
	// ErrHistoryPathNotConfigured indicates config.HistoryDBPath is empty.
	ErrHistoryPathNotConfigured = errors.New("history_db_path is not configured")
)

// OpenFromConfig opens the history database the config points at.
func OpenFromConfig(cfg config.Config) (*Store, error) {
	if !cfg.HistoryEnabled {
		return nil, ErrHistoryDisabled
	}
	path := strings.TrimSpace(cfg.HistoryDBPath)
	if path == "" {
		return nil, ErrHistoryPathNotConfigured
	}
	return NewStore(path)
}
