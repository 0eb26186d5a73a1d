package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	ErrRecordNotFound = errors.New("history record not found")
	ErrAmbiguousID    = errors.New("history id prefix matches more than one record")
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    tool TEXT NOT NULL,
    status TEXT NOT NULL,
    request_json TEXT NOT NULL DEFAULT '',
    result_json TEXT NOT NULL DEFAULT '',
    error_kind TEXT NOT NULL DEFAULT '',
    status_code INTEGER NOT NULL DEFAULT 0,
    error_detail TEXT NOT NULL DEFAULT '',
    duration_ns INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_tool_created ON history(tool, created_at);
`

// Store is the SQLite log of completed tool calls.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts rec, assigning an ID and timestamp when they are empty.
func (s *Store) Record(ctx context.Context, rec models.HistoryRecord) error {
	if rec.Tool == "" {
		return fmt.Errorf("insert history: tool is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO history (id, tool, status, request_json, result_json, error_kind, status_code, error_detail, duration_ns, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.Tool, rec.Status, string(rec.Request), string(rec.Result), string(rec.ErrorKind),
		rec.StatusCode, rec.ErrorDetail, int64(rec.Duration), rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List returns the newest records first, optionally for a single tool.
func (s *Store) List(ctx context.Context, params models.HistoryParams) ([]models.HistoryRecord, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, tool, status, request_json, result_json, error_kind, status_code, error_detail, duration_ns, created_at
FROM history
WHERE (? = '' OR tool = ?)
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, params.Tool, params.Tool, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history rows: %w", err)
	}
	return out, nil
}

// Get returns the record whose ID is id or, failing that, the only record
// whose ID starts with id.
func (s *Store) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.HistoryRecord{}, ErrRecordNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, tool, status, request_json, result_json, error_kind, status_code, error_detail, duration_ns, created_at
FROM history
WHERE id = ? OR substr(id, 1, length(?)) = ?
ORDER BY id = ? DESC
LIMIT 2
`, id, id, id, id)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("get history %s: %w", id, err)
	}
	defer rows.Close()

	var found []models.HistoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return models.HistoryRecord{}, fmt.Errorf("scan history: %w", err)
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("get history %s: %w", id, err)
	}

	switch {
	case len(found) == 0:
		return models.HistoryRecord{}, ErrRecordNotFound
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return models.HistoryRecord{}, ErrAmbiguousID
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.HistoryRecord, error) {
	var (
		rec        models.HistoryRecord
		request    string
		result     string
		errorKind  string
		durationNs int64
		createdAt  string
	)
	if err := row.Scan(&rec.ID, &rec.Tool, &rec.Status, &request, &result, &errorKind,
		&rec.StatusCode, &rec.ErrorDetail, &durationNs, &createdAt); err != nil {
		return rec, err
	}
	if request != "" {
		rec.Request = []byte(request)
	}
	if result != "" {
		rec.Result = []byte(result)
	}
	rec.ErrorKind = models.ErrorKind(errorKind)
	rec.Duration = time.Duration(durationNs)
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return rec, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
