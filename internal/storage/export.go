package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dyike/FinDocHub/models"
)

var exportHeader = []string{
	"ID", "Tool", "Status", "CreatedAt", "DurationMs",
	"ErrorKind", "StatusCode", "ErrorDetail", "Request", "Result",
}

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []models.HistoryRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		statusCode := ""
		if rec.StatusCode != 0 {
			statusCode = strconv.Itoa(rec.StatusCode)
		}
		row := []string{
			rec.ID,
			rec.Tool,
			rec.Status,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			strconv.FormatInt(rec.Duration.Milliseconds(), 10),
			string(rec.ErrorKind),
			statusCode,
			rec.ErrorDetail,
			string(rec.Request),
			string(rec.Result),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", rec.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportCSV writes records to <dir>/history_<n>_records_<timestamp>.csv and
// returns the file path.
func ExportCSV(dir string, records []models.HistoryRecord, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	name := fmt.Sprintf("history_%d_records_%s.csv", len(records), now.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(file, records); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
