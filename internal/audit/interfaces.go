package audit

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to store tables for export.
type TableExporter interface {
	// GetTableNames returns list of table names to export.
	GetTableNames(ctx context.Context) ([]string, error)

	// GetTableData returns rows for a table as maps plus the column order.
	GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error)
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []any) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	// SaveToFile writes the Excel file to disk.
	SaveToFile(path string) error

	Close() error
}

// Notifier sends reports to the studio admins.
type Notifier interface {
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// GenerateFilename creates a filename like "heyu_2026-01.xlsx".
func GenerateFilename(t time.Time) string {
	return fmt.Sprintf("heyu_%s.xlsx", t.Format("2006-01"))
}

// GenerateFilenameForPreviousMonth creates filename for the month before now.
func GenerateFilenameForPreviousMonth(now time.Time) string {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return GenerateFilename(firstOfMonth.AddDate(0, -1, 0))
}
