package audit

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"heyu/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeExporter struct {
	tables map[string][]map[string]any
	cols   map[string][]string
	order  []string
	failOn string
}

func (f *fakeExporter) GetTableNames(context.Context) ([]string, error) {
	return f.order, nil
}

func (f *fakeExporter) GetTableData(_ context.Context, name string) ([]map[string]any, []string, error) {
	if name == f.failOn {
		return nil, nil, errors.New("boom")
	}
	return f.tables[name], f.cols[name], nil
}

type capturedDoc struct {
	filename string
	caption  string
	data     []byte
}

type fakeNotifier struct {
	docs []capturedDoc
}

func (f *fakeNotifier) SendDocument(_ context.Context, filename string, data io.Reader, caption string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.docs = append(f.docs, capturedDoc{filename: filename, caption: caption, data: b})
	return nil
}

func quietLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func sampleExporter() *fakeExporter {
	return &fakeExporter{
		order: []string{"bookings", "blocked_dates"},
		tables: map[string][]map[string]any{
			"bookings": {
				{"booking_id": "BK1", "selected_date": "2025-03-04", "selected_time": "09:00"},
				{"booking_id": "BK2", "selected_date": "2025-03-04", "selected_time": "12:00"},
			},
			"blocked_dates": {{"date": "2025-03-05", "full_day": int64(1)}},
		},
		cols: map[string][]string{
			"bookings":      {"booking_id", "selected_date", "selected_time"},
			"blocked_dates": {"date", "full_day"},
		},
	}
}

func TestService_ExportNow(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{}
	svc := NewService(Config{ExportDir: dir}, sampleExporter(), nil, notifier, quietLogger())
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 0, 1, 0, 0, time.UTC) }

	filename, err := svc.ExportNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "heyu_2025-03.xlsx", filename)

	require.Len(t, notifier.docs, 1)
	assert.Equal(t, filename, notifier.docs[0].filename)
	assert.Contains(t, notifier.docs[0].caption, "monthly report")

	onDisk, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)
	assert.Equal(t, notifier.docs[0].data, onDisk)

	f, err := excelize.OpenReader(bytes.NewReader(onDisk))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"bookings", "blocked_dates"}, f.GetSheetList())
	rows, err := f.GetRows("bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"booking_id", "selected_date", "selected_time"}, rows[0])
	assert.Equal(t, []string{"BK2", "2025-03-04", "12:00"}, rows[2])
}

func TestService_SkipsFailingTable(t *testing.T) {
	exp := sampleExporter()
	exp.failOn = "bookings"
	svc := NewService(Config{}, exp, nil, nil, quietLogger())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteWorkbook(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"blocked_dates"}, f.GetSheetList())
}

func TestService_NoExporter(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil, quietLogger())
	_, err := svc.ExportNow(context.Background())
	assert.Error(t, err)
}

func TestWriteBookings(t *testing.T) {
	bookings := []models.Booking{{
		BookingID:     "BK1",
		Service:       models.Service{NameCn: "美甲", NameEn: "Manicure", Price: "¥200"},
		SelectedDate:  "2025-03-04",
		SelectedTime:  "18:00",
		DurationHours: 3,
		Name:          "Lin",
		Status:        models.StatusConfirmed,
		CreatedAt:     time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, BookingColumns, rows[0])
	assert.Equal(t, "BK1", rows[1][0])
	assert.Equal(t, "3", rows[1][3])
	assert.Equal(t, "美甲", rows[1][4])
	assert.Equal(t, "2025-03-01T08:00:00Z", rows[1][13])
}

func TestExcelizeWriter_LongSheetName(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()

	require.NoError(t, w.AddSheet("a_really_long_table_name_that_exceeds_limits"))
	require.NoError(t, w.WriteHeader([]string{"x"}))

	var buf bytes.Buffer
	require.NoError(t, w.Save(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList()[0], 31)
}

func TestExcelizeWriter_RowWithoutSheet(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()
	assert.Error(t, w.WriteRow([]any{"x"}))
}

func TestGenerateFilename(t *testing.T) {
	assert.Equal(t, "heyu_2026-01.xlsx", GenerateFilename(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "heyu_2025-12.xlsx", GenerateFilenameForPreviousMonth(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "heyu_2025-02.xlsx", GenerateFilenameForPreviousMonth(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNextFirstOfMonth(t *testing.T) {
	got := nextFirstOfMonth(time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC), got)
}
