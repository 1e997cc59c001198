package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"heyu/internal/models"

	"github.com/rs/zerolog"
)

// Config holds configuration for the audit service.
type Config struct {
	// ExportOnStart if true, runs export immediately on service start.
	ExportOnStart bool

	// ExportDir keeps a copy of every monthly report on disk when set.
	ExportDir string
}

// Service handles monthly exports of every table.
type Service struct {
	config   Config
	exporter TableExporter
	writer   func() ExcelWriter // factory for creating new Excel writers
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewService creates a new audit service. A nil writer factory uses excelize.
func NewService(config Config, exporter TableExporter, writerFactory func() ExcelWriter, notifier Notifier, logger *zerolog.Logger) *Service {
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the audit scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runMonthly()
		}()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Str("export_dir", s.config.ExportDir).Msg("Audit service started")
}

// Stop gracefully stops the audit service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("Audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(s.now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.runMonthly()

			nextRun = nextFirstOfMonth(s.now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("time", nextRun).Msg("Next audit scheduled")
		}
	}
}

// nextFirstOfMonth is 00:01 on the first day of the month after now.
func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

func (s *Service) runMonthly() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.ExportNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to export audit data")
	}
}

// ExportNow builds the full workbook, stores it in ExportDir and sends it to
// the admins. It returns the file name used.
func (s *Service) ExportNow(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	if err := s.WriteWorkbook(ctx, &buf); err != nil {
		return "", err
	}
	filename := GenerateFilenameForPreviousMonth(s.now())

	if s.config.ExportDir != "" {
		if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
		path := filepath.Join(s.config.ExportDir, filename)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return "", fmt.Errorf("write export: %w", err)
		}
		s.logger.Info().Str("path", path).Msg("Audit report saved")
	}

	if s.notifier != nil {
		caption := fmt.Sprintf("📊 HeyU monthly report %s", filename)
		if err := s.notifier.SendDocument(ctx, filename, bytes.NewReader(buf.Bytes()), caption); err != nil {
			return filename, fmt.Errorf("send document: %w", err)
		}
		s.logger.Info().Str("filename", filename).Msg("Audit report sent")
	}
	return filename, nil
}

// WriteWorkbook writes one sheet per exported table to w.
func (s *Service) WriteWorkbook(ctx context.Context, w io.Writer) error {
	if s.exporter == nil {
		return fmt.Errorf("exporter not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	excel := s.writer()
	defer excel.Close()

	written := 0
	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("Failed to get table data")
			continue
		}
		if err := excel.AddSheet(tableName); err != nil {
			return err
		}
		if err := excel.WriteHeader(columns); err != nil {
			return fmt.Errorf("write header %s: %w", tableName, err)
		}
		for _, row := range data {
			rowData := make([]any, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				return fmt.Errorf("write row %s: %w", tableName, err)
			}
		}
		written++
		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("Exported table")
	}

	if written == 0 {
		if err := excel.AddSheet("empty"); err != nil {
			return err
		}
	}
	if err := excel.Save(w); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}

// BookingColumns is the header of the bookings export.
var BookingColumns = []string{
	"Booking ID", "Date", "Time", "Hours", "Service (CN)", "Service (EN)", "Price",
	"Name", "WeChat Name", "Phone", "Email", "WeChat ID", "Status", "Created At",
}

// BookingRow flattens a booking in BookingColumns order.
func BookingRow(b models.Booking) []any {
	created := ""
	if !b.CreatedAt.IsZero() {
		created = b.CreatedAt.Format(time.RFC3339)
	}
	return []any{
		b.BookingID, b.SelectedDate, b.SelectedTime, b.Hours(), b.Service.NameCn, b.Service.NameEn,
		b.Service.Price, b.Name, b.WechatName, b.Phone, b.Email, b.Wechat, b.Status, created,
	}
}

// WriteBookings writes an admin-friendly bookings sheet to w.
func WriteBookings(w io.Writer, bookings []models.Booking) error {
	excel := NewExcelizeWriter()
	defer excel.Close()

	if err := excel.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := excel.WriteHeader(BookingColumns); err != nil {
		return err
	}
	for _, b := range bookings {
		if err := excel.WriteRow(BookingRow(b)); err != nil {
			return err
		}
	}
	return excel.Save(w)
}
