package google

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"heyu/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsColumns = "A:N"
	scheduleSheet   = "Schedule"
)

// SheetsService mirrors bookings into a Google spreadsheet.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger

	mu       sync.Mutex
	rowCache map[string]int
}

// NewSheetsService authenticates with a service-account JSON key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewSheetsServiceWithOptions(ctx, spreadsheetID, sheetName, logger, option.WithCredentials(creds))
}

// NewSheetsServiceWithOptions builds the client from explicit API options.
func NewSheetsServiceWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger *zerolog.Logger, opts ...option.ClientOption) (*SheetsService, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if sheetName == "" {
		sheetName = "Bookings"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
		rowCache:      make(map[string]int),
	}, nil
}

var headerRow = []interface{}{
	"Booking ID", "Date", "Time", "Hours", "Service (CN)", "Service (EN)", "Price",
	"Name", "WeChat Name", "Phone", "Email", "WeChat ID", "Status", "Created At",
}

func bookingRowValues(b *models.Booking) []interface{} {
	created := ""
	if !b.CreatedAt.IsZero() {
		created = b.CreatedAt.Format("2006-01-02 15:04:05")
	}
	return []interface{}{
		b.BookingID,
		b.SelectedDate,
		b.SelectedTime,
		b.Hours(),
		b.Service.NameCn,
		b.Service.NameEn,
		b.Service.Price,
		b.Name,
		b.WechatName,
		b.Phone,
		b.Email,
		b.Wechat,
		b.Status,
		created,
	}
}

func (s *SheetsService) filterActiveBookings(bookings []models.Booking) []models.Booking {
	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == "" || b.Status == models.StatusConfirmed {
			active = append(active, b)
		}
	}
	return active
}

func (s *SheetsService) getCachedRow(bookingID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[bookingID]
	return row, ok
}

func (s *SheetsService) setCachedRow(bookingID string, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[bookingID] = row
}

func (s *SheetsService) deleteCacheRow(bookingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, bookingID)
}

// ClearCache forgets every known booking row.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[string]int)
}

var updatedRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// parseUpdatedRow extracts the first row number of a range such as "Bookings!A5:N5".
func parseUpdatedRow(updatedRange string) (int, bool) {
	m := updatedRowRe.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

// AppendBooking adds a booking row, or rewrites it when the booking was mirrored before.
func (s *SheetsService) AppendBooking(ctx context.Context, b models.Booking) error {
	values := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(&b)}}

	if row, ok := s.getCachedRow(b.BookingID); ok {
		rng := fmt.Sprintf("%s!A%d:N%d", s.sheetName, row, row)
		_, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			s.deleteCacheRow(b.BookingID)
			return fmt.Errorf("update booking row: %w", err)
		}
		return nil
	}

	resp, err := s.srv.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!"+bookingsColumns, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	if resp.Updates != nil {
		if row, ok := parseUpdatedRow(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.BookingID, row)
		}
	}
	s.logger.Debug().Str("booking_id", b.BookingID).Msg("Booking mirrored to sheet")
	return nil
}

// SyncBookings rewrites the whole bookings sheet with the active bookings.
func (s *SheetsService) SyncBookings(ctx context.Context, bookings []models.Booking) error {
	active := s.filterActiveBookings(bookings)

	rows := make([][]interface{}, 0, len(active)+1)
	rows = append(rows, headerRow)
	for i := range active {
		rows = append(rows, bookingRowValues(&active[i]))
	}

	full := s.sheetName + "!" + bookingsColumns
	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, full, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	if _, err := s.srv.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.ClearCache()
	for i, b := range active {
		s.setCachedRow(b.BookingID, i+2)
	}
	s.logger.Info().Int("rows", len(active)).Msg("Bookings sheet synced")
	return nil
}

// prepareDateHeaders returns the schedule header row and the number of date columns.
func (s *SheetsService) prepareDateHeaders(startDate, endDate time.Time) ([]interface{}, int) {
	headers := []interface{}{"Time"}
	cols := 0
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		headers = append(headers, d.Format("01-02 Mon"))
		cols++
	}
	return headers, cols
}

var (
	colorFree    = &sheets.Color{Red: 0.85, Green: 0.94, Blue: 0.83}
	colorBooked  = &sheets.Color{Red: 0.98, Green: 0.80, Blue: 0.80}
	colorBlocked = &sheets.Color{Red: 0.85, Green: 0.85, Blue: 0.85}
)

// formatScheduleCell renders one slot of the schedule grid.
func (s *SheetsService) formatScheduleCell(slot string, booking *models.Booking, blocked bool) (string, *sheets.Color) {
	switch {
	case booking != nil:
		return fmt.Sprintf("%s (%dh) %s", booking.Name, booking.Hours(), booking.Service.NameEn), colorBooked
	case blocked:
		return "Blocked", colorBlocked
	default:
		return "Free " + slot, colorFree
	}
}

// ScheduleDay is the input for one column of the schedule grid.
type ScheduleDay struct {
	Date     time.Time
	Bookings []models.Booking
	Blocked  *models.BlockedDate
}

// WriteSchedule renders a slots-by-dates grid on the Schedule sheet.
func (s *SheetsService) WriteSchedule(ctx context.Context, slots []string, days []ScheduleDay) error {
	if len(days) == 0 {
		return nil
	}
	sheetID, err := s.ensureSheet(ctx, scheduleSheet)
	if err != nil {
		return err
	}

	headers, _ := s.prepareDateHeaders(days[0].Date, days[len(days)-1].Date)
	rows := []*sheets.RowData{{Values: stringCells(headers, nil)}}

	for _, slot := range slots {
		cells := []*sheets.CellData{stringCell(slot, nil)}
		for _, day := range days {
			var booked *models.Booking
			for i := range day.Bookings {
				if day.Bookings[i].SelectedTime == slot {
					booked = &day.Bookings[i]
					break
				}
			}
			blocked := day.Blocked != nil && day.Blocked.Blocks(slot)
			text, color := s.formatScheduleCell(slot, booked, blocked)
			cells = append(cells, stringCell(text, color))
		}
		rows = append(rows, &sheets.RowData{Values: cells})
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{
		{UpdateCells: &sheets.UpdateCellsRequest{
			Range:  &sheets.GridRange{SheetId: sheetID},
			Fields: "userEnteredValue,userEnteredFormat.backgroundColor",
		}},
		{UpdateCells: &sheets.UpdateCellsRequest{
			Start:  &sheets.GridCoordinate{SheetId: sheetID},
			Rows:   rows,
			Fields: "userEnteredValue,userEnteredFormat.backgroundColor",
		}},
	}}
	if _, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}
	return nil
}

func (s *SheetsService) ensureSheet(ctx context.Context, title string) (int64, error) {
	ss, err := s.srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}

	resp, err := s.srv.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

func stringCell(v string, color *sheets.Color) *sheets.CellData {
	cell := &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &v}}
	if color != nil {
		cell.UserEnteredFormat = &sheets.CellFormat{BackgroundColor: color}
	}
	return cell
}

func stringCells(values []interface{}, color *sheets.Color) []*sheets.CellData {
	out := make([]*sheets.CellData, 0, len(values))
	for _, v := range values {
		out = append(out, stringCell(fmt.Sprint(v), color))
	}
	return out
}
