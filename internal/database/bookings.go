package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"heyu/internal/models"

	"github.com/mattn/go-sqlite3"
)

const bookingColumns = `booking_id, service_json, selected_date, selected_time, duration_hours,
	name, wechat_name, email, phone, wechat, status, reminder_sent, created_at`

// CreateBooking inserts b. A second booking at the same date and time fails with models.ErrSlotTaken.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	models.NormalizeBooking(b)

	svc, err := json.Marshal(b.Service)
	if err != nil {
		return fmt.Errorf("encode service: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`, service_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BookingID, string(svc), b.SelectedDate, b.SelectedTime, b.DurationHours,
		b.Name, b.WechatName, b.Email, b.Phone, b.Wechat, b.Status, b.ReminderSent, b.CreatedAt.UTC(),
		b.Service.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(sqliteErr.Error(), "selected_date") {
			return models.ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ListBookings returns every booking, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

// BookingsByDate returns the bookings on date ordered by start time.
func (db *DB) BookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE selected_date = ? ORDER BY selected_time`, date)
}

// GetBooking returns models.ErrNotFound for unknown ids.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return &b, nil
}

// DeleteAllBookings removes every booking and reports how many were deleted.
func (db *DB) DeleteAllBookings(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, fmt.Errorf("delete bookings: %w", err)
	}
	return res.RowsAffected()
}

// UpcomingBookings returns confirmed bookings between the two dates (inclusive)
// that have not had a reminder yet.
func (db *DB) UpcomingBookings(ctx context.Context, fromDate, toDate string) ([]models.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE reminder_sent = 0 AND status = ? AND selected_date BETWEEN ? AND ?
		ORDER BY selected_date, selected_time`,
		models.StatusConfirmed, fromDate, toDate)
}

func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `UPDATE bookings SET reminder_sent = 1 WHERE booking_id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(r rowScanner) (models.Booking, error) {
	var (
		b   models.Booking
		svc string
	)
	err := r.Scan(&b.BookingID, &svc, &b.SelectedDate, &b.SelectedTime, &b.DurationHours,
		&b.Name, &b.WechatName, &b.Email, &b.Phone, &b.Wechat, &b.Status, &b.ReminderSent, &b.CreatedAt)
	if err != nil {
		return b, err
	}
	if svc != "" {
		if err := json.Unmarshal([]byte(svc), &b.Service); err != nil {
			return b, fmt.Errorf("decode service of booking %s: %w", b.BookingID, err)
		}
	}
	models.NormalizeBooking(&b)
	return b, nil
}
