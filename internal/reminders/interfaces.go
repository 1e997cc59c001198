package reminders

import (
	"context"

	"heyu/internal/models"
	"heyu/internal/notify"
)

// BookingStore provides access to bookings for the reminder service.
type BookingStore interface {
	// UpcomingBookings returns confirmed bookings dated within [fromDate, toDate]
	// that have not had a reminder yet.
	UpcomingBookings(ctx context.Context, fromDate, toDate string) ([]models.Booking, error)

	// MarkReminderSent marks a booking as having had its reminder sent.
	MarkReminderSent(ctx context.Context, bookingID string) error
}

// Notifier sends reminder notifications to customers.
type Notifier interface {
	SendReminder(ctx context.Context, b models.Booking) (notify.Result, error)
}
