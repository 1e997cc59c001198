package service

import (
	"context"

	"heyu/internal/events"
	"heyu/internal/models"
)

// ServiceStore persists the catalog.
type ServiceStore interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	SaveService(ctx context.Context, s *models.Service) error
}

// BookingStore persists bookings. CreateBooking returns models.ErrSlotTaken when
// a booking already starts at the same date and time.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	ListBookings(ctx context.Context) ([]models.Booking, error)
	BookingsByDate(ctx context.Context, date string) ([]models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	DeleteAllBookings(ctx context.Context) (int64, error)
}

// BlockedDateStore persists admin blocks, one record per date.
type BlockedDateStore interface {
	ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error)
	GetBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error)
	SaveBlockedDate(ctx context.Context, b models.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, date string) error
}

// SlotCache memoizes availability per date and duration.
type SlotCache interface {
	Get(ctx context.Context, date string, durationHours int) ([]string, bool)
	Set(ctx context.Context, date string, durationHours int, slots []string)
	InvalidateDate(ctx context.Context, date string) error
	InvalidateAll(ctx context.Context) error
}

// EventPublisher is satisfied by *events.EventBus.
type EventPublisher interface {
	Publish(event events.Event)
}
