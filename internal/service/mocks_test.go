package service

import (
	"context"
	"io"

	"heyu/internal/events"
	"heyu/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockBookingStore struct {
	mock.Mock
}

func (m *mockBookingStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBookingStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingStore) BookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingStore) DeleteAllBookings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockBlockedStore struct {
	mock.Mock
}

func (m *mockBlockedStore) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.BlockedDate), args.Error(1)
}

func (m *mockBlockedStore) GetBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlockedDate), args.Error(1)
}

func (m *mockBlockedStore) SaveBlockedDate(ctx context.Context, b models.BlockedDate) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBlockedStore) DeleteBlockedDate(ctx context.Context, date string) error {
	return m.Called(ctx, date).Error(0)
}

type mockServiceStore struct {
	mock.Mock
}

func (m *mockServiceStore) ListServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *mockServiceStore) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockServiceStore) SaveService(ctx context.Context, s *models.Service) error {
	return m.Called(ctx, s).Error(0)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) Publish(e events.Event) {
	m.Called(e)
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
