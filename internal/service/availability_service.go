package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"heyu/internal/availability"
	"heyu/internal/events"
	"heyu/internal/metrics"
	"heyu/internal/models"

	"github.com/rs/zerolog"
)

// AvailabilityService loads store snapshots and runs the engine over them.
type AvailabilityService struct {
	engine   atomic.Pointer[availability.Engine]
	services ServiceStore
	bookings BookingStore
	blocked  BlockedDateStore
	cache    SlotCache
	logger   *zerolog.Logger
}

// NewAvailabilityService wires the stores. cache may be nil.
func NewAvailabilityService(
	engine *availability.Engine,
	services ServiceStore,
	bookings BookingStore,
	blocked BlockedDateStore,
	cache SlotCache,
	logger *zerolog.Logger,
) *AvailabilityService {
	s := &AvailabilityService{
		services: services,
		bookings: bookings,
		blocked:  blocked,
		cache:    cache,
		logger:   logger,
	}
	if engine == nil {
		engine = availability.NewEngine(availability.DefaultRules())
	}
	s.engine.Store(engine)
	return s
}

// Engine returns the engine currently in use.
func (s *AvailabilityService) Engine() *availability.Engine {
	return s.engine.Load()
}

// SetRules swaps in new business hours and drops cached results.
func (s *AvailabilityService) SetRules(ctx context.Context, rules availability.Rules) {
	s.engine.Store(availability.NewEngine(rules))
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to invalidate availability cache")
		}
	}
	s.logger.Info().Int("default_closing_hour", rules.DefaultClosingHour).Msg("Business hours updated")
}

// DefaultSlots returns the unfiltered slot grid for date.
func (s *AvailabilityService) DefaultSlots(date string) []string {
	return s.Engine().DefaultSlots(models.DateOnly(date))
}

// AvailableSlots returns the start times open for svc on date, served from cache when possible.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, date string, svc *models.Service) ([]string, error) {
	start := time.Now()
	date = models.DateOnly(date)
	hours := svc.Hours()

	if s.cache != nil {
		if slots, ok := s.cache.Get(ctx, date, hours); ok {
			metrics.ObserveAvailability(start, true)
			return slots, nil
		}
	}

	slots, err := s.compute(ctx, date, svc)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, date, hours, slots)
	}
	metrics.ObserveAvailability(start, false)
	return slots, nil
}

// AvailableSlotsForService resolves serviceID from the catalog first.
func (s *AvailabilityService) AvailableSlotsForService(ctx context.Context, date string, serviceID int64) ([]string, *models.Service, error) {
	svc, err := s.services.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("service %d: %w", serviceID, err)
	}
	slots, err := s.AvailableSlots(ctx, date, svc)
	if err != nil {
		return nil, nil, err
	}
	return slots, svc, nil
}

// compute always reads a fresh snapshot and bypasses the cache.
func (s *AvailabilityService) compute(ctx context.Context, date string, svc *models.Service) ([]string, error) {
	bookings, err := s.bookings.BookingsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	blocked, err := s.blocked.ListBlockedDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blocked dates: %w", err)
	}
	return s.Engine().AvailableSlots(date, svc, bookings, blocked), nil
}

// Range computes availability for each date in [start, end].
func (s *AvailabilityService) Range(ctx context.Context, start, end time.Time, svc *models.Service) ([]availability.DayAvailability, error) {
	bookings, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	blocked, err := s.blocked.ListBlockedDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blocked dates: %w", err)
	}
	return s.Engine().AvailabilityRange(start, end, svc, bookings, blocked), nil
}

// Invalidate drops cached results for date, or for every date when date is empty.
func (s *AvailabilityService) Invalidate(ctx context.Context, date string) error {
	if s.cache == nil {
		return nil
	}
	if date == "" {
		return s.cache.InvalidateAll(ctx)
	}
	return s.cache.InvalidateDate(ctx, date)
}

// RegisterHandlers keeps the cache coherent with booking and block changes.
func (s *AvailabilityService) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		b, err := e.Booking()
		if err != nil {
			return err
		}
		return s.Invalidate(context.Background(), b.SelectedDate)
	})
	bus.Subscribe(events.BlockedDatesChanged, func(e events.Event) error {
		return s.Invalidate(context.Background(), e.Date())
	})
	bus.Subscribe(events.BookingsCleared, func(events.Event) error {
		return s.Invalidate(context.Background(), "")
	})
}
