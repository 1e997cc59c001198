package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"heyu/internal/events"
	"heyu/internal/metrics"
	"heyu/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

const minPhoneDigits = 8

// BookingRequest is the customer submission.
type BookingRequest struct {
	Service      *models.Service `json:"service"`
	SelectedDate string          `json:"selectedDate"`
	SelectedTime string          `json:"selectedTime"`
	Name         string          `json:"name"`
	WechatName   string          `json:"wechatName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Wechat       string          `json:"wechat"`
}

// Validate returns a *ValidationError listing every problem, or nil.
func (r *BookingRequest) Validate() error {
	var errs []string

	if r.Service == nil || r.Service.ID == 0 {
		errs = append(errs, "service is required")
	}
	if strings.TrimSpace(r.SelectedDate) == "" {
		errs = append(errs, "date is required")
	}
	if strings.TrimSpace(r.SelectedTime) == "" {
		errs = append(errs, "time is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(r.WechatName) == "" {
		errs = append(errs, "wechat name is required")
	}

	email := strings.TrimSpace(r.Email)
	switch {
	case email == "":
		errs = append(errs, "email is required")
	case !emailPattern.MatchString(r.Email):
		errs = append(errs, "invalid email address")
	}

	phone := strings.TrimSpace(r.Phone)
	switch {
	case phone == "":
		errs = append(errs, "phone is required")
	case !phonePattern.MatchString(r.Phone) || countDigits(r.Phone) < minPhoneDigits:
		errs = append(errs, "invalid phone number")
	}

	if len(errs) > 0 {
		return invalid(errs...)
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// NewBookingID returns BK{unix millis}{9 random characters}.
func NewBookingID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("BK%d%s", now.UnixMilli(), random[:9])
}

// BookingService validates, serializes and persists customer bookings.
type BookingService struct {
	store   BookingStore
	catalog ServiceStore
	avail   *AvailabilityService
	bus     EventPublisher
	locks   *dateLocks
	enforce bool
	now     func() time.Time
	logger  *zerolog.Logger
}

// NewBookingService wires the booking flow. With enforce set, a booking is only
// accepted when its start time is still available for its service.
func NewBookingService(
	store BookingStore,
	catalog ServiceStore,
	avail *AvailabilityService,
	bus EventPublisher,
	enforce bool,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		store:   store,
		catalog: catalog,
		avail:   avail,
		bus:     bus,
		locks:   newDateLocks(),
		enforce: enforce,
		now:     time.Now,
		logger:  logger,
	}
}

// Create validates req and stores a confirmed booking.
func (s *BookingService) Create(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		metrics.IncBookingCreated("invalid")
		return nil, err
	}

	svc := *req.Service
	if svc.Duration == "" && svc.DurationHours == 0 && s.catalog != nil {
		if known, err := s.catalog.GetService(ctx, svc.ID); err == nil {
			svc = *known
		}
	}
	svc.Normalize()

	now := s.now()
	booking := &models.Booking{
		BookingID:     NewBookingID(now),
		Service:       svc,
		SelectedDate:  models.DateOnly(req.SelectedDate),
		SelectedTime:  strings.TrimSpace(req.SelectedTime),
		Name:          strings.TrimSpace(req.Name),
		WechatName:    strings.TrimSpace(req.WechatName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Wechat:        strings.TrimSpace(req.Wechat),
		Status:        models.StatusConfirmed,
		CreatedAt:     now.UTC(),
		DurationHours: svc.Hours(),
	}

	unlock := s.locks.Lock(booking.SelectedDate)
	err := s.insert(ctx, booking)
	unlock()

	if err != nil {
		switch {
		case errors.Is(err, ErrSlotUnavailable), errors.Is(err, models.ErrSlotTaken):
			metrics.IncBookingCreated("conflict")
		default:
			metrics.IncBookingCreated("error")
		}
		return nil, err
	}

	metrics.IncBookingCreated("created")
	s.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("date", booking.SelectedDate).
		Str("time", booking.SelectedTime).
		Int("hours", booking.DurationHours).
		Msg("Booking created")

	if s.bus != nil {
		s.bus.Publish(events.NewBookingEvent(*booking))
	}
	return booking, nil
}

// insert runs under the date lock.
func (s *BookingService) insert(ctx context.Context, b *models.Booking) error {
	if s.enforce && s.avail != nil {
		slots, err := s.avail.compute(ctx, b.SelectedDate, &b.Service)
		if err != nil {
			return err
		}
		if !slices.Contains(slots, b.SelectedTime) {
			return ErrSlotUnavailable
		}
	}
	return s.store.CreateBooking(ctx, b)
}

// List returns bookings filtered by status and date, newest first.
func (s *BookingService) List(ctx context.Context, status, date string) ([]models.Booking, error) {
	all, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	date = models.DateOnly(date)

	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if status != "" && b.Status != status {
			continue
		}
		if date != "" && b.SelectedDate != date {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// ClearAll deletes every booking.
func (s *BookingService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllBookings(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn().Int64("deleted", n).Msg("All bookings cleared")
	if s.bus != nil {
		s.bus.Publish(events.NewDateEvent(events.BookingsCleared, ""))
	}
	return n, nil
}
