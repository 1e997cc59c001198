package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"heyu/internal/metrics"
	"heyu/internal/models"
	"heyu/internal/notify"

	"github.com/rs/zerolog"
)

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to check for upcoming bookings.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// Lead is how long before the appointment the reminder goes out.
	// Default: 24 hours.
	Lead time.Duration

	// MaxConcurrentNotifications limits parallel sends.
	// Default: 5.
	MaxConcurrentNotifications int

	// Location interprets booking dates and times. Default: time.Local.
	Location *time.Location
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:              15 * time.Minute,
		Lead:                       24 * time.Hour,
		MaxConcurrentNotifications: 5,
		Location:                   time.Local,
	}
}

// Service emails customers ahead of their appointments.
type Service struct {
	config   *Config
	bookings BookingStore
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(config *Config, bookings BookingStore, notifier Notifier, logger *zerolog.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 15 * time.Minute
	}
	if config.Lead <= 0 {
		config.Lead = 24 * time.Hour
	}
	if config.MaxConcurrentNotifications <= 0 {
		config.MaxConcurrentNotifications = 5
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{
		config:   config,
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the reminder check loop.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("lead", s.config.Lead).
		Msg("Reminder service started")
}

// Stop gracefully stops the reminder service.
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

	s.logger.Info().Msg("Reminder service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	// Run immediately on start
	s.CheckNow()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.CheckNow()
		}
	}
}

// CheckNow sends every reminder that is due and returns how many went out.
func (s *Service) CheckNow() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := s.now().In(s.config.Location)
	from := now.Format(models.DateLayout)
	to := now.Add(s.config.Lead).Format(models.DateLayout)

	bookings, err := s.bookings.UpcomingBookings(ctx, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get upcoming bookings")
		return 0
	}
	if len(bookings) == 0 {
		return 0
	}
	s.logger.Debug().Int("count", len(bookings)).Msg("Found bookings to check for reminders")

	// Use semaphore to limit concurrent notifications
	sem := make(chan struct{}, s.config.MaxConcurrentNotifications)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)

	for _, booking := range bookings {
		if !s.due(booking, now) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{} // acquire

		go func(b models.Booking) {
			defer wg.Done()
			defer func() { <-sem }() // release

			if err := s.sendReminder(ctx, b); err != nil {
				s.logger.Error().Err(err).Str("booking_id", b.BookingID).Msg("Failed to send reminder")
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(booking)
	}

	wg.Wait()
	return sent
}

// due reports whether b starts within the lead window and has not started yet.
func (s *Service) due(b models.Booking, now time.Time) bool {
	if b.ReminderSent || (b.Status != "" && b.Status != models.StatusConfirmed) {
		return false
	}
	start, ok := b.StartsAt(s.config.Location)
	if !ok || !start.After(now) {
		return false
	}
	return !now.Before(start.Add(-s.config.Lead))
}

func (s *Service) sendReminder(ctx context.Context, b models.Booking) error {
	if _, err := s.notifier.SendReminder(ctx, b); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			metrics.IncNotification("reminder", "skipped")
		} else {
			metrics.IncNotification("reminder", "failed")
		}
		return err
	}
	metrics.IncNotification("reminder", "sent")

	if err := s.bookings.MarkReminderSent(ctx, b.BookingID); err != nil {
		// Not returned: the email was already sent.
		s.logger.Error().Err(err).Str("booking_id", b.BookingID).Msg("Failed to mark reminder as sent")
	}

	s.logger.Info().
		Str("booking_id", b.BookingID).
		Str("date", b.SelectedDate).
		Str("time", b.SelectedTime).
		Msg("Reminder sent")
	return nil
}
