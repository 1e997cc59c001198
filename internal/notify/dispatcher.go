package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"heyu/internal/events"
	"heyu/internal/metrics"
	"heyu/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Channel names used in logs and metrics.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelSheets   = "sheets"
)

type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, b models.Booking) (Result, error)
}

type AdminNotifier interface {
	NotifyBooking(ctx context.Context, b models.Booking) error
}

// BookingMirror copies bookings to an external system such as a spreadsheet.
type BookingMirror interface {
	AppendBooking(ctx context.Context, b models.Booking) error
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

type DispatcherConfig struct {
	Email  ConfirmationSender
	Admin  AdminNotifier
	Mirror BookingMirror

	// Rate is the number of sends per second across all channels.
	Rate  rate.Limit
	Burst int
	Retry RetryConfig
}

// Dispatcher fans a new booking out to the configured channels in the background.
type Dispatcher struct {
	email   ConfirmationSender
	admin   AdminNotifier
	mirror  BookingMirror
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *zerolog.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, logger *zerolog.Logger) *Dispatcher {
	if cfg.Rate <= 0 {
		cfg.Rate = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Retry.RetryDelays == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		email:   cfg.Email,
		admin:   cfg.Admin,
		mirror:  cfg.Mirror,
		limiter: rate.NewLimiter(cfg.Rate, cfg.Burst),
		retry:   cfg.Retry,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Register subscribes the dispatcher to booking events. Sends started after ctx
// is cancelled are abandoned.
func (d *Dispatcher) Register(ctx context.Context, bus *events.EventBus) {
	d.ctx = ctx
	bus.Subscribe(events.BookingCreated, func(e events.Event) error {
		b, err := e.Booking()
		if err != nil {
			return fmt.Errorf("decode booking event: %w", err)
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.BookingCreated(d.ctx, b)
		}()
		return nil
	})
}

// Wait blocks until every background send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// BookingCreated runs every configured channel for b, one after another.
func (d *Dispatcher) BookingCreated(ctx context.Context, b models.Booking) {
	if d.email != nil {
		_ = d.Do(ctx, ChannelEmail, b.BookingID, func(ctx context.Context) error {
			_, err := d.email.SendConfirmation(ctx, b)
			return err
		})
	}
	if d.admin != nil {
		_ = d.Do(ctx, ChannelTelegram, b.BookingID, func(ctx context.Context) error {
			return d.admin.NotifyBooking(ctx, b)
		})
	}
	if d.mirror != nil {
		_ = d.Do(ctx, ChannelSheets, b.BookingID, func(ctx context.Context) error {
			return d.mirror.AppendBooking(ctx, b)
		})
	}
}

// Do runs send under the rate limiter, retrying transient failures.
func (d *Dispatcher) Do(ctx context.Context, channel, bookingID string, send func(context.Context) error) error {
	log := d.logger.With().Str("channel", channel).Str("booking_id", bookingID).Logger()

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		err := send(ctx)
		if err == nil {
			metrics.IncNotification(channel, "sent")
			log.Info().Int("attempt", attempt+1).Msg("Notification sent")
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrNotConfigured) {
			metrics.IncNotification(channel, "skipped")
			log.Debug().Msg("Notification channel not configured")
			return err
		}

		delay, retry := d.backoff(err, attempt)
		if !retry || attempt == d.retry.MaxRetries {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying notification")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			metrics.IncNotification(channel, "failed")
			return ctx.Err()
		}
	}

	metrics.IncNotification(channel, "failed")
	log.Error().Err(lastErr).Msg("Notification failed")
	return lastErr
}

// backoff picks the wait before the next attempt and whether one is worth making.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	var delay time.Duration
	if len(d.retry.RetryDelays) > 0 {
		i := attempt
		if i >= len(d.retry.RetryDelays) {
			i = len(d.retry.RetryDelays) - 1
		}
		delay = d.retry.RetryDelays[i]
	}

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		switch tgErr.Code {
		case 429:
			if tgErr.RetryAfter > 0 {
				delay = time.Duration(tgErr.RetryAfter) * time.Second
			}
			return delay, true
		case 400, 403:
			return 0, false
		}
	}
	return delay, true
}
