package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"heyu/internal/events"
	"heyu/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingEmail struct {
	calls atomic.Int32
	errs  []error
}

func (c *countingEmail) SendConfirmation(context.Context, models.Booking) (Result, error) {
	n := int(c.calls.Add(1)) - 1
	if n < len(c.errs) && c.errs[n] != nil {
		return Result{}, c.errs[n]
	}
	return Result{Success: true}, nil
}

type funcAdmin func(context.Context, models.Booking) error

func (f funcAdmin) NotifyBooking(ctx context.Context, b models.Booking) error { return f(ctx, b) }

type funcMirror func(context.Context, models.Booking) error

func (f funcMirror) AppendBooking(ctx context.Context, b models.Booking) error { return f(ctx, b) }

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, RetryDelays: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}}
}

func TestDispatcher_RetriesTransientErrors(t *testing.T) {
	email := &countingEmail{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	d := NewDispatcher(DispatcherConfig{Email: email, Rate: rate.Inf, Retry: fastRetry()}, testLogger())

	d.BookingCreated(context.Background(), confirmedBooking())
	assert.Equal(t, int32(3), email.calls.Load())
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	fail := errors.New("down")
	email := &countingEmail{errs: []error{fail, fail, fail, fail, fail}}
	d := NewDispatcher(DispatcherConfig{Rate: rate.Inf, Retry: fastRetry()}, testLogger())

	err := d.Do(context.Background(), ChannelEmail, "BK1", func(ctx context.Context) error {
		_, err := email.SendConfirmation(ctx, models.Booking{})
		return err
	})
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, int32(4), email.calls.Load())
}

func TestDispatcher_SkipsUnconfiguredEmail(t *testing.T) {
	email := &countingEmail{errs: []error{ErrNotConfigured}}
	d := NewDispatcher(DispatcherConfig{Email: email, Rate: rate.Inf, Retry: fastRetry()}, testLogger())

	d.BookingCreated(context.Background(), confirmedBooking())
	assert.Equal(t, int32(1), email.calls.Load())
}

func TestDispatcher_TelegramPermanentError(t *testing.T) {
	var calls atomic.Int32
	admin := funcAdmin(func(context.Context, models.Booking) error {
		calls.Add(1)
		return &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
	})
	d := NewDispatcher(DispatcherConfig{Admin: admin, Rate: rate.Inf, Retry: fastRetry()}, testLogger())

	d.BookingCreated(context.Background(), confirmedBooking())
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatcher_TelegramRateLimitedIsRetried(t *testing.T) {
	var calls atomic.Int32
	admin := funcAdmin(func(context.Context, models.Booking) error {
		if calls.Add(1) == 1 {
			return &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
		}
		return nil
	})
	d := NewDispatcher(DispatcherConfig{Admin: admin, Rate: rate.Inf, Retry: fastRetry()}, testLogger())

	d.BookingCreated(context.Background(), confirmedBooking())
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_CancelledContext(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Rate: rate.Inf, Retry: RetryConfig{MaxRetries: 3, RetryDelays: []time.Duration{time.Hour}}}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- d.Do(ctx, ChannelSheets, "BK1", func(context.Context) error { return errors.New("quota") })
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancellation")
	}
}

func TestDispatcher_RegisterFansOut(t *testing.T) {
	email := &countingEmail{}
	var admins, mirrors atomic.Int32
	d := NewDispatcher(DispatcherConfig{
		Email:  email,
		Admin:  funcAdmin(func(context.Context, models.Booking) error { admins.Add(1); return nil }),
		Mirror: funcMirror(func(context.Context, models.Booking) error { mirrors.Add(1); return nil }),
		Rate:   rate.Inf,
		Retry:  fastRetry(),
	}, testLogger())

	bus := events.NewEventBus(testLogger())
	d.Register(context.Background(), bus)

	bus.Publish(events.NewBookingEvent(confirmedBooking()))
	bus.Publish(events.NewDateEvent(events.BlockedDatesChanged, "2025-03-04"))
	d.Wait()

	require.Equal(t, int32(1), email.calls.Load())
	assert.Equal(t, int32(1), admins.Load())
	assert.Equal(t, int32(1), mirrors.Load())
}
