package reminders

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"heyu/internal/models"
	"heyu/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	bookings []models.Booking
	from, to string
}

func (m *memoryStore) UpcomingBookings(_ context.Context, fromDate, toDate string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.from, m.to = fromDate, toDate
	var out []models.Booking
	for _, b := range m.bookings {
		if !b.ReminderSent && b.SelectedDate >= fromDate && b.SelectedDate <= toDate {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryStore) MarkReminderSent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].BookingID == id {
			m.bookings[i].ReminderSent = true
			return nil
		}
	}
	return models.ErrNotFound
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingNotifier) SendReminder(_ context.Context, b models.Booking) (notify.Result, error) {
	if r.err != nil {
		return notify.Result{}, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, b.BookingID)
	return notify.Result{Success: true}, nil
}

func (r *recordingNotifier) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.sent...)
	sort.Strings(out)
	return out
}

func newTestService(store BookingStore, n Notifier, now time.Time) *Service {
	l := zerolog.New(io.Discard)
	s := NewService(&Config{Location: time.UTC}, store, n, &l)
	s.now = func() time.Time { return now }
	return s
}

func booking(id, date, slot string) models.Booking {
	return models.Booking{BookingID: id, SelectedDate: date, SelectedTime: slot, Status: models.StatusConfirmed, Email: id + "@example.com"}
}

func TestCheckNow_SendsDueReminders(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	store := &memoryStore{bookings: []models.Booking{
		booking("due-tomorrow-morning", "2025-03-04", "09:00"),
		booking("too-far", "2025-03-04", "15:00"),
		booking("already-started", "2025-03-03", "09:00"),
		booking("later-today", "2025-03-03", "15:00"),
	}}
	notifier := &recordingNotifier{}

	sent := newTestService(store, notifier, now).CheckNow()

	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"due-tomorrow-morning", "later-today"}, notifier.ids())
	assert.Equal(t, "2025-03-03", store.from)
	assert.Equal(t, "2025-03-04", store.to)
}

func TestCheckNow_MarksSentAndDoesNotRepeat(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	store := &memoryStore{bookings: []models.Booking{booking("BK1", "2025-03-04", "09:00")}}
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier, now)

	require.Equal(t, 1, svc.CheckNow())
	assert.True(t, store.bookings[0].ReminderSent)

	assert.Equal(t, 0, svc.CheckNow())
	assert.Len(t, notifier.ids(), 1)
}

func TestCheckNow_FailedSendIsRetriedNextTick(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	store := &memoryStore{bookings: []models.Booking{booking("BK1", "2025-03-04", "09:00")}}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := newTestService(store, notifier, now)

	assert.Equal(t, 0, svc.CheckNow())
	assert.False(t, store.bookings[0].ReminderSent)

	notifier.err = nil
	assert.Equal(t, 1, svc.CheckNow())
}

func TestDue(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	svc := newTestService(&memoryStore{}, &recordingNotifier{}, now)

	cancelled := booking("c", "2025-03-04", "09:00")
	cancelled.Status = "cancelled"
	reminded := booking("r", "2025-03-04", "09:00")
	reminded.ReminderSent = true

	tests := []struct {
		name string
		b    models.Booking
		want bool
	}{
		{"exactly at lead", booking("a", "2025-03-04", "10:00"), true},
		{"just outside lead", booking("b", "2025-03-04", "11:00"), false},
		{"cancelled", cancelled, false},
		{"already reminded", reminded, false},
		{"bad time", booking("x", "2025-03-04", "morning"), false},
		{"starting now", booking("n", "2025-03-03", "10:00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.due(tt.b, now))
		})
	}
}

func TestStartStop(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(store, &recordingNotifier{}, time.Now())
	svc.Start()
	svc.Start()
	svc.Stop()
	svc.Stop()
}
