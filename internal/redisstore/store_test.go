package redisstore

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"heyu/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger := zerolog.New(io.Discard)
	return New(client, &logger), mr
}

func TestBookings_LegacyDocument(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(KeyBookings, `{
		"bookings": [
			{"bookingId": "BK1", "selectedDate": "2025-03-04T00:00:00.000Z", "time": "12:00",
			 "service": {"id": 2, "duration": "5小时"}, "name": "Lin", "createdAt": "2025-03-01T10:00:00.000Z"},
			{"bookingId": "BK2", "selectedDate": "2025-03-04", "startTime": "09:00", "duration": "3小时",
			 "name": "Wu", "status": "confirmed", "createdAt": "2025-03-02T10:00:00.000Z"}
		],
		"lastUpdated": "2025-03-02T10:00:00.000Z"
	}`))

	all, err := s.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BK2", all[0].BookingID, "newest first")

	onDate, err := s.BookingsByDate(ctx, "2025-03-04")
	require.NoError(t, err)
	require.Len(t, onDate, 2)
	assert.Equal(t, "09:00", onDate[0].SelectedTime)
	assert.Equal(t, 3, onDate[0].DurationHours)
	assert.Equal(t, "12:00", onDate[1].SelectedTime)
	assert.Equal(t, 5, onDate[1].DurationHours)
	assert.Equal(t, models.StatusConfirmed, onDate[1].Status)
}

func TestBookings_BareArray(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(KeyBookings, `[{"bookingId": "BK1", "selectedDate": "2025-03-04", "selectedTime": "09:00"}]`))

	b, err := s.GetBooking(context.Background(), "BK1")
	require.NoError(t, err)
	assert.Equal(t, "09:00", b.SelectedTime)
}

func TestBookings_CreateRejectsSameSlot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := &models.Booking{BookingID: "BK1", SelectedDate: "2025-03-04", SelectedTime: "09:00", CreatedAt: time.Now()}
	require.NoError(t, s.CreateBooking(ctx, first))

	dup := &models.Booking{BookingID: "BK2", SelectedDate: "2025-03-04", SelectedTime: "09:00", CreatedAt: time.Now()}
	assert.ErrorIs(t, s.CreateBooking(ctx, dup), models.ErrSlotTaken)

	_, err := s.GetBooking(ctx, "BK2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBookings_ConcurrentCreateSingleWinner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &models.Booking{
				BookingID:    "BK" + string(rune('A'+i)),
				SelectedDate: "2025-03-04",
				SelectedTime: "12:00",
				CreatedAt:    time.Now(),
			}
			if err := s.CreateBooking(ctx, b); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	all, err := s.BookingsByDate(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBookings_RemindersAndClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, date := range []string{"2025-03-04", "2025-03-05", "2025-03-09"} {
		require.NoError(t, s.CreateBooking(ctx, &models.Booking{
			BookingID: "BK" + string(rune('1'+i)), SelectedDate: date, SelectedTime: "09:00", CreatedAt: time.Now(),
		}))
	}

	upcoming, err := s.UpcomingBookings(ctx, "2025-03-04", "2025-03-05")
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	require.NoError(t, s.MarkReminderSent(ctx, "BK1"))
	upcoming, err = s.UpcomingBookings(ctx, "2025-03-04", "2025-03-05")
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "BK2", upcoming[0].BookingID)

	n, err := s.DeleteAllBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := s.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestServices(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := &models.Service{NameEn: "Gel", Duration: "3小时"}
	require.NoError(t, s.SaveService(ctx, a))
	assert.Equal(t, int64(1), a.ID)

	b := &models.Service{NameEn: "Extension", Duration: "5小时"}
	require.NoError(t, s.SaveService(ctx, b))
	assert.Equal(t, int64(2), b.ID)

	b.Price = "¥480"
	require.NoError(t, s.SaveService(ctx, b))

	got, err := s.GetService(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "¥480", got.Price)
	assert.Equal(t, 5, got.DurationHours)

	all, err := s.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBlockedDates(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(KeyBlockedDates, `{"blockedDates": [{"date": "2025-03-05", "times": []}]}`))

	got, err := s.GetBlockedDate(ctx, "2025-03-05")
	require.NoError(t, err)
	assert.True(t, got.IsFullDay())

	require.NoError(t, s.SaveBlockedDate(ctx, models.PartialBlock("2025-03-04", "18:00")))
	require.NoError(t, s.SaveBlockedDate(ctx, models.PartialBlock("2025-03-04", "09:00", "18:00")))

	all, err := s.ListBlockedDates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-03-04", all[0].Date)
	assert.Equal(t, []string{"09:00", "18:00"}, all[0].Times)

	require.NoError(t, s.DeleteBlockedDate(ctx, "2025-03-04"))
	assert.ErrorIs(t, s.DeleteBlockedDate(ctx, "2025-03-04"), models.ErrNotFound)
}

func TestGetTableData(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveBlockedDate(ctx, models.PartialBlock("2025-03-04", "09:00", "12:00")))

	rows, cols, err := s.GetTableData(ctx, "blocked_dates")
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "full_day", "times"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, "09:00,12:00", rows[0]["times"])

	_, _, err = s.GetTableData(ctx, "users")
	assert.Error(t, err)
}
