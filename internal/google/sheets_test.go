package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"heyu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestFilterActiveBookings(t *testing.T) {
	s := &SheetsService{}

	bookings := []models.Booking{
		{BookingID: "1", Status: models.StatusConfirmed},
		{BookingID: "2", Status: ""},
		{BookingID: "3", Status: "cancelled"},
	}

	active := s.filterActiveBookings(bookings)
	require.Len(t, active, 2)
	for _, b := range active {
		assert.NotEqual(t, "cancelled", b.Status)
	}
}

func TestBookingRowValues(t *testing.T) {
	booking := &models.Booking{
		BookingID:     "BK123",
		Service:       models.Service{NameCn: "美甲", NameEn: "Manicure", Price: "¥200"},
		SelectedDate:  "2024-12-25",
		SelectedTime:  "12:00",
		DurationHours: 5,
		Name:          "Test User",
		WechatName:    "tester",
		Phone:         "13800138000",
		Email:         "t@example.com",
		Status:        models.StatusConfirmed,
		CreatedAt:     time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC),
	}

	expected := []interface{}{
		"BK123", "2024-12-25", "12:00", 5, "美甲", "Manicure", "¥200",
		"Test User", "tester", "13800138000", "t@example.com", "", "confirmed", "2024-12-20 10:00:00",
	}
	assert.Equal(t, expected, bookingRowValues(booking))
	assert.Len(t, headerRow, len(expected))
}

func TestCacheOperations(t *testing.T) {
	s := &SheetsService{rowCache: make(map[string]int)}

	s.setCachedRow("BK100", 5)
	row, ok := s.getCachedRow("BK100")
	assert.True(t, ok)
	assert.Equal(t, 5, row)

	s.deleteCacheRow("BK100")
	_, ok = s.getCachedRow("BK100")
	assert.False(t, ok)

	s.setCachedRow("BK200", 10)
	s.ClearCache()
	_, ok = s.getCachedRow("BK200")
	assert.False(t, ok)
}

func TestPrepareDateHeaders(t *testing.T) {
	s := &SheetsService{}
	startDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	headers, cols := s.prepareDateHeaders(startDate, endDate)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []interface{}{"Time", "01-01 Wed", "01-02 Thu", "01-03 Fri"}, headers)
}

func TestFormatScheduleCell(t *testing.T) {
	s := &SheetsService{}

	t.Run("Free", func(t *testing.T) {
		val, color := s.formatScheduleCell("09:00", nil, false)
		assert.Equal(t, "Free 09:00", val)
		assert.Equal(t, colorFree, color)
	})

	t.Run("Booked", func(t *testing.T) {
		b := &models.Booking{Name: "Lin", DurationHours: 3, Service: models.Service{NameEn: "Gel"}}
		val, color := s.formatScheduleCell("09:00", b, true)
		assert.Equal(t, "Lin (3h) Gel", val)
		assert.Equal(t, colorBooked, color)
	})

	t.Run("Blocked", func(t *testing.T) {
		val, color := s.formatScheduleCell("09:00", nil, true)
		assert.Equal(t, "Blocked", val)
		assert.Equal(t, colorBlocked, color)
	})
}

func TestParseUpdatedRow(t *testing.T) {
	row, ok := parseUpdatedRow("Bookings!A17:N17")
	assert.True(t, ok)
	assert.Equal(t, 17, row)

	_, ok = parseUpdatedRow("Bookings")
	assert.False(t, ok)
}

func TestAppendBooking_CachesRowThenUpdates(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, ":append") {
			assert.Contains(t, string(body), "BK1")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"updates": map[string]any{"updatedRange": "Bookings!A7:N7"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": "Bookings!A7:N7"})
	}))
	defer ts.Close()

	s, err := NewSheetsServiceWithOptions(context.Background(), "sheet-id", "", nil,
		option.WithEndpoint(ts.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	b := models.Booking{BookingID: "BK1", SelectedDate: "2025-03-04", SelectedTime: "09:00"}
	require.NoError(t, s.AppendBooking(context.Background(), b))

	row, ok := s.getCachedRow("BK1")
	require.True(t, ok)
	assert.Equal(t, 7, row)

	require.NoError(t, s.AppendBooking(context.Background(), b))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[0], "POST "))
	assert.True(t, strings.HasPrefix(calls[1], "PUT "))
	assert.Contains(t, calls[1], "A7:N7")
}
