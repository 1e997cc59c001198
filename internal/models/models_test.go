package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"3小时", 3},
		{"5 小时", 5},
		{"约2小时左右", 2},
		{"", 3},
		{"2 hours", 3},
		{"小时", 3},
		{"10小时", 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseDuration(tt.input), "input: %q", tt.input)
	}
}

func TestService_Normalize(t *testing.T) {
	s := Service{Duration: "5小时"}
	s.Normalize()
	assert.Equal(t, 5, s.DurationHours)

	s = Service{Duration: "5小时", DurationHours: 2}
	s.Normalize()
	assert.Equal(t, 2, s.DurationHours)

	var nilSvc *Service
	assert.Equal(t, DefaultDurationHours, nilSvc.Hours())
}

func TestBooking_UnmarshalLegacyShapes(t *testing.T) {
	t.Run("SelectedTime", func(t *testing.T) {
		var b Booking
		require.NoError(t, json.Unmarshal([]byte(`{
			"bookingId": "BK1",
			"service": {"id": 1, "duration": "5小时"},
			"selectedDate": "2025-03-04T00:00:00.000Z",
			"selectedTime": "09:00",
			"createdAt": "2025-03-01T10:00:00.000Z"
		}`), &b))

		assert.Equal(t, "2025-03-04", b.SelectedDate)
		assert.Equal(t, "09:00", b.SelectedTime)
		assert.Equal(t, 5, b.DurationHours)
		assert.Equal(t, 5, b.Service.DurationHours)
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, 2025, b.CreatedAt.Year())
	})

	t.Run("TimeAndBookingDuration", func(t *testing.T) {
		var b Booking
		require.NoError(t, json.Unmarshal([]byte(`{
			"selectedDate": "2025-03-04",
			"time": "12:00",
			"duration": "4小时"
		}`), &b))

		assert.Equal(t, "12:00", b.SelectedTime)
		assert.Equal(t, 4, b.DurationHours)
	})

	t.Run("StartTimeDefaultDuration", func(t *testing.T) {
		var b Booking
		require.NoError(t, json.Unmarshal([]byte(`{"selectedDate": "2025-03-04", "startTime": "15:00"}`), &b))

		assert.Equal(t, "15:00", b.SelectedTime)
		assert.Equal(t, DefaultDurationHours, b.DurationHours)
	})

	t.Run("MissingTime", func(t *testing.T) {
		var b Booking
		require.NoError(t, json.Unmarshal([]byte(`{"selectedDate": "2025-03-04"}`), &b))
		assert.Empty(t, b.SelectedTime)
	})
}

func TestBooking_StartsAt(t *testing.T) {
	b := Booking{SelectedDate: "2025-03-04", SelectedTime: "15:00"}
	ts, ok := b.StartsAt(nil)
	require.True(t, ok)
	assert.Equal(t, 15, ts.Hour())

	b.SelectedTime = ""
	_, ok = b.StartsAt(nil)
	assert.False(t, ok)
}

func TestBlockedDate(t *testing.T) {
	t.Run("FullDay", func(t *testing.T) {
		b := FullDayBlock("2025-03-04")
		assert.True(t, b.IsFullDay())
		assert.True(t, b.Blocks("00:00"))
		assert.True(t, b.Blocks("18:00"))
	})

	t.Run("Partial", func(t *testing.T) {
		b := PartialBlock("2025-03-04", "15:00", "09:00", "15:00")
		assert.False(t, b.IsFullDay())
		assert.Equal(t, []string{"09:00", "15:00"}, b.Times)
		assert.True(t, b.Blocks("09:00"))
		assert.False(t, b.Blocks("12:00"))
	})

	t.Run("WireShape", func(t *testing.T) {
		data, err := json.Marshal(FullDayBlock("2025-03-04"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"date":"2025-03-04","times":[]}`, string(data))

		data, err = json.Marshal(PartialBlock("2025-03-05", "12:00"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"date":"2025-03-05","times":["12:00"]}`, string(data))

		var decoded []BlockedDate
		require.NoError(t, json.Unmarshal([]byte(`[{"date":"2025-03-04","times":[]},{"date":"2025-03-05"},{"date":"2025-03-06","times":["09:00"]}]`), &decoded))
		require.Len(t, decoded, 3)
		assert.True(t, decoded[0].IsFullDay())
		assert.True(t, decoded[1].IsFullDay())
		assert.Equal(t, PartialBlock("2025-03-06", "09:00"), decoded[2])
	})
}

func TestDateOnly(t *testing.T) {
	assert.Equal(t, "2025-03-04", DateOnly("2025-03-04T16:00:00.000Z"))
	assert.Equal(t, "2025-03-04", DateOnly(" 2025-03-04 "))
	assert.Equal(t, "", DateOnly(""))
}
