package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"heyu/internal/events"
	"heyu/internal/google"
	"heyu/internal/models"
	"heyu/internal/service"

	"github.com/rs/zerolog"
)

const scheduleDays = 14

type scheduleStore interface {
	service.BookingStore
	service.BlockedDateStore
}

// registerScheduleSync redraws the Schedule sheet whenever bookings or blocks change.
// Concurrent triggers collapse into one pending refresh.
func registerScheduleSync(ctx context.Context, bus *events.EventBus, sheets *google.SheetsService,
	st scheduleStore, avail *service.AvailabilityService, logger *zerolog.Logger) {
	var (
		mu      sync.Mutex
		running bool
		pending bool
	)

	var refresh func()
	refresh = func() {
		if err := writeSchedule(ctx, sheets, st, avail, time.Now()); err != nil {
			logger.Error().Err(err).Msg("Failed to refresh schedule sheet")
		}
		mu.Lock()
		again := pending
		pending = false
		running = again
		mu.Unlock()
		if again {
			refresh()
		}
	}

	trigger := func(events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if running {
			pending = true
			return nil
		}
		running = true
		go refresh()
		return nil
	}

	bus.Subscribe(events.BookingCreated, trigger)
	bus.Subscribe(events.BlockedDatesChanged, trigger)
	bus.Subscribe(events.BookingsCleared, func(e events.Event) error {
		bookings, err := st.ListBookings(ctx)
		if err == nil {
			err = sheets.SyncBookings(ctx, bookings)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to resync bookings sheet")
		}
		return trigger(e)
	})
	_ = trigger(events.Event{})
}

func writeSchedule(ctx context.Context, sheets *google.SheetsService, st scheduleStore,
	avail *service.AvailabilityService, now time.Time) error {
	engine := avail.Engine()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	slotSet := make(map[string]struct{})
	days := make([]google.ScheduleDay, 0, scheduleDays)
	for i := 0; i < scheduleDays; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format(models.DateLayout)

		bookings, err := st.BookingsByDate(ctx, date)
		if err != nil {
			return err
		}
		entry := google.ScheduleDay{Date: day, Bookings: bookings}
		if blocked, err := st.GetBlockedDate(ctx, date); err == nil {
			entry.Blocked = blocked
		}
		days = append(days, entry)

		for _, slot := range engine.AdminSlots(date) {
			slotSet[slot] = struct{}{}
		}
	}

	slots := make([]string, 0, len(slotSet))
	for slot := range slotSet {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return sheets.WriteSchedule(ctx, slots, days)
}
