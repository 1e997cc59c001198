package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"heyu/internal/models"
)

// StartDailyAgenda sends tomorrow's bookings to the admins every day at hour.
func (n *AdminNotifier) StartDailyAgenda(ctx context.Context, source BookingSource, hour int) {
	if !n.Enabled() || source == nil {
		return
	}

	go func() {
		// First wait until the next occurrence of hour, then tick every 24h.
		timer := time.NewTimer(timeUntilNextHour(time.Now(), hour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if err := n.SendAgenda(ctx, source, time.Now().AddDate(0, 0, 1)); err != nil && n.logger != nil {
					n.logger.Error().Err(err).Msg("Failed to send daily agenda")
				}
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

// SendAgenda posts the confirmed bookings of day.
func (n *AdminNotifier) SendAgenda(ctx context.Context, source BookingSource, day time.Time) error {
	date := day.Format(models.DateLayout)
	bookings, err := source.BookingsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("agenda bookings: %w", err)
	}

	sort.Slice(bookings, func(i, j int) bool { return bookings[i].SelectedTime < bookings[j].SelectedTime })

	entries := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if !shouldRemindStatus(b.Status) {
			continue
		}
		entries = append(entries, formatAgendaEntry(b))
	}

	title := fmt.Sprintf("📋 Bookings for %s", date)
	if len(entries) == 0 {
		title += ": none"
	}
	for _, page := range paginate(title, entries) {
		if err := n.SendText(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

func shouldRemindStatus(status string) bool {
	return status == "" || status == models.StatusConfirmed
}

func formatAgendaEntry(b models.Booking) string {
	return fmt.Sprintf("%s (%dh) %s, %s, %s", b.SelectedTime, b.Hours(), b.Service.NameEn, b.Name, b.Phone)
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
