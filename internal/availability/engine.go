// Package availability computes bookable start times for a date and service.
//
// The engine is a pure function of its inputs: callers load bookings and
// blocked dates beforehand and pass them in as snapshots.
package availability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"heyu/internal/models"
)

// Engine evaluates availability under a fixed set of Rules. It is immutable and safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine builds an engine. Zero-value rules fall back to DefaultRules.
func NewEngine(rules Rules) *Engine {
	if rules.DefaultClosingHour == 0 && len(rules.BaseSlots) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Rules returns a copy of the engine rules.
func (e *Engine) Rules() Rules {
	return e.rules
}

// ParseDuration extracts the hour count from a free-text duration.
func ParseDuration(text string) int {
	return models.ParseDuration(text)
}

// ClosingHour returns the closing hour for date, or the default when the date is absent or malformed.
func (e *Engine) ClosingHour(date string) int {
	day, ok := weekday(date)
	if !ok {
		return e.rules.DefaultClosingHour
	}
	if h, ok := e.rules.ClosingHours[day]; ok {
		return h
	}
	return e.rules.DefaultClosingHour
}

// DefaultSlots returns the baseline candidates for date in insertion order.
func (e *Engine) DefaultSlots(date string) []string {
	slots := append([]string(nil), e.rules.BaseSlots...)
	if e.isEveningDay(date) && e.rules.EveningSlot != "" {
		slots = append(slots, e.rules.EveningSlot)
	}
	return slots
}

// IsValid reports whether a service of durationHours starting at slot ends by closingHour.
// Only the hour component of slot is considered.
func IsValid(slot string, durationHours, closingHour int) bool {
	h, ok := slotHour(slot)
	if !ok {
		return false
	}
	return h+durationHours <= closingHour
}

// IsEvening reports whether slot falls in the evening window of an evening day.
func (e *Engine) IsEvening(slot, date string) bool {
	if !e.isEveningDay(date) {
		return false
	}
	h, ok := slotHour(slot)
	return ok && h >= e.rules.EveningHour
}

// IsBooked reports whether [slot, slot+durationHours) overlaps any booking.
// Bookings must already be filtered to the date in question; bookings without a usable time are skipped.
func IsBooked(slot string, bookings []models.Booking, durationHours int) bool {
	start, ok := slotHour(slot)
	if !ok {
		return false
	}
	end := start + durationHours

	for i := range bookings {
		bStart, ok := slotHour(bookings[i].SelectedTime)
		if !ok {
			continue
		}
		bEnd := bStart + bookings[i].Hours()
		if start < bEnd && end > bStart {
			return true
		}
	}
	return false
}

// IsBlocked reports whether slot on date is blocked by an admin record.
func IsBlocked(slot, date string, blocked []models.BlockedDate) bool {
	rec, ok := findBlock(models.DateOnly(date), blocked)
	if !ok {
		return false
	}
	return rec.Blocks(slot)
}

// FullDayBlocked reports whether the whole date is blocked.
func FullDayBlocked(date string, blocked []models.BlockedDate) bool {
	rec, ok := findBlock(models.DateOnly(date), blocked)
	return ok && rec.IsFullDay()
}

// BookingsOn returns the bookings whose date matches date, ignoring any time component.
func BookingsOn(date string, bookings []models.Booking) []models.Booking {
	day := models.DateOnly(date)
	var out []models.Booking
	for _, b := range bookings {
		if models.DateOnly(b.SelectedDate) == day {
			out = append(out, b)
		}
	}
	return out
}

// AvailableSlots returns the sorted, distinct start times a customer may book for svc on date.
func (e *Engine) AvailableSlots(date string, svc *models.Service, bookings []models.Booking, blocked []models.BlockedDate) []string {
	if svc == nil {
		return []string{}
	}

	day := models.DateOnly(date)
	if FullDayBlocked(day, blocked) {
		return []string{}
	}

	dayBookings := BookingsOn(day, bookings)
	duration := svc.Hours()
	closing := e.ClosingHour(day)
	base := e.rules.BaseSlots
	evening := e.isEveningDay(day) && duration == e.rules.EveningSlotHours && e.rules.EveningSlot != ""

	candidates := make(map[string]struct{})

	open := func(slot string) bool {
		return IsValid(slot, duration, closing) && !IsBlocked(slot, day, blocked)
	}
	free := func(slot string) bool {
		return open(slot) && !IsBooked(slot, dayBookings, duration)
	}

	if len(dayBookings) == 0 {
		for _, slot := range base {
			if open(slot) {
				candidates[slot] = struct{}{}
			}
		}
		if evening && open(e.rules.EveningSlot) {
			candidates[e.rules.EveningSlot] = struct{}{}
		}
		return sortedKeys(candidates)
	}

	for _, slot := range base {
		if free(slot) {
			candidates[slot] = struct{}{}
		}
	}
	if evening && free(e.rules.EveningSlot) {
		candidates[e.rules.EveningSlot] = struct{}{}
	}

	for i := range dayBookings {
		bStart, ok := slotHour(dayBookings[i].SelectedTime)
		if !ok {
			continue
		}
		bEnd := bStart + dayBookings[i].Hours()

		// Slots that finish before this booking starts.
		for _, slot := range base {
			h, _ := slotHour(slot)
			if h+duration <= bStart && free(slot) {
				candidates[slot] = struct{}{}
			}
		}

		next := fmt.Sprintf("%02d:00", bEnd)
		if free(next) && !e.eveningLongService(next, day, duration) {
			candidates[next] = struct{}{}
		}

		for _, slot := range base {
			h, _ := slotHour(slot)
			if h >= bEnd && free(slot) {
				candidates[slot] = struct{}{}
			}
		}
	}

	// Every admitted candidate is checked once more against the full rule set.
	for slot := range candidates {
		if IsBlocked(slot, day, blocked) ||
			IsBooked(slot, dayBookings, duration) ||
			e.eveningLongService(slot, day, duration) ||
			!IsValid(slot, duration, closing) {
			delete(candidates, slot)
		}
	}

	return sortedKeys(candidates)
}

func (e *Engine) eveningLongService(slot, date string, duration int) bool {
	return duration == e.rules.LongServiceHours && e.IsEvening(slot, date)
}

// AdminSlots lists every slot an admin can block on date: the union of valid default
// slots across the admin durations.
func (e *Engine) AdminSlots(date string) []string {
	closing := e.ClosingHour(date)
	set := make(map[string]struct{})
	for _, d := range e.rules.AdminDurations {
		for _, slot := range e.DefaultSlots(date) {
			if IsValid(slot, d, closing) {
				set[slot] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// DayAvailability is the slot list for one calendar date.
type DayAvailability struct {
	Date      string   `json:"date"`
	TimeSlots []string `json:"timeSlots"`
}

// AvailabilityRange computes AvailableSlots for every date in [start, end].
func (e *Engine) AvailabilityRange(start, end time.Time, svc *models.Service, bookings []models.Booking, blocked []models.BlockedDate) []DayAvailability {
	var out []DayAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		out = append(out, DayAvailability{
			Date:      date,
			TimeSlots: e.AvailableSlots(date, svc, bookings, blocked),
		})
	}
	return out
}

func (e *Engine) isEveningDay(date string) bool {
	day, ok := weekday(date)
	return ok && e.rules.isEveningDay(day)
}

func findBlock(date string, blocked []models.BlockedDate) (models.BlockedDate, bool) {
	if date == "" {
		return models.BlockedDate{}, false
	}
	for _, b := range blocked {
		if b.Date == date {
			return b, true
		}
	}
	return models.BlockedDate{}, false
}

func weekday(date string) (time.Weekday, bool) {
	t, err := time.Parse(models.DateLayout, models.DateOnly(date))
	if err != nil {
		return 0, false
	}
	return t.Weekday(), true
}

func slotHour(slot string) (int, bool) {
	hh, _, _ := strings.Cut(slot, ":")
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, false
	}
	return h, true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
