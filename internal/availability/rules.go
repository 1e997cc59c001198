package availability

import (
	"fmt"
	"time"
)

// Rules describes business hours and the slot grid.
type Rules struct {
	// DefaultClosingHour applies to unlisted weekdays and to absent dates.
	DefaultClosingHour int
	// ClosingHours overrides the closing hour per weekday.
	ClosingHours map[time.Weekday]int
	// BaseSlots are offered on every open day.
	BaseSlots []string
	// EveningDays get EveningSlot appended to the default slots.
	EveningDays []time.Weekday
	EveningSlot string
	// EveningHour starts the evening window on evening days.
	EveningHour int
	// EveningSlotHours is the only service duration the engine offers EveningSlot to.
	EveningSlotHours int
	// LongServiceHours services never start inside the evening window.
	LongServiceHours int
	// AdminDurations are the service durations whose slots make up the admin grid.
	AdminDurations []int
}

// DefaultRules returns the salon's standing schedule.
func DefaultRules() Rules {
	return Rules{
		DefaultClosingHour: 19,
		ClosingHours: map[time.Weekday]int{
			time.Tuesday:  22,
			time.Thursday: 22,
		},
		BaseSlots:        []string{"09:00", "12:00", "15:00"},
		EveningDays:      []time.Weekday{time.Tuesday, time.Thursday},
		EveningSlot:      "18:00",
		EveningHour:      18,
		EveningSlotHours: 3,
		LongServiceHours: 5,
		AdminDurations:   []int{3, 5},
	}
}

// Validate checks the rules for inconsistent values.
func (r Rules) Validate() error {
	if r.DefaultClosingHour < 1 || r.DefaultClosingHour > 24 {
		return fmt.Errorf("default closing hour %d out of range", r.DefaultClosingHour)
	}
	for day, h := range r.ClosingHours {
		if h < 1 || h > 24 {
			return fmt.Errorf("closing hour %d for %s out of range", h, day)
		}
	}
	if len(r.BaseSlots) == 0 {
		return fmt.Errorf("no base slots")
	}
	for _, s := range append(append([]string(nil), r.BaseSlots...), r.EveningSlot) {
		if s == "" {
			continue
		}
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("invalid slot %q, expected HH:MM", s)
		}
	}
	if len(r.EveningDays) > 0 && r.EveningSlot == "" {
		return fmt.Errorf("evening days set without evening slot")
	}
	return nil
}

func (r Rules) isEveningDay(day time.Weekday) bool {
	for _, d := range r.EveningDays {
		if d == day {
			return true
		}
	}
	return false
}
