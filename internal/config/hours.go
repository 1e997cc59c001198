package config

import (
	"fmt"
	"os"
	"time"

	"heyu/internal/availability"

	"gopkg.in/yaml.v3"
)

// EveningConfig describes the late window on extended-hours days.
type EveningConfig struct {
	Days             []int  `yaml:"days"`               // 1=Mon, 7=Sun
	Slot             string `yaml:"slot"`               // "18:00"
	FromHour         int    `yaml:"from_hour"`          // 18
	SlotServiceHours int    `yaml:"slot_service_hours"` // 3
	LongServiceHours int    `yaml:"long_service_hours"` // 5
}

// HoursConfig is the root of hours.yaml.
type HoursConfig struct {
	DefaultClosingHour int           `yaml:"default_closing_hour"`
	ClosingHours       map[int]int   `yaml:"closing_hours"` // day (1-7) -> hour
	BaseSlots          []string      `yaml:"base_slots"`
	Evening            EveningConfig `yaml:"evening"`
	AdminDurations     []int         `yaml:"admin_durations"`
}

// LoadHours loads and validates business hours from YAML.
func LoadHours(path string) (*HoursConfig, error) {
	if path == "" {
		path = "configs/hours.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hours config: %w", err)
	}

	var cfg HoursConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hours config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate hours config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *HoursConfig) Validate() error {
	for d := range c.ClosingHours {
		if d < 1 || d > 7 {
			return fmt.Errorf("closing_hours: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", d)
		}
	}
	for i, d := range c.Evening.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("evening.days[%d]: invalid day %d, must be 1-7 (1=Mon, 7=Sun)", i, d)
		}
	}
	for i, s := range c.BaseSlots {
		if _, err := time.Parse("15:04", s); err != nil {
			return fmt.Errorf("base_slots[%d]: invalid format '%s', expected HH:MM", i, s)
		}
	}
	return c.Rules().Validate()
}

// Rules converts the file into engine rules; unset fields keep the standing defaults.
func (c *HoursConfig) Rules() availability.Rules {
	r := availability.DefaultRules()

	if c.DefaultClosingHour > 0 {
		r.DefaultClosingHour = c.DefaultClosingHour
	}
	if c.ClosingHours != nil {
		r.ClosingHours = make(map[time.Weekday]int, len(c.ClosingHours))
		for d, h := range c.ClosingHours {
			r.ClosingHours[isoWeekday(d)] = h
		}
	}
	if len(c.BaseSlots) > 0 {
		r.BaseSlots = append([]string(nil), c.BaseSlots...)
	}
	if c.Evening.Days != nil {
		r.EveningDays = make([]time.Weekday, 0, len(c.Evening.Days))
		for _, d := range c.Evening.Days {
			r.EveningDays = append(r.EveningDays, isoWeekday(d))
		}
	}
	if c.Evening.Slot != "" {
		r.EveningSlot = c.Evening.Slot
	}
	if c.Evening.FromHour > 0 {
		r.EveningHour = c.Evening.FromHour
	}
	if c.Evening.SlotServiceHours > 0 {
		r.EveningSlotHours = c.Evening.SlotServiceHours
	}
	if c.Evening.LongServiceHours > 0 {
		r.LongServiceHours = c.Evening.LongServiceHours
	}
	if len(c.AdminDurations) > 0 {
		r.AdminDurations = append([]int(nil), c.AdminDurations...)
	}
	return r
}

func isoWeekday(d int) time.Weekday {
	if d == 7 {
		return time.Sunday
	}
	return time.Weekday(d)
}
