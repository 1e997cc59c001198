package models

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Category groups services in the catalog.
type Category string

const (
	CategoryBasicNails Category = "BasicNails"
	CategoryExtension  Category = "Extension"
	CategoryRemoval    Category = "Removal"
)

// StatusConfirmed is the only status a booking ever gets.
const StatusConfirmed = "confirmed"

// DefaultDurationHours is used whenever a duration cannot be resolved.
const DefaultDurationHours = 3

const DateLayout = "2006-01-02"

var durationPattern = regexp.MustCompile(`(\d+)\s*小时`)

// ParseDuration extracts the hour count from a free-text duration such as "3小时".
// Empty or unmatched text yields DefaultDurationHours.
func ParseDuration(text string) int {
	if text == "" {
		return DefaultDurationHours
	}
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultDurationHours
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultDurationHours
	}
	return n
}

// Service is a catalog entry.
type Service struct {
	ID            int64    `json:"id"`
	NameCn        string   `json:"nameCn"`
	NameEn        string   `json:"nameEn"`
	Category      Category `json:"category"`
	Duration      string   `json:"duration"`
	DurationEn    string   `json:"durationEn"`
	DurationHours int      `json:"durationHours"`
	Price         string   `json:"price"`
	Description   string   `json:"description"`
	DescriptionCn string   `json:"descriptionCn"`
	IsAddOn       bool     `json:"isAddOn"`
}

// Normalize fills DurationHours from the display duration when it is missing.
func (s *Service) Normalize() {
	if s.DurationHours <= 0 {
		s.DurationHours = ParseDuration(s.Duration)
	}
}

// Hours returns the service duration in whole hours.
func (s *Service) Hours() int {
	if s == nil {
		return DefaultDurationHours
	}
	if s.DurationHours > 0 {
		return s.DurationHours
	}
	return ParseDuration(s.Duration)
}

// Booking is an exclusive claim on [SelectedTime, SelectedTime+DurationHours) on SelectedDate.
type Booking struct {
	BookingID     string    `json:"bookingId"`
	Service       Service   `json:"service"`
	SelectedDate  string    `json:"selectedDate"`
	SelectedTime  string    `json:"selectedTime"`
	Name          string    `json:"name"`
	WechatName    string    `json:"wechatName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Wechat        string    `json:"wechat"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	DurationHours int       `json:"durationHours,omitempty"`
	ReminderSent  bool      `json:"reminderSent,omitempty"`
}

// legacyBooking mirrors every shape bookings were historically stored in.
type legacyBooking struct {
	BookingID    string          `json:"bookingId"`
	Service      json.RawMessage `json:"service"`
	SelectedDate string          `json:"selectedDate"`
	SelectedTime string          `json:"selectedTime"`
	Time         string          `json:"time"`
	StartTime    string          `json:"startTime"`
	Duration     string          `json:"duration"`
	Name         string          `json:"name"`
	WechatName   string          `json:"wechatName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Wechat       string          `json:"wechat"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"createdAt"`
	Hours        int             `json:"durationHours"`
	ReminderSent bool            `json:"reminderSent"`
}

// UnmarshalJSON accepts legacy field names and normalizes the record.
func (b *Booking) UnmarshalJSON(data []byte) error {
	var raw legacyBooking
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var svc Service
	if len(raw.Service) > 0 && string(raw.Service) != "null" {
		if err := json.Unmarshal(raw.Service, &svc); err != nil {
			return err
		}
	}

	*b = Booking{
		BookingID:     raw.BookingID,
		Service:       svc,
		SelectedDate:  raw.SelectedDate,
		SelectedTime:  firstNonEmpty(raw.SelectedTime, raw.Time, raw.StartTime),
		Name:          raw.Name,
		WechatName:    raw.WechatName,
		Email:         raw.Email,
		Phone:         raw.Phone,
		Wechat:        raw.Wechat,
		Status:        raw.Status,
		DurationHours: raw.Hours,
		ReminderSent:  raw.ReminderSent,
	}
	if raw.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw.CreatedAt); err == nil {
			b.CreatedAt = ts
		}
	}
	if b.DurationHours <= 0 {
		b.DurationHours = legacyDuration(svc.Duration, svc.DurationHours, raw.Duration)
	}
	NormalizeBooking(b)
	return nil
}

func legacyDuration(serviceText string, serviceHours int, bookingText string) int {
	if serviceHours > 0 {
		return serviceHours
	}
	if serviceText != "" {
		return ParseDuration(serviceText)
	}
	if h := ParseDuration(bookingText); h > 0 {
		return h
	}
	return DefaultDurationHours
}

// NormalizeBooking resolves date, duration and status once so readers never probe fallbacks.
func NormalizeBooking(b *Booking) {
	b.SelectedDate = DateOnly(b.SelectedDate)
	b.Service.Normalize()
	if b.DurationHours <= 0 {
		b.DurationHours = b.Service.Hours()
	}
	if b.DurationHours <= 0 {
		b.DurationHours = DefaultDurationHours
	}
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
}

// Hours returns the normalized booking duration.
func (b *Booking) Hours() int {
	if b.DurationHours > 0 {
		return b.DurationHours
	}
	return DefaultDurationHours
}

// StartsAt returns the local start instant of the booking.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" 15:04", b.SelectedDate+" "+b.SelectedTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateOnly strips the time component of an ISO timestamp.
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BlockKind tells a full-day block apart from a partial one.
type BlockKind int

const (
	BlockPartial BlockKind = iota
	BlockFullDay
)

// BlockedDate is an admin exclusion of a whole date or of specific times on it.
type BlockedDate struct {
	Date  string
	Kind  BlockKind
	Times []string
}

// FullDayBlock blocks every time on date.
func FullDayBlock(date string) BlockedDate {
	return BlockedDate{Date: date, Kind: BlockFullDay}
}

// PartialBlock blocks the given times; duplicates are dropped and times sorted.
func PartialBlock(date string, times ...string) BlockedDate {
	return BlockedDate{Date: date, Kind: BlockPartial, Times: uniqueSorted(times)}
}

// IsFullDay reports whether the whole date is blocked.
func (b BlockedDate) IsFullDay() bool {
	return b.Kind == BlockFullDay
}

// Blocks reports whether slot is unavailable under this record.
func (b BlockedDate) Blocks(slot string) bool {
	if b.IsFullDay() {
		return true
	}
	for _, t := range b.Times {
		if t == slot {
			return true
		}
	}
	return false
}

type blockedDateJSON struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// MarshalJSON keeps the wire shape {date, times} where an empty list means the full day.
func (b BlockedDate) MarshalJSON() ([]byte, error) {
	out := blockedDateJSON{Date: b.Date, Times: []string{}}
	if !b.IsFullDay() {
		out.Times = append(out.Times, b.Times...)
	}
	return json.Marshal(out)
}

// UnmarshalJSON maps an empty or missing times list to a full-day block.
func (b *BlockedDate) UnmarshalJSON(data []byte) error {
	var raw blockedDateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Times) == 0 {
		*b = FullDayBlock(raw.Date)
		return nil
	}
	*b = PartialBlock(raw.Date, raw.Times...)
	return nil
}

func uniqueSorted(times []string) []string {
	seen := make(map[string]struct{}, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
