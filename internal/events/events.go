package events

import (
	"encoding/json"
	"sync"
	"time"

	"heyu/internal/models"

	"github.com/rs/zerolog"
)

// Event types published by the services.
const (
	BookingCreated      = "booking.created"
	BlockedDatesChanged = "blocked_dates.changed"
	BookingsCleared     = "bookings.cleared"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged when logger is set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; long work belongs in a goroutine inside the handler.
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// NewBookingEvent wraps a created booking.
func NewBookingEvent(booking models.Booking) Event {
	payload, _ := json.Marshal(booking)
	return Event{Type: BookingCreated, Payload: payload}
}

// Booking decodes the payload of a BookingCreated event.
func (e Event) Booking() (models.Booking, error) {
	var b models.Booking
	err := json.Unmarshal(e.Payload, &b)
	return b, err
}

type datePayload struct {
	Date string `json:"date"`
}

// NewDateEvent carries the affected date; an empty date means all dates.
func NewDateEvent(eventType, date string) Event {
	payload, _ := json.Marshal(datePayload{Date: date})
	return Event{Type: eventType, Payload: payload}
}

// Date decodes the payload of a date event.
func (e Event) Date() string {
	var p datePayload
	_ = json.Unmarshal(e.Payload, &p)
	return p.Date
}
