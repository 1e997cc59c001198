package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heyu",
			Name:      "booking_created_total",
			Help:      "Count of booking submissions by result.",
		},
		[]string{"result"},
	)

	availabilityComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heyu",
			Name:      "availability_requests_total",
			Help:      "Count of availability lookups by cache outcome.",
		},
		[]string{"cache"},
	)

	availabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "heyu",
			Name:      "availability_duration_seconds",
			Help:      "Time to load a snapshot and compute availability.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heyu",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heyu",
			Name:      "notifications_sent_total",
			Help:      "Count of outgoing notifications by channel and status.",
		},
		[]string{"channel", "status"},
	)

	blockChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heyu",
			Name:      "blocked_date_changes_total",
			Help:      "Count of admin blocking operations.",
		},
		[]string{"op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, availabilityComputed, availabilityDuration,
			httpRequests, notificationsSent, blockChanges)
	})
}

func IncBookingCreated(result string) {
	bookingCreated.WithLabelValues(result).Inc()
}

func ObserveAvailability(start time.Time, cached bool) {
	outcome := "miss"
	if cached {
		outcome = "hit"
	}
	availabilityComputed.WithLabelValues(outcome).Inc()
	availabilityDuration.Observe(time.Since(start).Seconds())
}

func IncHTTPRequest(route, method string, code int) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

func IncNotification(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

func IncBlockChange(op string) {
	blockChanges.WithLabelValues(op).Inc()
}
