package api

import (
	"context"
	"net/http"
	"time"
)

func (s *HTTPServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "HeyU backend service is running",
		"endpoints": map[string]any{
			"health":       "/health",
			"bookings":     "/api/bookings",
			"services":     "/api/services",
			"blockedDates": "/api/blocked-dates",
			"timeSlots":    "/api/time-slots/available?date=YYYY-MM-DD&serviceId=1",
			"email": map[string]string{
				"check":            "/api/email/check",
				"test":             "/api/email/test?email=your@email.com",
				"sendConfirmation": "POST /api/email/send-confirmation",
			},
		},
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "HeyU backend service is running",
	})
}

// handleReady pings every registered dependency.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Checks))
	ready := true
	for _, c := range s.deps.Checks {
		if err := c.Ping(ctx); err != nil {
			checks[c.Name] = err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
