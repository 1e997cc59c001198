package api

import (
	"errors"
	"net/http"
	"strings"

	"heyu/internal/models"
	"heyu/internal/notify"
)

type sendConfirmationRequest struct {
	BookingID   string          `json:"bookingId"`
	BookingData *models.Booking `json:"bookingData"`
}

// GET /api/email/check
func (s *HTTPServer) handleEmailCheck(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Email == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "configured": false})
		return
	}
	status := s.deps.Email.Status()
	message := "Email service is configured"
	if !status.Configured {
		message = "Email service is not configured; set SMTP_HOST, SMTP_USER and SMTP_PASS"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"configured": status.Configured,
		"message":    message,
		"config":     status.Config,
	})
}

// handleEmailTest sends a confirmation for a synthetic booking.
// GET /api/email/test?email=
func (s *HTTPServer) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	to := strings.TrimSpace(r.URL.Query().Get("email"))
	if to == "" {
		to = s.deps.TestEmail
	}
	if to == "" {
		writeError(w, http.StatusBadRequest,
			"Please provide email address as query parameter: /api/email/test?email=your@email.com", nil)
		return
	}
	if s.deps.Email == nil {
		writeError(w, http.StatusServiceUnavailable, "Email service not configured", notify.ErrNotConfigured)
		return
	}

	result, err := s.deps.Email.SendConfirmation(r.Context(), notify.TestBooking(to, s.now()))
	if err != nil {
		s.logger.Warn().Err(err).Str("to", to).Msg("Test email failed")
	}
	message := "Test email sent successfully! Check your inbox (and spam folder)."
	if !result.Success {
		message = "Failed to send test email"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   result.Success,
		"message":   message,
		"config":    s.deps.Email.Status().Config,
		"result":    result,
		"testEmail": to,
	})
}

// handleSendConfirmation resends the confirmation for a stored booking, or
// for booking data given inline.
// POST /api/email/send-confirmation
func (s *HTTPServer) handleSendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req sendConfirmationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	booking := req.BookingData
	if booking == nil && req.BookingID != "" {
		found, err := s.deps.Bookings.Get(r.Context(), req.BookingID)
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found", nil)
			return
		}
		if err != nil {
			s.writeServiceError(w, r, err, "unable to load booking")
			return
		}
		booking = found
	}
	if booking == nil {
		writeError(w, http.StatusBadRequest, "Booking data or bookingId is required", nil)
		return
	}
	if s.deps.Email == nil {
		writeError(w, http.StatusInternalServerError, "Failed to send email", notify.ErrNotConfigured)
		return
	}

	result, err := s.deps.Email.SendConfirmation(r.Context(), *booking)
	if err != nil || !result.Success {
		if err == nil {
			err = errors.New(result.Message)
		}
		s.logger.Warn().Err(err).Str("booking_id", booking.BookingID).Msg("Confirmation email failed")
		writeError(w, http.StatusInternalServerError, "Failed to send email", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Confirmation email sent successfully",
		"messageId": result.MessageID,
	})
}
