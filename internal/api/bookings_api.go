package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"heyu/internal/audit"
	"heyu/internal/models"
	"heyu/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleCreateBooking stores a customer submission.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	booking, err := s.deps.Bookings.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err, "unable to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// GET /api/bookings?status=&date=
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookings, err := s.deps.Bookings.List(r.Context(), q.Get("status"), q.Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err, "unable to list bookings")
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(bookings),
		"bookings": bookings,
	})
}

// GET /api/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.deps.Bookings.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Booking not found", nil)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "unable to load booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": booking})
}

// handleExportBookings downloads the filtered bookings as a spreadsheet.
// GET /api/bookings/export?status=&date=
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookings, err := s.deps.Bookings.List(r.Context(), q.Get("status"), q.Get("date"))
	if err != nil {
		s.writeServiceError(w, r, err, "unable to export bookings")
		return
	}

	var buf bytes.Buffer
	if err := audit.WriteBookings(&buf, bookings); err != nil {
		s.writeServiceError(w, r, err, "unable to export bookings")
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", s.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
