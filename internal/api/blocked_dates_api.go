package api

import (
	"errors"
	"net/http"

	"heyu/internal/models"
)

type saveBlockedDateRequest struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

// GET /api/blocked-dates
func (s *HTTPServer) handleListBlockedDates(w http.ResponseWriter, r *http.Request) {
	blocked, err := s.deps.Blocks.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "unable to list blocked dates")
		return
	}
	if blocked == nil {
		blocked = []models.BlockedDate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"count":        len(blocked),
		"blockedDates": blocked,
	})
}

// handleSaveBlockedDate creates or replaces the block for a date. An empty
// times list blocks the whole day.
// POST /api/blocked-dates
func (s *HTTPServer) handleSaveBlockedDate(w http.ResponseWriter, r *http.Request) {
	var req saveBlockedDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	record, err := s.deps.Blocks.Save(r.Context(), req.Date, req.Times)
	if err != nil {
		s.writeServiceError(w, r, err, "unable to save blocked date")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Blocked date saved",
		"blockedDate": record,
	})
}

// DELETE /api/blocked-dates/{date}
func (s *HTTPServer) handleDeleteBlockedDate(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Blocks.Delete(r.Context(), r.PathValue("date"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Blocked date not found", nil)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "unable to delete blocked date")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Blocked date deleted"})
}

// POST /api/blocked-dates/{date}/times/{time}
func (s *HTTPServer) handleBlockTime(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.Blocks.BlockTime(r.Context(), r.PathValue("date"), r.PathValue("time"))
	if err != nil {
		s.writeServiceError(w, r, err, "unable to block time slot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Time slot blocked",
		"blockedDate": record,
	})
}

// handleUnblockTime removes one time from a date's block. The record is
// deleted when no time remains, and blockedDate is then null.
// DELETE /api/blocked-dates/{date}/times/{time}
func (s *HTTPServer) handleUnblockTime(w http.ResponseWriter, r *http.Request) {
	record, err := s.deps.Blocks.UnblockTime(r.Context(), r.PathValue("date"), r.PathValue("time"))
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Blocked date not found", nil)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "unable to unblock time slot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Time slot unblocked",
		"blockedDate": record,
	})
}
