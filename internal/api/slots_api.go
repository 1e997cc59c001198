package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"heyu/internal/models"
)

// MaxRangeDays bounds POST /api/time-slots/range.
const MaxRangeDays = 90

type slotsRequest struct {
	Date      string          `json:"date"`
	Service   *models.Service `json:"service"`
	ServiceID int64           `json:"serviceId"`
}

type rangeRequest struct {
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Service   *models.Service `json:"service"`
	ServiceID int64           `json:"serviceId"`
}

// handleAvailableSlots returns the open start times for a date. Without a
// serviceId it returns the unfiltered default grid.
// GET /api/time-slots/available?date=&serviceId=
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}

	rawID := q.Get("serviceId")
	if rawID == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"date":      date,
			"timeSlots": s.deps.Availability.DefaultSlots(date),
		})
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid serviceId", nil)
		return
	}
	s.writeSlots(w, r, slotsRequest{Date: date, ServiceID: id})
}

// POST /api/time-slots/available
func (s *HTTPServer) handleAvailableSlotsForService(w http.ResponseWriter, r *http.Request) {
	var req slotsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if strings.TrimSpace(req.Date) == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	if req.Service == nil && req.ServiceID == 0 {
		writeError(w, http.StatusBadRequest, "service is required", nil)
		return
	}
	s.writeSlots(w, r, req)
}

func (s *HTTPServer) writeSlots(w http.ResponseWriter, r *http.Request, req slotsRequest) {
	var (
		slots []string
		svc   = req.Service
		err   error
	)
	if svc == nil {
		slots, svc, err = s.deps.Availability.AvailableSlotsForService(r.Context(), req.Date, req.ServiceID)
	} else {
		slots, err = s.deps.Availability.AvailableSlots(r.Context(), req.Date, svc)
	}
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Service not found", nil)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "unable to compute available time slots")
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"date":      req.Date,
		"service":   svc,
		"timeSlots": slots,
	})
}

// GET /api/time-slots/default?date=
func (s *HTTPServer) handleDefaultSlots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"date":      date,
		"timeSlots": s.deps.Availability.DefaultSlots(date),
	})
}

// handleSlotRange returns availability for every date in [startDate, endDate].
// POST /api/time-slots/range
func (s *HTTPServer) handleSlotRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	svc := req.Service
	if svc == nil && req.ServiceID != 0 {
		svc, err = s.deps.Catalog.Get(r.Context(), req.ServiceID)
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Service not found", nil)
			return
		}
		if err != nil {
			s.writeServiceError(w, r, err, "unable to load service")
			return
		}
	}

	days, err := s.deps.Availability.Range(r.Context(), start, end, svc)
	if err != nil {
		s.writeServiceError(w, r, err, "unable to compute availability range")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"period":  map[string]string{"start": req.StartDate, "end": req.EndDate},
		"service": svc,
		"days":    days,
	})
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, errors.New("startDate and endDate are required")
	}
	start, err := time.Parse(models.DateLayout, models.DateOnly(startRaw))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid startDate format; expected YYYY-MM-DD")
	}
	end, err := time.Parse(models.DateLayout, models.DateOnly(endRaw))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid endDate format; expected YYYY-MM-DD")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errors.New("startDate must be before or equal to endDate")
	}
	if end.Sub(start) > time.Duration(MaxRangeDays)*24*time.Hour {
		return time.Time{}, time.Time{}, errors.New("date range exceeds 90 days")
	}
	return start, end, nil
}
