package api

import (
	"errors"
	"net/http"
	"strconv"

	"heyu/internal/models"
	"heyu/internal/service"
)

// GET /api/services?category=
func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.deps.Catalog.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeServiceError(w, r, err, "unable to list services")
		return
	}
	if services == nil {
		services = []models.Service{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(services),
		"services": services,
	})
}

// GET /api/services/{id}
func (s *HTTPServer) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid service id", nil)
		return
	}
	svc, err := s.deps.Catalog.Get(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Service not found", nil)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err, "unable to load service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "service": svc})
}

// handleUpsertService merges into an existing entry when id matches one,
// otherwise creates a new entry.
// POST /api/services
func (s *HTTPServer) handleUpsertService(w http.ResponseWriter, r *http.Request) {
	var in service.ServiceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	svc, created, err := s.deps.Catalog.Upsert(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, "unable to save service")
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Service created",
			"service": svc,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Service updated",
		"service": svc,
	})
}
