package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"heyu/internal/models"
	"heyu/internal/notify"
	"heyu/internal/service"

	"github.com/rs/zerolog"
)

// EmailSender is the part of the mailer the email endpoints use.
type EmailSender interface {
	Status() notify.Status
	SendConfirmation(ctx context.Context, b models.Booking) (notify.Result, error)
}

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Bookings     *service.BookingService
	Blocks       *service.BlockService
	Catalog      *service.CatalogService
	Availability *service.AvailabilityService
	Email        EmailSender
	// TestEmail receives /api/email/test messages when no address is given.
	TestEmail string
	Checks    []ReadyCheck
}

// Options tune the HTTP listener and middleware.
type Options struct {
	Address              string
	CORSOrigins          []string
	BodyLimitBytes       int64
	BookingRatePerMinute int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
}

// HTTPServer serves the booking REST API.
type HTTPServer struct {
	deps    Deps
	opts    Options
	logger  *zerolog.Logger
	limiter *ipLimiter
	now     func() time.Time
	server  *http.Server
}

// NewHTTPServer builds the router and middleware chain.
func NewHTTPServer(deps Deps, opts Options, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		limiter: newIPLimiter(opts.BookingRatePerMinute),
		now:     time.Now,
	}

	handler := Chain(s.routes(),
		WithRequestID,
		WithAccessLog(logger),
		WithCORS(opts.CORSOrigins),
		WithBodyLimit(opts.BodyLimitBytes),
	)

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/bookings", s.limiter.Middleware()(http.HandlerFunc(s.handleCreateBooking)))
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/bookings/export", s.handleExportBookings)
	mux.HandleFunc("GET /api/bookings/{id}", s.handleGetBooking)

	mux.HandleFunc("GET /api/blocked-dates", s.handleListBlockedDates)
	mux.HandleFunc("POST /api/blocked-dates", s.handleSaveBlockedDate)
	mux.HandleFunc("DELETE /api/blocked-dates/{date}", s.handleDeleteBlockedDate)
	mux.HandleFunc("POST /api/blocked-dates/{date}/times/{time}", s.handleBlockTime)
	mux.HandleFunc("DELETE /api/blocked-dates/{date}/times/{time}", s.handleUnblockTime)

	mux.HandleFunc("GET /api/services", s.handleListServices)
	mux.HandleFunc("GET /api/services/{id}", s.handleGetService)
	mux.HandleFunc("POST /api/services", s.handleUpsertService)

	mux.HandleFunc("GET /api/time-slots/available", s.handleAvailableSlots)
	mux.HandleFunc("POST /api/time-slots/available", s.handleAvailableSlotsForService)
	mux.HandleFunc("GET /api/time-slots/default", s.handleDefaultSlots)
	mux.HandleFunc("POST /api/time-slots/range", s.handleSlotRange)

	mux.HandleFunc("GET /api/email/check", s.handleEmailCheck)
	mux.HandleFunc("GET /api/email/test", s.handleEmailTest)
	mux.HandleFunc("POST /api/email/send-confirmation", s.handleSendConfirmation)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found", nil)
	})
	return mux
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("address", s.opts.Address).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {success:false, message, error} envelope. err is omitted when nil.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"success": false, "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}

// writeServiceError maps service and storage errors to HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Errors,
		})
	case errors.Is(err, service.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrSlotUnavailable), errors.Is(err, models.ErrSlotTaken):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found", nil)
	default:
		s.logger.Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg(fallback)
		writeError(w, http.StatusInternalServerError, "Server error, "+fallback, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
