// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"barbershop/internal/booking"
	"barbershop/internal/model"
	"barbershop/internal/report"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Options configures the HTTP server.
type Options struct {
	Port           int
	APIKey         string // required for /api/admin routes
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer serves the public booking API and the owner's admin API.
type HTTPServer struct {
	service *booking.Service
	reports report.Source
	apiKey  string
	limiter *ipLimiter
	logger  zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(svc *booking.Service, reports report.Source, opts Options, logger *zerolog.Logger) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "http_api").Logger()
	}

	s := &HTTPServer{
		service: svc,
		reports: reports,
		apiKey:  opts.APIKey,
		limiter: newIPLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst),
		logger:  l,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the routed handler with rate limiting applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("GET /api/slots", s.handleSlots)
	mux.HandleFunc("POST /api/appointments", s.handleBook)
	mux.HandleFunc("GET /api/appointments", s.handleCustomerAppointments)
	mux.HandleFunc("POST /api/appointments/{id}/cancel", s.handleCustomerCancel)

	mux.Handle("PUT /api/admin/settings", s.requireAPIKey(s.handleUpdateSettings))
	mux.Handle("GET /api/admin/appointments", s.requireAPIKey(s.handleAdminAppointments))
	mux.Handle("GET /api/admin/appointments/upcoming", s.requireAPIKey(s.handleUpcomingAppointments))
	mux.Handle("GET /api/admin/appointments/{id}", s.requireAPIKey(s.handleGetAppointment))
	mux.Handle("POST /api/admin/appointments/{id}/status", s.requireAPIKey(s.handleUpdateStatus))
	mux.Handle("GET /api/admin/closures", s.requireAPIKey(s.handleListClosures))
	mux.Handle("POST /api/admin/closures", s.requireAPIKey(s.handleAddClosure))
	mux.Handle("DELETE /api/admin/closures/{id}", s.requireAPIKey(s.handleDeleteClosure))
	mux.Handle("GET /api/admin/reports/earnings", s.requireAPIKey(s.handleEarnings))

	return s.rateLimit(mux)
}

// Start blocks serving HTTP until Shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API started")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) requireAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.Warn().Str("ip", ip).Msg("Rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxTrackedClients bounds the limiter map; it is reset when exceeded.
const maxTrackedClients = 10000

type ipLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a booking error onto a status code and error body.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrConcurrentModification):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidSlot), errors.Is(err, model.ErrShopClosed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrTimeout):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      model.ErrorCode(err),
		Retryable: model.IsRetryable(err),
	})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
