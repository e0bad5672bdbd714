package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/service"
	"media-player-card/internal/ports"
)

type Server struct {
	cards   ports.CardPort
	hue     ports.HuePort
	events  http.Handler
	metrics http.Handler
	ip      string
	logger  *slog.Logger
}

type ServerOptions struct {
	// Hue enables the Hue bridge API when set.
	Hue     ports.HuePort
	Events  http.Handler
	Metrics http.Handler
	IP      string
	Logger  *slog.Logger
}

func NewServer(cards ports.CardPort, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cards:   cards,
		hue:     opts.Hue,
		events:  opts.Events,
		metrics: opts.Metrics,
		ip:      opts.IP,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.registerCardRoutes(r)
	s.registerAdminRoutes(r)
	if s.events != nil {
		r.Handle("/events", s.events)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.hue != nil {
		s.registerHueRoutes(r)
	}
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type jsonErr struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonErr{Error: msg, Code: status})
}

// writeDomainError maps domain errors onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var cfgErr *model.ConfigurationError
	switch {
	case errors.As(err, &cfgErr),
		errors.Is(err, dispatch.ErrInvalidCommand),
		errors.Is(err, service.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrUnknownControl),
		errors.Is(err, service.ErrButtonNotFound),
		errors.Is(err, dispatch.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, service.ErrControlDisabled),
		errors.Is(err, dispatch.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotRendered),
		errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
