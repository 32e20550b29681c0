package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"statusboard/internal/core/domain"
	"statusboard/internal/core/logger"
	"statusboard/internal/core/services"
)

// Options carries the transport-level settings of the server.
type Options struct {
	// AuthToken, when non-empty, is required as "Bearer <token>" on ingest.
	AuthToken     string
	EnableMetrics bool
}

type Server struct {
	router    *chi.Mux
	statusSvc *services.StatusService
	healthSvc *services.HealthService
	hub       *Hub
	opts      Options
}

func NewServer(statusSvc *services.StatusService, healthSvc *services.HealthService, hub *Hub, opts Options) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		statusSvc: statusSvc,
		healthSvc: healthSvc,
		hub:       hub,
		opts:      opts,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(MetricsMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if s.opts.EnableMetrics {
		s.router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			MetricsHandler().ServeHTTP(w, r)
		})
	}

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/health/live", s.handleLiveness)
	s.router.Get("/health/detailed", s.handleDetailedHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleGetStatus)
		if s.statusSvc.AcceptsIngest() {
			r.With(RequireBearer(s.opts.AuthToken)).Post("/status", s.handleIngest)
		}
		if s.hub != nil {
			r.Get("/ws", s.handleWS)
		}
	})

	s.router.Get("/", s.handleDashboard)
}

// Handler returns the root handler wrapped with tracing instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "statusboard")
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// RequireBearer rejects requests whose Authorization header is not exactly
// "Bearer <secret>". An empty secret disables the check.
func RequireBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		expected := []byte("Bearer " + secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				RecordIngest("unauthorized")
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type ingestResponse struct {
	OK         bool   `json:"ok"`
	ReceivedAt string `json:"receivedAt"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.healthSvc.Probe(r.Context()))
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.healthSvc.CheckHealth(r.Context()))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxSnapshotBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RecordIngest("too_large")
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Payload too large"})
			return
		}
		RecordIngest("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Failed to read body"})
		return
	}

	rec, err := s.statusSvc.Ingest(r.Context(), raw)
	switch {
	case errors.Is(err, domain.ErrInvalidDocument), errors.Is(err, domain.ErrNotObject):
		RecordIngest("invalid")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Ingest failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	RecordIngest("accepted")
	SetLastReceived(rec.ReceivedAt)
	writeJSON(w, http.StatusOK, ingestResponse{OK: true, ReceivedAt: domain.FormatTime(rec.ReceivedAt)})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	body, err := s.statusSvc.RawStatus(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to read status", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := s.statusSvc.Dashboard(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to render dashboard", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ServeWs(s.hub, w, r)
}
