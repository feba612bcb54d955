// Package http exposes the token data and analysis operations over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/config"
)

// Server represents the HTTP server
type Server struct {
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	handlers *Handlers
	health   *HealthHandler
	metrics  *MetricsRegistry
	config   config.ServerConfig
}

// Dependencies are the collaborators the server routes to
type Dependencies struct {
	Service       TokenService
	Breakers      BreakerStates
	Budgets       BudgetStates
	Metrics       *MetricsRegistry
	APIConfigured bool
	Version       string
}

// NewServer creates a new HTTP server instance
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(deps.Service),
		health:   NewHealthHandler(deps.Breakers, metrics, deps.APIConfigured, deps.Version),
		metrics:  metrics,
		config:   cfg,
	}
	s.health.budgets = deps.Budgets
	s.setupRoutes()

	// CORS and logging wrap the router so preflight and unmatched requests see them too
	s.handler = s.requestIDMiddleware(s.requestLoggingMiddleware(s.corsMiddleware(s.router)))

	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.handler,
		ReadTimeout:       cfg.GetReadTimeout(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.GetWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.routeMiddleware)

	s.router.Handle("/health", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/raw", s.handlers.Raw).Methods(http.MethodGet)
	api.HandleFunc("/raw/", s.handlers.Raw).Methods(http.MethodGet)
	api.HandleFunc("/raw/{token}", s.handlers.Raw).Methods(http.MethodGet)

	api.HandleFunc("/analyze", s.handlers.Analyze).Methods(http.MethodGet)
	api.HandleFunc("/analyze", s.handlers.Score).Methods(http.MethodPost)
	api.HandleFunc("/analyze/{token}", s.handlers.Analyze).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handlers.MethodNotAllowed)
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

type requestInfoKey struct{}

type requestInfo struct {
	id    string
	route string
}

// RequestID returns the id assigned to the request carrying ctx
func RequestID(ctx context.Context) string {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		return info.id
	}
	return ""
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &requestInfo{id: uuid.New().String()[:8], route: "unmatched"}
		w.Header().Set("X-Request-ID", info.id)
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// routeMiddleware records the matched route template for logs and metrics
func (s *Server) routeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					info.route = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestLoggingMiddleware logs all requests with structured format
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		route := "unmatched"
		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			route = info.route
		}
		s.metrics.RecordHTTPRequest(r.Method, route, wrapper.statusCode)

		log.Info().
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// corsMiddleware allows any origin and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe binds the configured address and serves until Shutdown
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("port %d is busy or unavailable: %w", s.config.Port, err)
	}

	log.Info().Str("addr", listener.Addr().String()).Msg("Starting HTTP server")
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return s.config.Addr()
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
