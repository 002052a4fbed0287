package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/samber/lo"

	"memoria/internal/config"
)

type contextKey string

const (
	loggerContextKey = contextKey("logger")
	viewerContextKey = contextKey("viewer")

	viewerHeader = "X-Viewer-ID"
)

type Server struct {
	server *http.Server

	Config   *config.Config
	Logger   *slog.Logger
	Feed     Feed
	Trending Trending
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) Run(ctx context.Context) error {
	s.Logger.Info("Starting API server", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warn("API server shutdown failed", "error", err)
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "api.Server")

	handlers := &Handlers{Feed: s.Feed, Trending: s.Trending}

	timeout := lo.CoalesceOrEmpty(s.Config.RequestTimeout, config.DefaultRequestTimeout)

	s.server = &http.Server{
		Handler:           NewRouter(s.Config, s.Logger, handlers),
		Addr:              s.Config.ListenAddr,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Second,
		WriteTimeout:      timeout + time.Second,
		IdleTimeout:       time.Minute,
	}
	return nil
}

func logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func viewer(ctx context.Context) int64 {
	id, _ := ctx.Value(viewerContextKey).(int64)
	return id
}

// NewRouter mounts the API on a chi mux.
func NewRouter(cfg *config.Config, log *slog.Logger, h *Handlers) http.Handler {
	r := chi.NewMux()

	r.Use(
		// json content type
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				next.ServeHTTP(w, r)
			})
		},

		// Logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger := log.With("method", r.Method, "path", r.URL.Path)
				ctx := context.WithValue(r.Context(), loggerContextKey, logger)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},

		// Logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()
				sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

				next.ServeHTTP(sw, r)

				duration := time.Since(start)
				logger(r.Context()).Info("request", "duration", duration, "status", sw.status)
			})
		},

		// Recovering panics and logging
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if err := recover(); err != nil {
						logger(r.Context()).Error("panic recovered", "error", err)
						respondError(w, r, http.StatusInternalServerError, "internal", "internal server error")
					}
				}()
				next.ServeHTTP(w, r)
			})
		},
	)

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authenticate)

		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
				}),
			))
		}

		r.Use(middleware.Timeout(lo.CoalesceOrEmpty(cfg.RequestTimeout, config.DefaultRequestTimeout)))

		r.Get("/feed/home", h.Home)
		r.Get("/feed/trending", h.TrendingFeed)
		r.Get("/users/{userID}/feed", h.Profile)
		r.Get("/search/memories", h.Search)
	})

	return r
}

// authenticate trusts the viewer id set by the auth gateway.
func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(viewerHeader), 10, 64)
		if err != nil || id <= 0 {
			respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing or invalid "+viewerHeader)
			return
		}

		ctx := context.WithValue(r.Context(), viewerContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
