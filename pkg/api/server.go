package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corerouter/pkg/config"
)

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg config.ServerConfig, handlers *Handlers, log *slog.Logger) *http.Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()

	// Concurrency limiter shared by the query routes.
	sem := make(chan struct{}, cfg.MaxConcurrent)
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withMiddleware(h, sem, cfg, log) }

	mux.HandleFunc("POST /api/v1/matrix", wrap(handlers.HandleMatrix))
	mux.HandleFunc("POST /api/v1/route", wrap(handlers.HandleRoute))
	mux.HandleFunc("GET /api/v1/health", wrap(handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", wrap(handlers.HandleStats))
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts the server and blocks until a shutdown signal.
func ListenAndServe(srv *http.Server, log *slog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// withMiddleware wraps a handler with security headers, CORS, concurrency
// limiting, panic recovery, a request timeout and access logging.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg config.ServerConfig, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "")
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal_error", "")
			}
		}()

		ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout)
		defer cancel()

		start := time.Now()
		handler(w, r.WithContext(ctx))
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	}
}
