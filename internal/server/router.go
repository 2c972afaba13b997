// Package server exposes the bot's HTTP surface: health probes, Prometheus
// metrics and, in webhook mode, the Telegram update endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kuznetsov-tulips/tulip-bot/internal/logger"
)

const readyTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Logger *logger.Logger
	// Checks are pinged by /health/ready, keyed by dependency name.
	Checks   map[string]Pinger
	Gatherer prometheus.Gatherer
	// WebhookPath and Webhook are both set in webhook mode only.
	WebhookPath string
	Webhook     http.Handler
}

func NewRouter(opts Options) http.Handler {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, recoverer(logg))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "live"})
		})
		r.Get("/ready", ready(logg, opts.Checks))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.Post(opts.WebhookPath, opts.Webhook.ServeHTTP)
	}
	return r
}

func ready(logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := logg.WithField(r.Context(), "request_id", middleware.GetReqID(r.Context()))
					logg.Error(ctx, "http handler panicked", fmt.Errorf("panic: %v", rec))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
