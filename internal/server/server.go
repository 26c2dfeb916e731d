// Package server exposes the bot's health and metrics over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/middleware"
	"github.com/coah80/appxzip/internal/routes"
)

type Options struct {
	Addr        string
	CORSOrigins []string
	Status      routes.Status
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *log.Logger
}

func New(opts Options) *http.Server {
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           Router(opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func Router(opts Options) http.Handler {
	logger := logging.OrDefault(opts.Logger)
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(middleware.LoadCORS(opts.CORSOrigins, logger))

	routes.CoreRoutes(r, opts.Status)
	if opts.Metrics != nil {
		routes.MetricsRoutes(r, opts.Metrics)
	}
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
