package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coah80/appxzip/internal/config"
)

// Status describes the running bot for /health.
type Status struct {
	Platform string
	Started  time.Time
	// Users returns how many users have a token stored.
	Users func() int
}

func CoreRoutes(r chi.Router, st Status) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handleHealth(w, r, st)
	})
}

// MetricsRoutes mounts the Prometheus scrape endpoint.
func MetricsRoutes(r chi.Router, h http.Handler) {
	r.Method(http.MethodGet, "/metrics", h)
}

func handleHealth(w http.ResponseWriter, r *http.Request, st Status) {
	body := map[string]interface{}{
		"status":   "ok",
		"version":  config.Version,
		"platform": st.Platform,
	}
	if !st.Started.IsZero() {
		body["uptimeSec"] = int(time.Since(st.Started).Seconds())
	}
	if st.Users != nil {
		body["users"] = st.Users()
	}
	respondJSON(w, http.StatusOK, body)
}
