package middleware

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/cors"
)

// LoadCORS restricts cross-origin reads to origins. With no origins every
// origin is allowed and credentials are disabled.
func LoadCORS(origins []string, logger *log.Logger) func(http.Handler) http.Handler {
	if len(origins) > 0 {
		logger.Info("Loaded CORS origins", "count", len(origins))
		return cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           86400,
		})
	}

	logger.Warn("No CORS_ORIGINS set, allowing all origins (credentials disabled)")
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}
