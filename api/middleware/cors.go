package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/sportello-uk/sportello-backend/pkg/config"
)

// CORS applies the configured origin policy. Credentials are never sent:
// sessions are addressed by id in the path.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Language", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
