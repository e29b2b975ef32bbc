// Package middleware provides the HTTP middleware of the local API server.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

// corsMaxAge is how long browsers may cache a preflight answer.
const corsMaxAge = 10 * time.Minute

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry must be a full origin (scheme + host, no trailing slash); a
// single "*" allows any origin. The allowed methods cover the local API
// (GET reads, POST toggles/adds, PUT stars/quantities, DELETE cart lines).
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         int(corsMaxAge.Seconds()),
	})
	return c.Handler
}
