package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var (
	corsAllowedHeaders = []string{"Content-Type", "X-Request-Id"}
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
)

// CORS lets browser chat widgets on allowlisted origins call the API.
// Origins are compared without a trailing slash; "*" allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         600,
	})
}
