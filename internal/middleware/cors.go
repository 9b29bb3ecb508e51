// internal/middleware/cors.go
//
// CORS for the verification endpoint.
//
// Browser callers send the same header set the hosted function accepted:
// authorization, x-client-info, apikey, and content-type.  Only POST is a
// real method; OPTIONS is answered by the preflight handler.

package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

// AllowedHeaders are accepted on cross-origin requests.
var AllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// CORS returns middleware for the given origins.  "*" allows any origin.
// An empty list allows none; rs/cors on its own would read it as "*".
// Credentials are never allowed cross-origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   AllowedHeaders,
		AllowCredentials: false,
		MaxAge:           600,
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return false }
	}
	c := cors.New(opts)
	zap.L().Debug("cors configured", zap.Strings("origins", origins))
	return c.Handler
}
