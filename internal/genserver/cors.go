package genserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// corsMaxAge is how long browsers may cache a preflight answer, in seconds.
const corsMaxAge = 600

// corsFor builds the CORS middleware of one route. An empty origin list
// answers no cross-origin caller.
func corsFor(origins, methods []string, headers ...string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: methods,
		AllowedHeaders: headers,
		MaxAge:         corsMaxAge,
	}
	for _, origin := range origins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			opts.AllowedOrigins = append(opts.AllowedOrigins, origin)
		}
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
