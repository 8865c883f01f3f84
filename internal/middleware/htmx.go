package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const htmxContextKey contextKey = "htmx.request"

// HTMX marks requests sent by htmx (HX-Request: true) so handlers can answer
// with a fragment instead of the full page.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isHTMX := strings.EqualFold(r.Header.Get("HX-Request"), "true")
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), htmxContextKey, isHTMX)))
	})
}

// IsHTMXRequest reports whether the current request was initiated by htmx.
func IsHTMXRequest(ctx context.Context) bool {
	v, _ := ctx.Value(htmxContextKey).(bool)
	return v
}

// TriggerEvent asks htmx to dispatch event on the page body once the response
// is swapped. It must be called before the header is written.
func TriggerEvent(w http.ResponseWriter, event string) {
	if prev := w.Header().Get("HX-Trigger"); prev != "" {
		event = prev + ", " + event
	}
	w.Header().Set("HX-Trigger", event)
}

// RequireHTMX answers 404 to direct navigation to fragment routes.
func RequireHTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		if !IsHTMXRequest(r.Context()) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Retarget redirects the swap of this response to selector using the given
// swap style, leaving the element the request targeted untouched.
func Retarget(w http.ResponseWriter, selector, swap string) {
	w.Header().Set("HX-Retarget", selector)
	w.Header().Set("HX-Reswap", swap)
}
