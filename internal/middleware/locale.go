package middleware

import (
	"context"
	"net/http"
	"strings"

	"finitefield.org/uniform-studio/internal/i18n"
)

type localeContextKey string

const langContextKey localeContextKey = "locale.lang"

// LocaleCookie stores an explicit language choice.
const LocaleCookie = "hl"

// Locale resolves the request language: the hl query, the stored session
// choice, the hl cookie, then Accept-Language.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, hasSession := SessionFromContext(r.Context())
			lang := ""

			if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(LocaleCookie))); q != "" && bundle.IsSupported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{Name: LocaleCookie, Value: q, Path: "/", SameSite: http.SameSiteLaxMode})
				if hasSession {
					sess.SetLocale(q)
				}
			}
			if lang == "" && hasSession && bundle.IsSupported(sess.Locale()) {
				lang = sess.Locale()
			}
			if lang == "" {
				if c, err := r.Cookie(LocaleCookie); err == nil && bundle.IsSupported(strings.ToLower(c.Value)) {
					lang = strings.ToLower(c.Value)
				}
			}
			if lang == "" {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}

			w.Header().Set("Content-Language", lang)
			ctx := context.WithValue(r.Context(), langContextKey, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Lang returns the language resolved for this request, or fallback.
func Lang(ctx context.Context, fallback string) string {
	if v, ok := ctx.Value(langContextKey).(string); ok && v != "" {
		return v
	}
	return fallback
}

// VaryLocale marks dynamic responses as language dependent.
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}
