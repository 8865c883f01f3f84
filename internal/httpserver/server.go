package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/catalog"
	"finitefield.org/uniform-studio/internal/content"
	"finitefield.org/uniform-studio/internal/i18n"
	custommw "finitefield.org/uniform-studio/internal/middleware"
	"finitefield.org/uniform-studio/internal/observability"
	"finitefield.org/uniform-studio/internal/submission"
	"finitefield.org/uniform-studio/internal/views"
)

// Config holds runtime options for the design web server.
type Config struct {
	Address        string
	Logger         *zap.Logger
	Bundle         *i18n.Bundle
	Catalog        *catalog.Catalog
	Tips           *content.Library
	Sessions       custommw.SessionStore
	Generator      submission.Generator
	Guard          *submission.Guard
	Authenticator  custommw.Authenticator
	AllowDebugAuth bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// New constructs the HTTP server with the middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("httpserver: generator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Bundle == nil {
		bundle, err := i18n.Default()
		if err != nil {
			return nil, err
		}
		cfg.Bundle = bundle
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Tips == nil {
		cfg.Tips = content.Tips(cfg.Bundle.Fallback())
	}
	if cfg.Guard == nil {
		cfg.Guard = submission.NewGuard()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 120 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(cfg.Logger))
	router.Use(observability.TraceMiddleware)
	router.Use(observability.RequestLoggerMiddleware(custommw.UserID))
	router.Use(observability.RecoveryMiddleware)

	router.Get("/healthz", healthz)
	router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(views.Assets()))))

	h := &handlers{cfg: cfg}
	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX)
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.Auth(custommw.AuthConfig{
			Authenticator: cfg.Authenticator,
			AllowDebug:    cfg.AllowDebugAuth,
		}))
		r.Use(custommw.Locale(cfg.Bundle))
		r.Use(custommw.CSRF)
		r.Use(custommw.VaryLocale)

		r.Get("/", h.page)
		RegisterFragment(r, "/nav", h.nav)
		r.Post("/design", h.design)
		r.Post("/logout", h.logout)
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}, nil
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX).Get(pattern, handler)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
