package testutil

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/generator"
	"finitefield.org/uniform-studio/internal/httpserver"
	"finitefield.org/uniform-studio/internal/middleware"
	"finitefield.org/uniform-studio/internal/session"
	"finitefield.org/uniform-studio/internal/submission"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithGenerator overrides the image generator.
func WithGenerator(gen submission.Generator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Generator = gen
	}
}

// WithAuthenticator overrides the token authenticator.
func WithAuthenticator(auth middleware.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithGuard shares a submission guard with the test.
func WithGuard(guard *submission.Guard) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Guard = guard
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Logger = logger
	}
}

// NewServer constructs an httptest server running the web stack with sensible defaults:
// a static generator and debug tokens enabled.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := session.NewManager(session.Config{
		CookieName: "uniform_session",
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	cfg := httpserver.Config{
		Address:        ":0",
		Sessions:       sessions,
		Generator:      generator.NewStaticGenerator(),
		AllowDebugAuth: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
