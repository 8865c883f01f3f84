package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/observability"
	appsession "finitefield.org/uniform-studio/internal/session"
)

// User represents the authenticated member.
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Authenticator resolves an incoming ID token into a User.
type Authenticator interface {
	Authenticate(r *http.Request, token string) (*User, error)
}

// ErrUnauthorized is returned when authentication fails.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError contains reason codes for failed authentication attempts.
type AuthError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError constructs an AuthError with the provided reason.
func NewAuthError(reason string, err error) error {
	return &AuthError{Reason: reason, Err: err}
}

const (
	// ReasonMissingToken indicates an auth attempt without credentials.
	ReasonMissingToken = "missing_token"
	// ReasonTokenInvalid indicates a malformed or invalid token.
	ReasonTokenInvalid = "token_invalid"
	// ReasonTokenExpired indicates an expired token.
	ReasonTokenExpired = "token_expired"
)

const debugTokenPrefix = "debug:"

// AuthConfig controls optional authentication.
type AuthConfig struct {
	// Authenticator verifies real ID tokens. Nil disables verification.
	Authenticator Authenticator
	// AllowDebug accepts "Bearer debug:<uid>" tokens. Never enable in production.
	AllowDebug bool
}

// Auth is optional authentication: anonymous visitors pass through, a valid
// token signs the session in, and an invalid one signs it out.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := parseBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				token = cookieToken(r)
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticate(cfg, r, token)
			sess, hasSession := SessionFromContext(r.Context())
			if err != nil {
				reason := ReasonTokenInvalid
				var authErr *AuthError
				if errors.As(err, &authErr) && authErr.Reason != "" {
					reason = authErr.Reason
				}
				observability.FromContext(r.Context()).Warn("auth failure",
					zap.String("reason", reason),
					zap.Error(err),
				)
				if hasSession {
					sess.SetUser(nil)
				}
				next.ServeHTTP(w, r)
				return
			}

			if hasSession {
				sess.SetUser(&appsession.User{UID: user.UID, Email: user.Email, DisplayName: user.DisplayName})
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(cfg AuthConfig, r *http.Request, token string) (*User, error) {
	if strings.HasPrefix(token, debugTokenPrefix) {
		if !cfg.AllowDebug {
			return nil, NewAuthError(ReasonTokenInvalid, errors.New("debug tokens are disabled"))
		}
		uid := strings.TrimSpace(strings.TrimPrefix(token, debugTokenPrefix))
		if uid == "" {
			return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
		}
		return &User{UID: uid}, nil
	}
	if cfg.Authenticator == nil {
		return nil, NewAuthError(ReasonTokenInvalid, errors.New("no authenticator configured"))
	}
	user, err := cfg.Authenticator.Authenticate(r, token)
	if err != nil {
		return nil, err
	}
	if user == nil || user.UID == "" {
		return nil, NewAuthError(ReasonTokenInvalid, ErrUnauthorized)
	}
	return user, nil
}

// CurrentUser returns the signed-in user stored on the session.
func CurrentUser(ctx context.Context) (*appsession.User, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok || !sess.LoggedIn() {
		return nil, false
	}
	return sess.User(), true
}

// LoggedIn reports whether the request belongs to a signed-in member.
func LoggedIn(ctx context.Context) bool {
	_, ok := CurrentUser(ctx)
	return ok
}

// UserID returns the signed-in uid or an empty string.
func UserID(ctx context.Context) string {
	if u, ok := CurrentUser(ctx); ok {
		return u.UID
	}
	return ""
}

func parseBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie("__session")
	if err != nil {
		return ""
	}
	val := strings.TrimSpace(c.Value)
	if len(val) >= 7 && strings.EqualFold(val[:7], "bearer ") {
		return strings.TrimSpace(val[7:])
	}
	return val
}
