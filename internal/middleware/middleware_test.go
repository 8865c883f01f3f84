package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"

	"finitefield.org/uniform-studio/internal/i18n"
	appsession "finitefield.org/uniform-studio/internal/session"
)

func newStore(t *testing.T) *appsession.Manager {
	t.Helper()
	mgr, err := appsession.NewManager(appsession.Config{
		CookieName: "test_session",
		HashKey:    []byte("12345678901234567890123456789012"),
	})
	require.NoError(t, err)
	return mgr
}

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func cookiesFrom(rec *httptest.ResponseRecorder, req *http.Request) {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
}

func TestSessionIsSavedBeforeBody(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	var first string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		first = sess.ID()
		_, _ = w.Write([]byte("ok"))
	}), Session(store))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Result().Cookies())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	cookiesFrom(rec, req)
	var second string
	h2 := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())
		second = sess.ID()
	}), Session(store))
	h2.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, first, second)
}

func TestAuthDebugTokenSignsIn(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	var loggedIn bool
	var uid string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggedIn = LoggedIn(r.Context())
		uid = UserID(r.Context())
	}), Session(store), Auth(AuthConfig{AllowDebug: true}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer debug:kim")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, loggedIn)
	require.Equal(t, "kim", uid)
}

func TestAuthDebugTokenRejectedInProduction(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	var loggedIn bool
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggedIn = LoggedIn(r.Context())
	}), Session(store), Auth(AuthConfig{AllowDebug: false}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer debug:kim")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.False(t, loggedIn)
	require.Equal(t, http.StatusOK, rec.Code, "optional auth never blocks the page")
}

func TestAnonymousVisitorIsNotLoggedIn(t *testing.T) {
	t.Parallel()

	var loggedIn = true
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loggedIn = LoggedIn(r.Context())
	}), Session(newStore(t)), Auth(AuthConfig{AllowDebug: true}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, loggedIn)
}

type stubFirebaseVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubFirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseAuthenticatorFromSessionCookie(t *testing.T) {
	t.Parallel()

	verifier := &stubFirebaseVerifier{token: &firebaseauth.Token{
		UID:    "user-123",
		Claims: map[string]any{"email": "kim@example.com", "name": " Kim "},
	}}
	var user *appsession.User
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = CurrentUser(r.Context())
	}), Session(newStore(t)), Auth(AuthConfig{Authenticator: NewFirebaseAuthenticator(verifier)}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "__session", Value: "id-token"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, user)
	require.Equal(t, "user-123", user.UID)
	require.Equal(t, "kim@example.com", user.Email)
	require.Equal(t, "Kim", user.DisplayName)
}

func TestFirebaseAuthenticatorHandlesExpiredToken(t *testing.T) {
	t.Parallel()

	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{err: ErrTokenExpired})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := auth.Authenticate(req, "expired")

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, ReasonTokenExpired, authErr.Reason)

	_, err = auth.Authenticate(req, " ")
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, ReasonMissingToken, authErr.Reason)
}

func TestFirebaseAuthenticatorDisplayNameFallback(t *testing.T) {
	t.Parallel()

	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{token: &firebaseauth.Token{
		UID:    "user-9",
		Claims: map[string]any{"email": "lee@example.com"},
	}})
	user, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), " id-token ")
	require.NoError(t, err)
	require.Equal(t, "lee", user.DisplayName)
}

func TestFirebaseAuthenticatorRejectsUnverifiedToken(t *testing.T) {
	t.Parallel()

	auth := NewFirebaseAuthenticator(&stubFirebaseVerifier{err: errors.New("signature mismatch")})
	_, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), "forged")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ReasonTokenInvalid, authErr.Reason)
}

func TestCSRFAcceptsHeaderOrFormField(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	var token string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}), Session(store), CSRF)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, token)

	missing := httptest.NewRequest(http.MethodPost, "/design", nil)
	cookiesFrom(rec, missing)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, missing)
	require.Equal(t, http.StatusForbidden, res.Code)

	viaHeader := httptest.NewRequest(http.MethodPost, "/design", nil)
	viaHeader.Header.Set(CSRFHeader, token)
	cookiesFrom(rec, viaHeader)
	res = httptest.NewRecorder()
	h.ServeHTTP(res, viaHeader)
	require.Equal(t, http.StatusNoContent, res.Code)

	form := url.Values{CSRFField: {token}}
	viaForm := httptest.NewRequest(http.MethodPost, "/design", strings.NewReader(form.Encode()))
	viaForm.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	cookiesFrom(rec, viaForm)
	res = httptest.NewRecorder()
	h.ServeHTTP(res, viaForm)
	require.Equal(t, http.StatusNoContent, res.Code)
}

func TestLocalePrecedence(t *testing.T) {
	t.Parallel()

	bundle, err := i18n.Default()
	require.NoError(t, err)

	var lang string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = Lang(r.Context(), "ko")
	}), Session(newStore(t)), Locale(bundle), VaryLocale)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "en", lang)
	require.Equal(t, "en", rec.Header().Get("Content-Language"))
	require.Contains(t, rec.Header().Values("Vary"), "Accept-Language")

	override := httptest.NewRequest(http.MethodGet, "/?hl=ko", nil)
	override.Header.Set("Accept-Language", "en")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, override)
	require.Equal(t, "ko", lang)

	// the stored choice outlives the query parameter
	follow := httptest.NewRequest(http.MethodGet, "/", nil)
	follow.Header.Set("Accept-Language", "en")
	cookiesFrom(rec, follow)
	h.ServeHTTP(httptest.NewRecorder(), follow)
	require.Equal(t, "ko", lang)

	unsupported := httptest.NewRequest(http.MethodGet, "/?hl=fr", nil)
	h.ServeHTTP(httptest.NewRecorder(), unsupported)
	require.Equal(t, "ko", lang)
}

func TestRequireHTMX(t *testing.T) {
	t.Parallel()

	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), HTMX, RequireHTMX)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nav", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/nav", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerEventAppends(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	TriggerEvent(rec, "auth-changed")
	require.Equal(t, "auth-changed", rec.Header().Get("HX-Trigger"))
	TriggerEvent(rec, "design-saved")
	require.Equal(t, "auth-changed, design-saved", rec.Header().Get("HX-Trigger"))
}

func TestRetargetSetsSwapHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Retarget(rec, "#form-errors", "innerHTML")
	require.Equal(t, "#form-errors", rec.Header().Get("HX-Retarget"))
	require.Equal(t, "innerHTML", rec.Header().Get("HX-Reswap"))
}
