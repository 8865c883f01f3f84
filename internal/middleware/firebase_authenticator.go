package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ReasonTokenRevoked indicates a token whose session was revoked in Firebase.
const ReasonTokenRevoked = "token_revoked"

// ErrTokenExpired is returned when the Firebase token has expired.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier is the part of the Firebase Admin auth client used here.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator signs members in with Firebase ID tokens.
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator wraps verifier, typically a *firebaseauth.Client.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies token and returns the member it belongs to.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
		return memberFromToken(verified), nil
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	case firebaseauth.IsIDTokenRevoked(err):
		return nil, NewAuthError(ReasonTokenRevoked, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}
}

// memberFromToken falls back to the e-mail's local part when the account has
// no display name.
func memberFromToken(tok *firebaseauth.Token) *User {
	claim := func(key string) string {
		s, _ := tok.Claims[key].(string)
		return strings.TrimSpace(s)
	}
	u := &User{UID: tok.UID, Email: claim("email"), DisplayName: claim("name")}
	if u.DisplayName == "" && u.Email != "" {
		u.DisplayName, _, _ = strings.Cut(u.Email, "@")
	}
	return u
}
