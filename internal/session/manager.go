package session

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
)

const (
	defaultCookieName  = "uniform_session"
	defaultLifetime    = 7 * 24 * time.Hour
	defaultIdleTimeout = 24 * time.Hour
	csrfTokenBytes     = 32
)

// ErrExpired indicates the stored session is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// User is the signed-in member. Its presence is what switches the menu.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// Data is the cookie payload. It only carries identity, the CSRF token and the
// language choice; designs and images never go into the cookie.
type Data struct {
	ID        string    `json:"id"`
	Issued    time.Time `json:"iat"`
	Seen      time.Time `json:"seen"`
	Expires   time.Time `json:"exp"`
	CSRFToken string    `json:"csrf,omitempty"`
	User      *User     `json:"user,omitempty"`
	Locale    string    `json:"hl,omitempty"`
}

func (d Data) expired(now time.Time, idle time.Duration) bool {
	if !d.Expires.IsZero() && now.After(d.Expires) {
		return true
	}
	seen := d.Seen
	if seen.IsZero() {
		seen = d.Issued
	}
	return !seen.IsZero() && now.Sub(seen) > idle
}

// Session is the per-request view of the cookie payload.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
}

// Config controls cookie encoding and lifecycle limits for the session manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager stores sessions in a signed cookie, encrypted when a block key is set.
type Manager struct {
	codec    *securecookie.SecureCookie
	template http.Cookie
	lifetime time.Duration
	idle     time.Duration
	now      func() time.Time
}

// NewManager validates cfg and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	if n := len(cfg.BlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	m := &Manager{
		lifetime: cfg.Lifetime,
		idle:     cfg.IdleTimeout,
		now:      cfg.Now,
		template: http.Cookie{
			Name:     cfg.CookieName,
			Path:     cfg.CookiePath,
			Secure:   cfg.CookieSecure,
			HttpOnly: true,
			SameSite: cfg.CookieSameSite,
		},
	}
	if m.template.Name == "" {
		m.template.Name = defaultCookieName
	}
	if m.template.Path == "" {
		m.template.Path = "/"
	}
	if m.template.SameSite == http.SameSiteDefaultMode {
		m.template.SameSite = http.SameSiteLaxMode
	}
	if m.lifetime <= 0 {
		m.lifetime = defaultLifetime
	}
	if m.idle <= 0 {
		m.idle = defaultIdleTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.codec = securecookie.New(cfg.HashKey, cfg.BlockKey)
	m.codec.SetSerializer(securecookie.JSONEncoder{})
	m.codec.MaxAge(int(m.lifetime / time.Second))
	return m, nil
}

// DevelopmentKey returns a random hash key for local runs. Sessions do not
// survive a restart with it.
func DevelopmentKey() []byte {
	return securecookie.GenerateRandomKey(32)
}

// Load returns the visitor's session. A missing or undecodable cookie yields
// a fresh session; an expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.template.Name)
	if err != nil {
		return m.New(), nil
	}
	var data Data
	if err := m.codec.Decode(m.template.Name, cookie.Value, &data); err != nil || data.ID == "" {
		return m.New(), nil
	}
	if data.expired(m.now().UTC(), m.idle) {
		return nil, ErrExpired
	}
	return &Session{data: data}, nil
}

// Save writes the session cookie, or clears it when the session was destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.now().UTC()
	sess.Touch(now)
	value, err := m.codec.Encode(m.template.Name, sess.data)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	c := m.template
	c.Value = value
	if exp := sess.data.Expires; !exp.IsZero() {
		c.Expires = exp
		c.MaxAge = -1
		if left := exp.Sub(now).Round(time.Second); left > 0 {
			c.MaxAge = int(left / time.Second)
		}
	}
	http.SetCookie(w, &c)
	sess.dirty = false
	return nil
}

// Destroy clears the session cookie on w.
func (m *Manager) Destroy(w http.ResponseWriter) {
	c := m.template
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, &c)
}

// New returns an anonymous session that has not been saved yet.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		data: Data{
			ID:      ulid.Make().String(),
			Issued:  now,
			Seen:    now,
			Expires: now.Add(m.lifetime),
		},
		dirty: true,
	}
}

// ID returns the stable session identifier.
func (s *Session) ID() string { return s.data.ID }

// ExpiresAt returns the absolute expiry.
func (s *Session) ExpiresAt() time.Time { return s.data.Expires }

// EnsureCSRFToken returns the session's CSRF token, creating it on first use.
func (s *Session) EnsureCSRFToken() (string, error) {
	if s.data.CSRFToken != "" {
		return s.data.CSRFToken, nil
	}
	key := securecookie.GenerateRandomKey(csrfTokenBytes)
	if key == nil {
		return "", errors.New("session: generate csrf token")
	}
	s.data.CSRFToken = base64.RawURLEncoding.EncodeToString(key)
	s.dirty = true
	return s.data.CSRFToken, nil
}

// CSRFToken returns the stored CSRF token value.
func (s *Session) CSRFToken() string { return s.data.CSRFToken }

// User returns the signed-in user, if any.
func (s *Session) User() *User { return s.data.User }

// LoggedIn reports whether a user is attached.
func (s *Session) LoggedIn() bool { return s != nil && s.data.User != nil && s.data.User.UID != "" }

// SetUser replaces the signed-in user. Passing nil signs out.
func (s *Session) SetUser(user *User) {
	cur := s.data.User
	if (cur == nil && user == nil) || (cur != nil && user != nil && *cur == *user) {
		return
	}
	s.data.User = nil
	if user != nil {
		u := *user
		s.data.User = &u
	}
	s.dirty = true
}

// Locale returns the explicit language choice stored for this visitor.
func (s *Session) Locale() string { return s.data.Locale }

// SetLocale stores an explicit language choice.
func (s *Session) SetLocale(lang string) {
	if s.data.Locale != lang {
		s.data.Locale = lang
		s.dirty = true
	}
}

// Destroy marks the session for deletion when it is saved.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	if now.UTC().After(s.data.Seen) {
		s.data.Seen = now.UTC()
		s.dirty = true
	}
}

// Dirty reports whether the session changed since it was loaded or saved.
func (s *Session) Dirty() bool { return s.dirty }
