package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"

	"github.com/mrlokans/mycv/internal/config"
)

// SessionKeyUserID holds the signed-in user's id, or null after signout.
const SessionKeyUserID = "userId"

var ErrNoSessionKeys = errors.New("at least one session key is required")

// Session is the request-local key/value bag carried in the session cookie.
// It is decoded fresh for every request and never shared between requests.
type Session struct {
	values   map[string]any
	modified bool
}

func newSession(values map[string]any) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{values: values}
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key. Values must be JSON serializable.
func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.modified = true
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// maxExactJSONInt is the largest integer a JSON number decodes to without loss.
const maxExactJSONInt = 1 << 53

// UserID returns the signed-in user's id. ok is false when the key is
// missing or null. Zero is a valid id.
func (s *Session) UserID() (uint, bool) {
	v, ok := s.values[SessionKeyUserID]
	if !ok || v == nil {
		return 0, false
	}
	switch id := v.(type) {
	case float64:
		if id < 0 || id != math.Trunc(id) || id > maxExactJSONInt {
			return 0, false
		}
		return uint(id), true
	case json.Number:
		n, err := id.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return id, true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

// SetUserID marks the session as signed in.
func (s *Session) SetUserID(id uint) {
	s.Set(SessionKeyUserID, id)
}

// ClearUserID signs the session out, leaving userId null.
func (s *Session) ClearUserID() {
	s.Set(SessionKeyUserID, nil)
}

// Modified reports whether the session must be written back.
func (s *Session) Modified() bool {
	return s.modified
}

// SessionStore encodes sessions into signed and encrypted cookies.
// Nothing is kept server side.
type SessionStore struct {
	codecs     []securecookie.Codec
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewSessionStore derives one codec per key. The first key signs new
// cookies; every key is accepted when decoding so keys can be rotated.
func NewSessionStore(cfg config.Session) (*SessionStore, error) {
	if len(cfg.Keys) == 0 {
		return nil, ErrNoSessionKeys
	}
	name := cfg.CookieName
	if name == "" {
		name = config.DefaultSessionCookieName
	}

	codecs := make([]securecookie.Codec, 0, len(cfg.Keys))
	for _, key := range cfg.Keys {
		hashKey, err := deriveKey(key, "session-sign", 64)
		if err != nil {
			return nil, err
		}
		blockKey, err := deriveKey(key, "session-encrypt", 32)
		if err != nil {
			return nil, err
		}
		sc := securecookie.New(hashKey, blockKey)
		sc.SetSerializer(securecookie.JSONEncoder{})
		sc.MaxAge(int(cfg.MaxAge.Seconds()))
		codecs = append(codecs, sc)
	}

	return &SessionStore{
		codecs:     codecs,
		cookieName: name,
		maxAge:     cfg.MaxAge,
		secure:     cfg.Secure,
	}, nil
}

// deriveKey expands a configured secret into a fixed-size key.
func deriveKey(secret, purpose string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// CookieName returns the name of the session cookie.
func (s *SessionStore) CookieName() string {
	return s.cookieName
}

// Load decodes the session cookie. A missing, tampered, foreign or expired
// cookie yields an empty session.
func (s *SessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return newSession(nil)
	}
	values := make(map[string]any)
	if err := securecookie.DecodeMulti(s.cookieName, cookie.Value, &values, s.codecs...); err != nil {
		return newSession(nil)
	}
	return newSession(values)
}

// Save writes the session cookie with the newest key.
func (s *SessionStore) Save(w http.ResponseWriter, session *Session) error {
	encoded, err := securecookie.EncodeMulti(s.cookieName, session.values, s.codecs[0])
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     s.cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.maxAge > 0 {
		cookie.MaxAge = int(s.maxAge.Seconds())
		cookie.Expires = time.Now().Add(s.maxAge)
	}
	http.SetCookie(w, cookie)
	return nil
}

// GenerateSessionKey creates a random 32-byte key, hex encoded.
func GenerateSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
