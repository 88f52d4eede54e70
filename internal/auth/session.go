package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// SessionCookieName is the cookie holding the sealed session.
const SessionCookieName = "bandavail_session"

// sessionMaxAge bounds the cookie lifetime; the refresh token usually
// outlives it.
const sessionMaxAge = 30 * 24 * time.Hour

// Session is the per-browser state of the web application.
type Session struct {
	// State and Verifier are set while an authorization is in flight.
	State    string `json:"state,omitempty"`
	Verifier string `json:"verifier,omitempty"`

	Credentials *Credentials `json:"credentials,omitempty"`
}

// Authenticated returns the session credentials when they are usable.
func (s *Session) Authenticated() (Credentials, bool) {
	if s == nil || s.Credentials == nil || !s.Credentials.Valid() {
		return Credentials{}, false
	}
	return *s.Credentials, true
}

// CookieStore loads and saves sessions in an encrypted cookie.
type CookieStore struct {
	cipher *Cipher
	secure bool
}

// NewCookieStore creates a store. secure sets the Secure cookie attribute.
func NewCookieStore(c *Cipher, secure bool) *CookieStore {
	return &CookieStore{cipher: c, secure: secure}
}

// Load returns the session carried by r. A missing cookie yields an empty
// session and no error; an undecodable cookie yields an empty session and
// the decode error so the caller can log it.
func (s *CookieStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return &Session{}, nil
	}
	if err != nil {
		return &Session{}, err
	}

	plaintext, err := s.cipher.Open(cookie.Value)
	if err != nil {
		return &Session{}, fmt.Errorf("failed to open session cookie: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(plaintext, &sess); err != nil {
		return &Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Save writes sess to the response.
func (s *CookieStore) Save(w http.ResponseWriter, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	value, err := s.cipher.Seal(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, s.cookie(value, int(sessionMaxAge.Seconds())))
	return nil
}

// Clear expires the session cookie.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
