package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName is the name of the admin session cookie.
const CookieName = "uwuntu.sid"

// ErrInvalidCookie is returned for malformed or tampered cookie values.
var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec signs session IDs with HMAC-SHA256 so a forged ID is rejected
// before any store lookup. The cookie value is "{id}.{signature}".
type CookieCodec struct {
	secret []byte
	secure bool
}

// NewCookieCodec creates a codec. secure sets the Secure cookie attribute.
func NewCookieCodec(secret string, secure bool) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), secure: secure}
}

func (c *CookieCodec) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode returns the signed cookie value for a session ID.
func (c *CookieCodec) Encode(id string) string {
	return id + "." + c.sign(id)
}

// Decode verifies a cookie value and returns the session ID.
func (c *CookieCodec) Decode(value string) (string, error) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" || sig == "" {
		return "", ErrInvalidCookie
	}

	if !hmac.Equal([]byte(sig), []byte(c.sign(id))) {
		return "", ErrInvalidCookie
	}

	return id, nil
}

// SetCookie writes the session cookie for s.
func (c *CookieCodec) SetCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    c.Encode(s.ID),
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (c *CookieCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID extracts and verifies the session ID from the request cookie.
func (c *CookieCodec) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrInvalidCookie
	}
	return c.Decode(cookie.Value)
}
