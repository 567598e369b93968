// Package token issues and verifies the signed session tokens carried in the
// auth-token cookie. Tokens are never persisted; validity is signature plus
// expiry at verification time.
package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "auth-token"

var ErrInvalidToken = errors.New("invalid token")

type SessionClaims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Manager struct {
	signingKey   []byte
	ttl          time.Duration
	secureCookie bool
}

func NewManager(signingKey string, ttl time.Duration, secureCookie bool) *Manager {
	return &Manager{
		signingKey:   []byte(signingKey),
		ttl:          ttl,
		secureCookie: secureCookie,
	}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a session token for the user, valid for exactly the configured TTL.
func (m *Manager) Issue(userID int64, email string, now time.Time) (string, error) {
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
}

// Verify parses and validates a session token. Expired, tampered and
// non-HMAC tokens all collapse into ErrInvalidToken; callers never learn
// which check failed.
func (m *Manager) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", t.Method)
		}
		return m.signingKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SessionCookie wraps a signed token in the auth cookie: http-only, whole
// site path, same-site lax, secure in production.
func (m *Manager) SessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the auth cookie on the client.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest extracts and verifies the session from the request cookie.
func (m *Manager) FromRequest(r *http.Request) (*SessionClaims, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrInvalidToken
	}
	return m.Verify(c.Value)
}
