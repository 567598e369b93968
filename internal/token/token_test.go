package token

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestManager() *Manager {
	return NewManager("test-secret", 24*time.Hour, false)
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager()
	now := time.Now()

	raw, err := m.Issue(42, "test@example.com", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}

	wantExp := now.Add(24 * time.Hour).Unix()
	if got := claims.ExpiresAt.Unix(); got != wantExp {
		t.Errorf("exp = %d, want issuance + 24h (%d)", got, wantExp)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := newTestManager()
	raw, err := m.Issue(1, "a@b.c", time.Now().Add(-25*time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	other := NewManager("other-secret", 24*time.Hour, false)
	raw, err := other.Issue(1, "a@b.c", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestManager().Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token: err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsNonHMAC(t *testing.T) {
	// alg=none must never validate, whatever the payload says.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": 1,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := newTestManager().Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg=none token: err = %v, want ErrInvalidToken", err)
	}
}

func TestSessionCookie(t *testing.T) {
	m := newTestManager()
	c := m.SessionCookie("tok")

	if c.Name != CookieName || c.Value != "tok" {
		t.Fatalf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Error("cookie not http-only")
	}
	if c.Path != "/" {
		t.Errorf("path = %q, want /", c.Path)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("samesite = %v, want lax", c.SameSite)
	}
	if c.MaxAge != 24*60*60 {
		t.Errorf("max-age = %d, want 86400", c.MaxAge)
	}
	if c.Secure {
		t.Error("secure set outside production")
	}

	prod := NewManager("s", 24*time.Hour, true)
	if !prod.SessionCookie("tok").Secure {
		t.Error("secure not set in production")
	}
}

func TestFromRequest(t *testing.T) {
	m := newTestManager()
	raw, _ := m.Issue(7, "x@y.z", time.Now())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := m.FromRequest(r); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("no cookie: err = %v, want ErrInvalidToken", err)
	}

	r.AddCookie(m.SessionCookie(raw))
	claims, err := m.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("UserID = %d, want 7", claims.UserID)
	}
}
