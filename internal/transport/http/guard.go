package http

import (
	"context"
	"net/http"
	"strings"

	"geodash/internal/token"
)

type sessionKey struct{}

func sessionInto(ctx context.Context, claims *token.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionKey{}, claims)
}

// SessionFrom returns the verified session placed in the context by
// RequireSession.
func SessionFrom(ctx context.Context) (*token.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionKey{}).(*token.SessionClaims)
	return claims, ok
}

// RequireSession guards the JSON API: no valid session cookie means 401, with
// no hint about why verification failed.
func RequireSession(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := tokens.FromRequest(r)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(sessionInto(r.Context(), claims)))
		})
	}
}

// Guard is the page-route interceptor. It runs a small state machine over two
// path classes and leaves every other path alone:
//
//	protected: no token -> redirect to login; invalid/expired -> redirect and
//	clear the cookie; valid -> pass through.
//	login entry: valid token -> redirect to the protected home; invalid ->
//	render login and clear the stale cookie; no token -> render login.
//
// The browser only ever sees a redirect; no rejection reason is surfaced.
type Guard struct {
	tokens          *token.Manager
	protectedPrefix string
	loginPath       string
}

func NewGuard(tokens *token.Manager, protectedPrefix, loginPath string) *Guard {
	return &Guard{
		tokens:          tokens,
		protectedPrefix: protectedPrefix,
		loginPath:       loginPath,
	}
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		switch {
		case path == g.protectedPrefix || strings.HasPrefix(path, g.protectedPrefix+"/"):
			claims, err := g.tokens.FromRequest(r)
			if err != nil {
				if _, cerr := r.Cookie(token.CookieName); cerr == nil {
					http.SetCookie(w, g.tokens.ClearCookie())
				}
				http.Redirect(w, r, g.loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(sessionInto(r.Context(), claims)))

		case path == g.loginPath:
			if _, cerr := r.Cookie(token.CookieName); cerr != nil {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := g.tokens.FromRequest(r); err == nil {
				http.Redirect(w, r, g.protectedPrefix, http.StatusFound)
				return
			}
			http.SetCookie(w, g.tokens.ClearCookie())
			next.ServeHTTP(w, r)

		default:
			next.ServeHTTP(w, r)
		}
	})
}
