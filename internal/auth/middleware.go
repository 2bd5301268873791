package auth

import (
	"context"
	"net/http"
)

type contextKey string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey = contextKey("principal")

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom returns the principal stored by RequireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

// RequireAuth creates a middleware for protecting routes. Requests without a
// resolvable principal get a cleared cookie and are handed to deny.
func (m *SessionManager) RequireAuth(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.Resolve(r)
			if !ok {
				if _, err := r.Cookie(SessionCookieName); err == nil {
					m.Clear(w)
				}
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
