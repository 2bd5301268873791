package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/inventory-tracker/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "session"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID       int64
	Username string
	Email    string
}

// PrincipalResolver loads the user behind a session on every request.
type PrincipalResolver interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// Claims defines the session token claims. Only the user id is trusted; the
// rest of the principal is reloaded from the database.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// SessionManager issues, verifies and clears session cookies.
type SessionManager struct {
	key         []byte
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	users       PrincipalResolver
	now         func() time.Time
}

// SessionOptions configures a SessionManager.
type SessionOptions struct {
	Secret      string
	TTL         time.Duration // browser-session lifetime of the token
	RememberTTL time.Duration // lifetime when "remember me" is checked
	Secure      bool          // set the Secure cookie flag
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(opts SessionOptions, users PrincipalResolver) *SessionManager {
	return &SessionManager{
		key:         []byte(opts.Secret),
		ttl:         opts.TTL,
		rememberTTL: opts.RememberTTL,
		secure:      opts.Secure,
		users:       users,
		now:         time.Now,
	}
}

// Issue signs a token for user and sets the session cookie. With remember
// set the cookie persists across browser restarts.
func (m *SessionManager) Issue(w http.ResponseWriter, user models.User, remember bool) error {
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	now := m.now()
	expires := now.Add(ttl)

	claims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return fmt.Errorf("failed to sign session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = expires
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseToken validates a session token and returns the user id it carries.
func (m *SessionManager) ParseToken(tokenStr string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, errors.New("invalid session token")
	}
	return claims.UserID, nil
}

// Resolve returns the principal for the request's session, or false when the
// cookie is missing, invalid, expired, or names a user that no longer exists.
func (m *SessionManager) Resolve(r *http.Request) (Principal, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Principal{}, false
	}

	userID, err := m.ParseToken(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session token")
		return Principal{}, false
	}

	user, err := m.users.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Session user could not be loaded")
		return Principal{}, false
	}
	return Principal{ID: user.ID, Username: user.Username, Email: user.Email}, true
}
