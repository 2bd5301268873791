package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/inventory-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[int64]models.User

func (f fakeUsers) GetUserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, assert.AnError
	}
	return u, nil
}

var alice = models.User{ID: 7, Username: "alice", Email: "alice@example.com"}

func newManager(users fakeUsers) *SessionManager {
	return NewSessionManager(SessionOptions{
		Secret:      "test-secret",
		TTL:         time.Hour,
		RememberTTL: 48 * time.Hour,
	}, users)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", SessionCookieName)
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestIssueAndResolve(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, alice, false))
	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Zero(t, c.MaxAge, "browser-session cookie without remember")

	p, ok := m.Resolve(requestWith(c))
	require.True(t, ok)
	assert.Equal(t, Principal{ID: 7, Username: "alice", Email: "alice@example.com"}, p)
}

func TestIssue_RememberPersistsCookie(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, alice, true))
	c := sessionCookie(t, rec)
	assert.Equal(t, int((48 * time.Hour).Seconds()), c.MaxAge)
}

func TestResolve_Failures(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})

	_, ok := m.Resolve(requestWith(nil))
	assert.False(t, ok, "no cookie")

	_, ok = m.Resolve(requestWith(&http.Cookie{Name: SessionCookieName, Value: "garbage"}))
	assert.False(t, ok, "garbage token")

	other := NewSessionManager(SessionOptions{Secret: "other", TTL: time.Hour, RememberTTL: time.Hour}, fakeUsers{alice.ID: alice})
	rec := httptest.NewRecorder()
	require.NoError(t, other.Issue(rec, alice, false))
	_, ok = m.Resolve(requestWith(sessionCookie(t, rec)))
	assert.False(t, ok, "signed with another secret")

	gone := newManager(fakeUsers{})
	rec = httptest.NewRecorder()
	require.NoError(t, gone.Issue(rec, alice, false))
	_, ok = gone.Resolve(requestWith(sessionCookie(t, rec)))
	assert.False(t, ok, "user no longer exists")
}

func TestResolve_Expired(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})
	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, alice, false))
	c := sessionCookie(t, rec)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok := m.Resolve(requestWith(c))
	assert.False(t, ok)
}

func TestParseToken_RejectsUnsignedTokens(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})

	claims := &Claims{UserID: alice.ID, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ParseToken(tok)
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	m := newManager(nil)
	rec := httptest.NewRecorder()
	m.Clear(rec)
	c := sessionCookie(t, rec)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestRequireAuth(t *testing.T) {
	m := newManager(fakeUsers{alice.ID: alice})

	var denied bool
	deny := func(w http.ResponseWriter, r *http.Request) {
		denied = true
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
	var seen Principal
	protected := m.RequireAuth(deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, requestWith(nil))
	assert.True(t, denied)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	denied = false
	issue := httptest.NewRecorder()
	require.NoError(t, m.Issue(issue, alice, false))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, requestWith(sessionCookie(t, issue)))
	assert.False(t, denied)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.ID, seen.ID)

	// a stale cookie is cleared on the way to the login page
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, requestWith(&http.Cookie{Name: SessionCookieName, Value: "stale"}))
	assert.True(t, denied)
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)
}
