package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/store"
)

var secret = []byte("session-secret-for-tests-0123456")

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(secret, time.Hour, false, NewMemoryRevocations())
	require.NoError(t, err)
	return m
}

func issuedCookie(t *testing.T, m *Manager, u store.User) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, m.Issue(rr, u))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func identityFor(m *Manager, c *http.Cookie) (auth.Identity, bool) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	var (
		id auth.Identity
		ok bool
	)
	m.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		id, ok = auth.IdentityFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)
	return id, ok
}

func TestNewManager_ShortSecret(t *testing.T) {
	_, err := NewManager([]byte("short"), time.Hour, false, nil)
	assert.Error(t, err)
}

func TestIssue_CookieAttributes(t *testing.T) {
	m := newManager(t)
	c := issuedCookie(t, m, store.User{ID: 3, Username: "alice"})

	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.NotEmpty(t, c.Value)
}

func TestIssueThenMiddleware(t *testing.T) {
	m := newManager(t)
	c := issuedCookie(t, m, store.User{ID: 3, Username: "alice"})

	id, ok := identityFor(m, c)
	require.True(t, ok)
	assert.Equal(t, auth.Identity{UserID: 3, Username: "alice"}, id)
}

func TestEnd_RevokesAndClears(t *testing.T) {
	m := newManager(t)
	c := issuedCookie(t, m, store.User{ID: 3, Username: "alice"})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(c)
	rr := httptest.NewRecorder()
	require.NoError(t, m.End(context.Background(), rr, req))

	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)

	_, ok := identityFor(m, c)
	assert.False(t, ok, "revoked cookie must not authenticate")
}

func TestEnd_WithoutCookie(t *testing.T) {
	m := newManager(t)
	rr := httptest.NewRecorder()
	require.NoError(t, m.End(context.Background(), rr, httptest.NewRequest(http.MethodPost, "/logout", nil)))
	assert.Len(t, rr.Result().Cookies(), 1)
}

func TestExpiredCookieIsAnonymous(t *testing.T) {
	m := newManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	c := issuedCookie(t, m, store.User{ID: 3, Username: "alice"})

	_, ok := identityFor(m, c)
	assert.False(t, ok)
}

func TestMemoryRevocations_Expire(t *testing.T) {
	r := NewMemoryRevocations()
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "a", time.Minute))
	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "b", time.Minute))
	assert.NotContains(t, r.revoked, "a")
}
