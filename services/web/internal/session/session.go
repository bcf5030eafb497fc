// Package session issues and revokes the signed login cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/store"
)

const CookieName = "animehub_session"

// Revocations is a denylist of token ids that expire with the token.
type Revocations interface {
	auth.RevocationList
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

type Manager struct {
	secret      []byte
	ttl         time.Duration
	secure      bool
	revocations Revocations
	now         func() time.Time
}

func NewManager(secret []byte, ttl time.Duration, secure bool, revocations Revocations) (*Manager, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return &Manager{secret: secret, ttl: ttl, secure: secure, revocations: revocations, now: time.Now}, nil
}

func (m *Manager) verifier() auth.JWTVerifier { return auth.JWTVerifier{Secret: m.secret} }

// Middleware attaches the caller's identity when the cookie is valid.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return auth.Session(m.verifier(), CookieName, m.revocations)
}

// Issue signs a token for u and sets it as an HttpOnly cookie.
func (m *Manager) Issue(w http.ResponseWriter, u store.User) error {
	now := m.now().UTC()
	exp := now.Add(m.ttl)
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: u.Username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End revokes the request's session token, if any, and clears the cookie.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer m.clear(w)

	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims, err := m.verifier().Parse(c.Value)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revocations.Revoke(ctx, claims.ID, ttl)
}

func (m *Manager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
