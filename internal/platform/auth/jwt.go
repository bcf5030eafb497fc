package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Identity returns the caller encoded in the claims.
func (c *Claims) Identity() (Identity, error) {
	uid, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || uid <= 0 {
		return Identity{}, errors.New("invalid subject")
	}
	return Identity{UserID: uid, Username: c.Username}, nil
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RevocationList reports whether a token id was revoked before it expired.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Session reads the session cookie and, when it holds a valid unrevoked
// token, injects the caller's Identity. Anonymous requests pass through.
func Session(verifier JWTVerifier, cookieName string, revoked RevocationList) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || strings.TrimSpace(c.Value) == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Parse(c.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := claims.Identity()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if revoked != nil && claims.ID != "" {
				// Fail closed: an unreachable denylist treats the session as anonymous.
				if gone, err := revoked.IsRevoked(r.Context(), claims.ID); err != nil || gone {
					next.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser rejects anonymous requests using deny.
func RequireUser(deny http.HandlerFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
