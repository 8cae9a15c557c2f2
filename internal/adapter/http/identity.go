package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// Claims is the bearer token payload. The subject is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator turns HS256 bearer tokens into a domain.Actor.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for tokens signed with secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue signs a token for actor valid for ttl. Used by tests and tooling.
func (a *Authenticator) Issue(actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(a.secret)
}

// Authenticate validates a raw token and returns the actor it names.
func (a *Authenticator) Authenticate(raw string) (domain.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	return domain.Actor{ID: claims.Subject, Role: role}, nil
}

type actorKey struct{}

type identity struct {
	actor domain.Actor
	err   error
}

// Middleware resolves the bearer token of every request and stores the
// outcome in the request context. It never rejects a request itself so
// that the API docs stay reachable; operations call actorFrom.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity{err: domain.ErrUnauthenticated}

		if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && raw != "" {
			actor, err := a.Authenticate(raw)
			id = identity{actor: actor, err: err}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, id)))
	})
}

// WithActor returns a context that carries actor as the authenticated caller.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, identity{actor: actor})
}

// actorFrom returns the caller stored by Middleware or WithActor.
func actorFrom(ctx context.Context) (domain.Actor, error) {
	id, ok := ctx.Value(actorKey{}).(identity)
	if !ok {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	if id.err != nil {
		return domain.Actor{}, id.err
	}
	return id.actor, nil
}
