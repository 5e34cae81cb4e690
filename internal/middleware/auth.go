package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is what an authenticated actor may do
type Role string

const (
	RoleGM     Role = "gm"
	RolePlayer Role = "player"
)

// Actor is the authenticated caller of a request
type Actor struct {
	Role        Role
	CharacterID string // players only
}

// IsGM reports whether the actor drives the game
func (a Actor) IsGM() bool {
	return a.Role == RoleGM
}

// Claims is the JWT payload issued at login
type Claims struct {
	Role        Role   `json:"role"`
	CharacterID string `json:"character_id,omitempty"`
	jwt.RegisteredClaims
}

type actorKey struct{}

// ErrInvalidToken is returned for missing, expired or forged tokens
var ErrInvalidToken = errors.New("invalid token")

// Authenticator issues and verifies actor tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates an HS256 authenticator
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token for the actor
func (a *Authenticator) IssueToken(actor Actor) (string, time.Time, error) {
	expires := time.Now().Add(a.ttl)
	claims := Claims{
		Role:        actor.Role,
		CharacterID: actor.CharacterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(actor.Role) + ":" + actor.CharacterID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies a token and returns its actor
func (a *Authenticator) ParseToken(raw string) (Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch claims.Role {
	case RoleGM:
		return Actor{Role: RoleGM}, nil
	case RolePlayer:
		if claims.CharacterID == "" {
			return Actor{}, fmt.Errorf("%w: player token without character", ErrInvalidToken)
		}
		return Actor{Role: RolePlayer, CharacterID: claims.CharacterID}, nil
	}
	return Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
}

// AuthMiddleware rejects requests without a valid token. Websocket clients
// may pass the token as the 'token' query parameter.
func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing token")
			return
		}

		actor, err := a.ParseToken(raw)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireGM rejects actors that are not the game master
func RequireGM(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok || !actor.IsGM() {
			writeAuthError(w, http.StatusForbidden, "game master only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by AuthMiddleware
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, msg)
}
