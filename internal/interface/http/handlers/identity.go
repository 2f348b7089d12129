package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/langquest/langquest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTITY MIDDLEWARE
// Resolves the caller from an HS256 bearer token issued by the identity
// provider. Requests without a token pass through anonymously; each use case
// decides whether it needs an identity.
// ══════════════════════════════════════════════════════════════════════════════

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. The subject is the user id.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens.
type Authenticator struct {
	secret []byte
	leeway time.Duration
}

// NewAuthenticator creates an Authenticator for the shared HS256 secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}
}

// Identify returns the caller of r. A request without Authorization header
// yields the zero Identity and no error.
func (a *Authenticator) Identify(r *http.Request) (shared.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return shared.Identity{}, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return shared.Identity{}, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return shared.Identity{}, fmt.Errorf("%w: token has expired", ErrInvalidToken)
		}
		return shared.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return shared.Identity{}, ErrInvalidToken
	}

	return shared.Identity{
		UserID:    shared.UserID(claims.Subject),
		FirstName: claims.Name,
		ImageURL:  claims.Picture,
	}, nil
}

// Middleware stores the resolved identity in the request context. Invalid
// tokens are rejected with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Identify(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeRawJSON(w, http.StatusUnauthorized, `{"success":false,"error":{"code":"unauthorized","message":"Invalid token"}}`)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// IssueToken signs a token for identity. Used by the admin CLI and tests.
func IssueToken(secret string, identity shared.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:    identity.FirstName,
		Picture: identity.ImageURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity shared.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller, or the zero Identity when anonymous.
func IdentityFromContext(ctx context.Context) shared.Identity {
	identity, _ := ctx.Value(identityKey{}).(shared.Identity)
	return identity
}
