// Package auth verifies caller identity and manages the admin capability.
//
// Identities arrive as HMAC-signed bearer tokens carrying the caller's
// email, identity provider and an optional admin claim, mirroring the
// custom-claims model of hosted identity providers. The admin allow-list is
// injected configuration, never compiled in.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is a verified caller.
type Identity struct {
	Subject  string
	Email    string
	Provider string
	Admin    bool
}

// tokenClaims is the bearer token payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Provider string `json:"provider"`
	Admin    bool   `json:"admin"`
}

// Verifier validates bearer tokens with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token, returning the caller identity.
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoToken
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %s", ErrInvalidToken, t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Provider: claims.Provider,
		Admin:    claims.Admin,
	}, nil
}

// SignToken mints a bearer token. Used by the seeder and by tests; the
// server itself only verifies.
func SignToken(secret, subject, email, provider string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    email,
		Provider: provider,
		Admin:    admin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Granter implements the one-time admin grant: an authenticated caller whose
// email is allow-listed and whose provider matches becomes an admin for the
// life of the process plus whatever their token already claims.
type Granter struct {
	mu       sync.RWMutex
	allowed  map[string]struct{}
	provider string
	granted  map[string]struct{} // subjects granted at runtime
}

// NewGranter builds a Granter from the injected allow-list and the required
// identity provider.
func NewGranter(allowedEmails []string, requiredProvider string) *Granter {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &Granter{
		allowed:  allowed,
		provider: requiredProvider,
		granted:  make(map[string]struct{}),
	}
}

// Grant records the admin capability for id. The caller must already be
// authenticated; this only checks the allow-list and provider constraints.
func (g *Granter) Grant(ctx context.Context, id Identity) error {
	if id.Provider != g.provider {
		return fmt.Errorf("%w: sign in with %s", ErrWrongProvider, g.provider)
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if _, ok := g.allowed[email]; !ok {
		return ErrNotAllowListed
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[id.Subject] = struct{}{}
	return nil
}

// IsAdmin reports whether id carries the admin capability, either via its
// token claim or a runtime grant.
func (g *Granter) IsAdmin(ctx context.Context, id Identity) bool {
	if id.Admin {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.granted[id.Subject]
	return ok
}
