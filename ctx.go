package authkit

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var authCtxKey = &contextKey{"authentication"}

type contextKey struct {
	name string
}

// Authentication is the principal attached to a request
type Authentication interface {
	IsAuthenticated() bool
	GetName() string
}

// WithAuthentication sets the Authentication in the given context
func WithAuthentication(ctx context.Context, authn Authentication) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, authCtxKey, authn)
}

// AuthenticationFromContext finds the Authentication in the context.
func AuthenticationFromContext(ctx context.Context) (Authentication, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(authCtxKey).(Authentication)
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

// UsernameAuthentication is an explicit principal, mostly useful for
// background jobs and tests.
type UsernameAuthentication struct {
	Name          string
	Authenticated bool
}

// Authenticated returns an authenticated principal with the given name
func Authenticated(name string) UsernameAuthentication {
	return UsernameAuthentication{Name: name, Authenticated: true}
}

// Anonymous returns a principal that is not authenticated
func Anonymous() UsernameAuthentication {
	return UsernameAuthentication{Name: "anonymous"}
}

func (a UsernameAuthentication) IsAuthenticated() bool {
	return a.Authenticated
}

func (a UsernameAuthentication) GetName() string {
	return a.Name
}

// ClaimsAuthentication wraps validated JWT claims
type ClaimsAuthentication struct {
	Claims jwt.MapClaims
}

// NewClaimsAuthentication creates an Authentication from validated claims
func NewClaimsAuthentication(claims jwt.MapClaims) ClaimsAuthentication {
	return ClaimsAuthentication{Claims: claims}
}

func (a ClaimsAuthentication) IsAuthenticated() bool {
	return a.Claims != nil
}

// GetName returns the subject, falling back to username style claims
func (a ClaimsAuthentication) GetName() string {
	if a.Claims == nil {
		return ""
	}

	if sub, err := a.Claims.GetSubject(); err == nil && strings.TrimSpace(sub) != "" {
		return sub
	}

	for _, key := range []string{"preferred_username", "username", "email"} {
		if v, ok := a.Claims[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
