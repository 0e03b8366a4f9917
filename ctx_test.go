package authkit

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticationFromContext(t *testing.T) {
	_, ok := AuthenticationFromContext(nil) //nolint:staticcheck
	assert.False(t, ok)

	_, ok = AuthenticationFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithAuthentication(context.Background(), Authenticated("alice"))
	authn, ok := AuthenticationFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", authn.GetName())
	assert.True(t, authn.IsAuthenticated())
}

func TestWithAuthenticationNilContext(t *testing.T) {
	ctx := WithAuthentication(nil, Anonymous()) //nolint:staticcheck
	authn, ok := AuthenticationFromContext(ctx)
	assert.True(t, ok)
	assert.False(t, authn.IsAuthenticated())
}

func TestClaimsAuthenticationName(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{name: "subject", claims: jwt.MapClaims{"sub": "alice", "email": "a@example.com"}, want: "alice"},
		{name: "preferred username", claims: jwt.MapClaims{"preferred_username": "bob"}, want: "bob"},
		{name: "email fallback", claims: jwt.MapClaims{"email": "carol@example.com"}, want: "carol@example.com"},
		{name: "blank subject", claims: jwt.MapClaims{"sub": "  ", "username": "dave"}, want: "dave"},
		{name: "nothing usable", claims: jwt.MapClaims{"aud": "x"}, want: ""},
		{name: "nil claims", claims: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewClaimsAuthentication(tt.claims).GetName())
		})
	}

	assert.False(t, NewClaimsAuthentication(nil).IsAuthenticated())
	assert.True(t, NewClaimsAuthentication(jwt.MapClaims{}).IsAuthenticated())
}
