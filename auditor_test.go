package authkit_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authkit"
	"github.com/stretchr/testify/assert"
)

func TestCurrentAuditor(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		want   string
		wantOK bool
	}{
		{
			name: "nil context",
			ctx:  nil,
		},
		{
			name: "no authentication",
			ctx:  context.Background(),
		},
		{
			name: "anonymous",
			ctx:  authkit.WithAuthentication(context.Background(), authkit.Anonymous()),
		},
		{
			name: "blank name",
			ctx:  authkit.WithAuthentication(context.Background(), authkit.Authenticated("  ")),
		},
		{
			name:   "authenticated user",
			ctx:    asUser("alice"),
			want:   "alice",
			wantOK: true,
		},
		{
			name:   "token claims",
			ctx:    authkit.WithAuthentication(context.Background(), authkit.NewClaimsAuthentication(jwt.MapClaims{"sub": "svc-1"})),
			want:   "svc-1",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := authkit.CurrentAuditor(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuditorFunc(t *testing.T) {
	var aware authkit.AuditorAware = authkit.AuditorFunc(func(context.Context) (string, bool) {
		return "system", true
	})

	got, ok := aware.CurrentAuditor(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "system", got)
}

func TestAuditorHeaders(t *testing.T) {
	assert.Empty(t, authkit.AuditorHeaders(context.Background()))

	headers := authkit.AuditorHeaders(asUser("alice"))
	if assert.Len(t, headers, 1) {
		assert.Equal(t, "auditor", headers[0].Key)
		assert.Equal(t, "alice", string(headers[0].Value))
	}
}
