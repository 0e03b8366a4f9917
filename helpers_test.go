package authkit_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-authkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type persistenceConfig struct {
	driver string
	dsn    string
}

func (c persistenceConfig) GetDriver() string { return c.driver }
func (c persistenceConfig) GetDSN() string    { return c.dsn }

type authConfig struct {
	signingKey string
	method     string
	jwksURL    string
	issuer     string
	scheme     string
	required   bool
}

func (c authConfig) GetSigningKey() string    { return c.signingKey }
func (c authConfig) GetSigningMethod() string { return c.method }
func (c authConfig) GetJWKSURL() string       { return c.jwksURL }
func (c authConfig) GetIssuer() string        { return c.issuer }
func (c authConfig) GetAuthScheme() string    { return c.scheme }
func (c authConfig) GetRequired() bool        { return c.required }

// newTestDB opens a private in-memory sqlite database with the schema applied
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := authkit.OpenDB(persistenceConfig{
		driver: authkit.DriverSQLite,
		dsn:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, authkit.Migrate(context.Background(), db))

	return db
}

func asUser(name string) context.Context {
	return authkit.WithAuthentication(context.Background(), authkit.Authenticated(name))
}

func seedUser(t *testing.T, users authkit.UserLogins, username string, active bool) *authkit.UserLogin {
	t.Helper()

	hash, err := authkit.HashPassword("password123")
	require.NoError(t, err)

	user, err := users.Save(asUser("seed"), &authkit.UserLogin{
		Username:     username,
		PasswordHash: hash,
		Active:       active,
	})
	require.NoError(t, err)

	return user
}
