package authkit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func newAuthApp(cfg authkit.AuthConfig) *fiber.App {
	app := authkit.NewApp(nil)
	app.Use(authkit.NewAuthMiddleware(cfg, nil))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		auditor, ok := authkit.CurrentAuditor(c.UserContext())
		return c.JSON(fiber.Map{"auditor": auditor, "authenticated": ok})
	})
	app.Get("/private", authkit.RequireAuthentication(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	app := newAuthApp(authConfig{signingKey: testSigningKey, required: true})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSigningKey, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, "alice", body["auditor"])
	assert.Equal(t, true, body["authenticated"])
}

func TestAuthMiddlewareRequiredWithoutToken(t *testing.T) {
	app := newAuthApp(authConfig{signingKey: testSigningKey, required: true})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, authkit.TextCodeMissingToken, body["text_code"])
}

func TestAuthMiddlewareRejectsBadSignature(t *testing.T) {
	app := newAuthApp(authConfig{signingKey: testSigningKey, required: true})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "another-key", jwt.MapClaims{"sub": "mallory"}))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, authkit.TextCodeInvalidToken, body["text_code"])
}

func TestAuthMiddlewareIssuer(t *testing.T) {
	app := newAuthApp(authConfig{signingKey: testSigningKey, issuer: "authkit", required: true})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSigningKey, jwt.MapClaims{"sub": "alice", "iss": "elsewhere"}))

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAuthMiddlewareOptional(t *testing.T) {
	app := newAuthApp(authConfig{signingKey: testSigningKey, required: false})

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, "", body["auditor"])
	assert.Equal(t, false, body["authenticated"])

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "a malformed header is still rejected")
}
