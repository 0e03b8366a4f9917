package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-authkit/config"
	"github.com/goliatone/go-authkit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommandPrintsResolvedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9100\"\n"), 0o600))

	out, err := run(t, "config", "--config", path, "--logging.level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, ":9100")
	assert.NotContains(t, out, "signing_key")
}

func TestConfigCommandValidate(t *testing.T) {
	_, err := run(t, "config", "--validate", "--logging.level", "error")
	require.Error(t, err, "defaults carry no signing key")
}

func TestMigrateCommand(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "authkit.db")

	out, err := run(t, "migrate", "--persistence.dsn", dsn, "--logging.level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
}

func TestInboxUnknownAccount(t *testing.T) {
	_, err := run(t, "inbox", "support", "--logging.level", "error")
	require.Error(t, err)
}

func TestBuildAppServesRoutes(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	cfg.Persistence.DSN = "file:" + filepath.Join(t.TempDir(), "authkit.db")
	cfg.Auth.SigningKey = "test-key"
	cfg.Auth.Required = false

	logger := logging.Nop()
	db, err := openDatabase(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer db.Close()

	app, closeFn, err := buildApp(db, cfg, logger)
	require.NoError(t, err)
	defer closeFn()

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/mail/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
