package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-authkit"
	"github.com/goliatone/go-authkit/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ authkit.AuthConfig        = config.Auth{}
	_ authkit.PersistenceConfig = config.Persistence{}
)

const sampleYAML = `
server:
  address: ":9000"
auth:
  signing_key: secret
  issuer: authkit-test
persistence:
  driver: postgres
  dsn: postgres://localhost/authkit
mail:
  accounts:
    - name: support
      host: imap.example.com
      port: 993
      username: support
      password: pw
      tls: true
      timeout: 5s
  smtp:
    host: smtp.example.com
    from: noreply@example.com
messaging:
  brokers:
    - localhost:9092
  default_destination: events
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8978", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Persistence.GetDriver())
	assert.Equal(t, "HS256", cfg.Auth.GetSigningMethod())
	assert.True(t, cfg.Auth.GetRequired())
	assert.True(t, cfg.Mail.MarkSeen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.HasMessaging())
	assert.False(t, cfg.Mail.HasSMTP())
	require.NotNil(t, cfg.Messaging.RequiredAcks)
	assert.Equal(t, -1, *cfg.Messaging.RequiredAcks)
}

func TestLoadFile(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Auth.GetSigningKey())
	assert.Equal(t, "authkit-test", cfg.Auth.GetIssuer())
	assert.Equal(t, "postgres", cfg.Persistence.GetDriver())

	require.Len(t, cfg.Mail.Accounts, 1)
	assert.Equal(t, "support", cfg.Mail.Accounts[0].Name)
	assert.Equal(t, 993, cfg.Mail.Accounts[0].Port)
	assert.Equal(t, 5*time.Second, cfg.Mail.Accounts[0].Timeout)

	assert.True(t, cfg.Mail.HasSMTP())
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)

	assert.True(t, cfg.HasMessaging())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Messaging.Brokers)
	assert.Equal(t, "events", cfg.Messaging.DefaultDestination)

	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("AUTHKIT_SERVER__ADDRESS", ":7000")
	t.Setenv("AUTHKIT_AUTH__SIGNING_KEY", "from-env")

	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, "from-env", cfg.Auth.SigningKey)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	t.Setenv("AUTHKIT_PERSISTENCE__DSN", "file:env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--persistence.dsn", "file:flag.db"}))

	cfg, err := config.Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "file:flag.db", cfg.Persistence.DSN)
	assert.Equal(t, ":8978", cfg.Server.Address, "unchanged flags keep lower layers")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err, "no signing key or jwks url")
	assert.Contains(t, err.Error(), "signing_key")

	cfg.Auth.JWKSURL = "https://example.com/.well-known/jwks.json"
	assert.NoError(t, cfg.Validate())

	cfg.Persistence.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestValidateMailAccounts(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	cfg.Mail.Accounts[0].Host = ""
	assert.Error(t, cfg.Validate())
}
