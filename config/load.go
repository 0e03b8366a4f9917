package config

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix scopes the environment variables read by Load. Nested keys use
// a double underscore, AUTHKIT_PERSISTENCE__DSN sets persistence.dsn.
const EnvPrefix = "AUTHKIT_"

const delim = "."

// Defaults returns the base layer applied before any other source
func Defaults() map[string]any {
	return map[string]any{
		"server.address":           ":8978",
		"server.app_name":          "authkit",
		"server.body_limit":        4 * 1024 * 1024,
		"server.read_timeout":      "10s",
		"server.write_timeout":     "10s",
		"auth.signing_method":      "HS256",
		"auth.auth_scheme":         "Bearer",
		"auth.required":            true,
		"persistence.driver":       "sqlite",
		"persistence.dsn":          "file:authkit.db?cache=shared",
		"persistence.auto_migrate": true,
		"logging.level":            "info",
		"logging.format":           "json",
		"messaging.batch_size":     100,
		"messaging.batch_timeout":  "1s",
		"messaging.write_timeout":  "10s",
		"messaging.required_acks":  -1,
		"messaging.compression":    "",
		"mail.mark_seen":           true,
		"mail.smtp.port":           587,
		"mail.smtp.retry_count":    3,
		"mail.smtp.retry_backoff":  "1s",
		"metrics.enabled":          true,
		"metrics.path":             "/metrics",
	}
}

// RegisterFlags adds the command line overrides understood by Load.
// Flag names are the configuration keys they override.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("server.address", "", "HTTP listen address")
	flags.String("persistence.driver", "", "database driver: sqlite or postgres")
	flags.String("persistence.dsn", "", "database connection string")
	flags.String("logging.level", "", "log level: debug, info, warn, error")
	flags.String("logging.format", "", "log encoding: json or console")
}

// Load builds a Config from defaults, the YAML file at path (optional),
// AUTHKIT_ environment variables and changed flags, in that order.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(Defaults(), delim), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if path = strings.TrimSpace(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config file").
				WithMetadata(map[string]any{
					"path": path,
				})
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config environment")
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, delim, k), nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to load config flags")
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", delim)
}
