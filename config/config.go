package config

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-authkit/logging"
	"github.com/goliatone/go-authkit/mail"
	"github.com/goliatone/go-authkit/messaging"
)

// Config is the full application configuration
type Config struct {
	Server      Server           `koanf:"server" json:"server"`
	Auth        Auth             `koanf:"auth" json:"auth"`
	Persistence Persistence      `koanf:"persistence" json:"persistence"`
	Logging     logging.Config   `koanf:"logging" json:"logging"`
	Messaging   messaging.Config `koanf:"messaging" json:"messaging"`
	Mail        Mail             `koanf:"mail" json:"mail"`
	Metrics     Metrics          `koanf:"metrics" json:"metrics"`
}

// Server holds the HTTP listener options
type Server struct {
	Address      string        `koanf:"address" json:"address"`
	AppName      string        `koanf:"app_name" json:"app_name"`
	BodyLimit    int           `koanf:"body_limit" json:"body_limit"`
	ReadTimeout  time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout"`
}

// Auth holds bearer token options
type Auth struct {
	SigningKey    string `koanf:"signing_key" json:"-"`
	SigningMethod string `koanf:"signing_method" json:"signing_method"`
	JWKSURL       string `koanf:"jwks_url" json:"jwks_url"`
	Issuer        string `koanf:"issuer" json:"issuer"`
	AuthScheme    string `koanf:"auth_scheme" json:"auth_scheme"`
	Required      bool   `koanf:"required" json:"required"`
}

func (a Auth) GetSigningKey() string    { return a.SigningKey }
func (a Auth) GetSigningMethod() string { return a.SigningMethod }
func (a Auth) GetJWKSURL() string       { return a.JWKSURL }
func (a Auth) GetIssuer() string        { return a.Issuer }
func (a Auth) GetAuthScheme() string    { return a.AuthScheme }
func (a Auth) GetRequired() bool        { return a.Required }

// Validate requires either a signing key or a JWKS URL
func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.By(func(any) error {
			if strings.TrimSpace(a.SigningKey) == "" && strings.TrimSpace(a.JWKSURL) == "" {
				return errors.New("signing_key or jwks_url is required")
			}
			return nil
		})),
		validation.Field(&a.SigningMethod, validation.In("HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512")),
	)
}

// Persistence holds database options
type Persistence struct {
	Driver      string `koanf:"driver" json:"driver"`
	DSN         string `koanf:"dsn" json:"-"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate"`
}

func (p Persistence) GetDriver() string { return p.Driver }
func (p Persistence) GetDSN() string    { return p.DSN }

// Validate will run validation rules
func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In("sqlite", "sqlite3", "postgres", "postgresql", "pgx")),
		validation.Field(&p.DSN, validation.Required),
	)
}

// Mail groups the IMAP accounts and the SMTP relay
type Mail struct {
	Accounts []mail.SessionConfig `koanf:"accounts" json:"accounts"`
	SMTP     mail.SMTPConfig      `koanf:"smtp" json:"smtp"`
	MarkSeen bool                 `koanf:"mark_seen" json:"mark_seen"`
}

// HasSMTP reports whether an SMTP relay is configured
func (m Mail) HasSMTP() bool {
	return strings.TrimSpace(m.SMTP.Host) != ""
}

// Validate checks every configured account and, when set, the relay
func (m Mail) Validate() error {
	errs := validation.Errors{}
	for _, account := range m.Accounts {
		if err := account.Validate(); err != nil {
			errs["accounts."+account.Name] = err
		}
	}
	if m.HasSMTP() {
		if err := m.SMTP.Validate(); err != nil {
			errs["smtp"] = err
		}
	}
	return errs.Filter()
}

// Metrics holds the prometheus endpoint options
type Metrics struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Path    string `koanf:"path" json:"path"`
}

// HasMessaging reports whether a broker is configured
func (c *Config) HasMessaging() bool {
	return len(c.Messaging.Brokers) > 0
}

// Validate will run validation rules
func (c *Config) Validate() error {
	errs := validation.Errors{
		"server":      validation.ValidateStruct(&c.Server, validation.Field(&c.Server.Address, validation.Required)),
		"auth":        c.Auth.Validate(),
		"persistence": c.Persistence.Validate(),
		"logging":     c.Logging.Validate(),
		"mail":        c.Mail.Validate(),
	}
	if c.HasMessaging() {
		errs["messaging"] = c.Messaging.Validate()
	}
	return errs.Filter()
}
