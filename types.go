package authkit

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AuthConfig holds bearer token validation options
type AuthConfig interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetJWKSURL() string
	GetIssuer() string
	GetAuthScheme() string
	GetRequired() bool
}

// PersistenceConfig holds database options
type PersistenceConfig interface {
	GetDriver() string
	GetDSN() string
}

type defLogger struct{}

func (defLogger) Debug(string, ...any) {}
func (defLogger) Info(string, ...any)  {}
func (defLogger) Warn(string, ...any)  {}
func (defLogger) Error(string, ...any) {}
