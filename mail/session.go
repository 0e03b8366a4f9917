package mail

import (
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultMailbox is used when a session does not name one
const DefaultMailbox = "INBOX"

// SessionConfig holds the settings of one IMAP account
type SessionConfig struct {
	Name     string        `koanf:"name" json:"name"`
	Host     string        `koanf:"host" json:"host"`
	Port     int           `koanf:"port" json:"port"`
	Username string        `koanf:"username" json:"username"`
	Password string        `koanf:"password" json:"-"`
	TLS      bool          `koanf:"tls" json:"tls"`
	Mailbox  string        `koanf:"mailbox" json:"mailbox"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout"`
}

// Validate will run validation rules
func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Username, validation.Required),
	)
}

func (c SessionConfig) mailbox() string {
	if strings.TrimSpace(c.Mailbox) == "" {
		return DefaultMailbox
	}
	return c.Mailbox
}

// Sessions is a named registry of mailbox settings
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]SessionConfig
}

// NewSessions registers every config under its name. Configs that fail
// validation are skipped and reported in the returned error.
func NewSessions(configs ...SessionConfig) (*Sessions, error) {
	s := &Sessions{sessions: map[string]SessionConfig{}}

	var errs validation.Errors
	for _, cfg := range configs {
		if err := s.Register(cfg); err != nil {
			if errs == nil {
				errs = validation.Errors{}
			}
			errs[cfg.Name] = err
		}
	}

	if errs != nil {
		return s, errs
	}

	return s, nil
}

// Register adds or replaces the session named cfg.Name
func (s *Sessions) Register(cfg SessionConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return goerrors.New("mail session name is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := cfg.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid mail session").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"session": cfg.Name,
			})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cfg.Name] = cfg

	return nil
}

// Lookup returns the named session or a MAIL_LOOKUP error
func (s *Sessions) Lookup(name string) (SessionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.sessions[strings.TrimSpace(name)]
	if !ok {
		return SessionConfig{}, lookupError(name)
	}

	return cfg, nil
}

// Names returns the registered session names in order
func (s *Sessions) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ReceiverFor looks up name and builds its receiver
func ReceiverFor(sessions *Sessions, name string, opts ...ReceiverOption) (Receiver, error) {
	cfg, err := sessions.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewReceiver(cfg, opts...), nil
}

// Directory hands out receivers by account name
type Directory struct {
	sessions *Sessions
	opts     []ReceiverOption
}

func NewDirectory(sessions *Sessions, opts ...ReceiverOption) *Directory {
	return &Directory{
		sessions: sessions,
		opts:     opts,
	}
}

func (d *Directory) Receiver(name string) (Receiver, error) {
	return ReceiverFor(d.sessions, name, d.opts...)
}

func (d *Directory) Names() []string {
	return d.sessions.Names()
}
