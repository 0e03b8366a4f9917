package mail

import (
	"context"
	"crypto/tls"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-authkit/metrics"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

const maxRetryBackoff = 32 * time.Second

// SMTPConfig holds the outgoing mail settings
type SMTPConfig struct {
	Host               string        `koanf:"host" json:"host"`
	Port               int           `koanf:"port" json:"port"`
	Username           string        `koanf:"username" json:"username"`
	Password           string        `koanf:"password" json:"-"`
	From               string        `koanf:"from" json:"from"`
	FromName           string        `koanf:"from_name" json:"from_name"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify" json:"insecure_skip_verify"`
	RetryCount         int           `koanf:"retry_count" json:"retry_count"`
	RetryBackoff       time.Duration `koanf:"retry_backoff" json:"retry_backoff"`
}

// Validate will run validation rules
func (c SMTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.From, validation.Required),
	)
}

// Dialer delivers composed messages
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers outgoing mail
type Sender interface {
	Send(ctx context.Context, envelope Envelope) error
}

// SenderOption configures the SMTP sender
type SenderOption func(*smtpSender)

// WithSenderLogger sets the sender logger
func WithSenderLogger(logger Logger) SenderOption {
	return func(s *smtpSender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSMTPDialer replaces the gomail dialer
func WithSMTPDialer(d Dialer) SenderOption {
	return func(s *smtpSender) {
		if d != nil {
			s.dialer = d
		}
	}
}

type smtpSender struct {
	cfg     SMTPConfig
	dialer  Dialer
	logger  Logger
	retries int
	backoff time.Duration
}

// NewSender creates an SMTP sender with bounded retries and exponential backoff
func NewSender(cfg SMTPConfig, opts ...SenderOption) Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	s := &smtpSender{
		cfg:     cfg,
		dialer:  d,
		logger:  nopLogger{},
		retries: cfg.RetryCount,
		backoff: cfg.RetryBackoff,
	}

	if s.retries < 0 {
		s.retries = 0
	}
	if s.backoff <= 0 {
		s.backoff = 100 * time.Millisecond
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *smtpSender) compose(envelope Envelope) *gomail.Message {
	msg := gomail.NewMessage()
	if s.cfg.FromName != "" {
		msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		msg.SetHeader("From", s.cfg.From)
	}
	msg.SetHeader("To", envelope.To...)
	if len(envelope.Cc) > 0 {
		msg.SetHeader("Cc", envelope.Cc...)
	}
	if len(envelope.Bcc) > 0 {
		msg.SetHeader("Bcc", envelope.Bcc...)
	}
	msg.SetHeader("Subject", envelope.Subject)

	contentType := "text/plain"
	if envelope.HTML {
		contentType = "text/html"
	}
	msg.SetBody(contentType, envelope.Body)

	return msg
}

func (s *smtpSender) Send(ctx context.Context, envelope Envelope) error {
	if len(envelope.To)+len(envelope.Cc)+len(envelope.Bcc) == 0 {
		return goerrors.New("mail has no receivers", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	msg := s.compose(envelope)
	backoff := s.backoff

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.logger.Info("mail sent", "host", s.cfg.Host, "receivers", len(envelope.To), "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.cfg.Host).Inc()
			return nil
		}

		lastErr = err
		if attempt == s.retries {
			break
		}

		s.logger.Warn("mail send attempt failed", "attempt", attempt+1, "error", err, "retry_in", backoff.String())

		select {
		case <-ctx.Done():
			metrics.MailSendFailure.WithLabelValues(s.cfg.Host).Inc()
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}

	metrics.MailSendFailure.WithLabelValues(s.cfg.Host).Inc()
	s.logger.Error("mail delivery failed", "host", s.cfg.Host, "attempts", s.retries+1, "error", lastErr)

	return goerrors.Wrap(lastErr, goerrors.CategoryOperation, "failed to deliver mail").
		WithTextCode(TextCodeDelivery).
		WithCode(goerrors.CodeInternal).
		WithMetadata(map[string]any{
			"host":     s.cfg.Host,
			"attempts": s.retries + 1,
		})
}
