package messaging

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// Config holds the broker settings
type Config struct {
	Brokers            []string      `koanf:"brokers" json:"brokers"`
	DefaultDestination string        `koanf:"default_destination" json:"default_destination"`
	BatchSize          int           `koanf:"batch_size" json:"batch_size"`
	BatchTimeout       time.Duration `koanf:"batch_timeout" json:"batch_timeout"`
	WriteTimeout       time.Duration `koanf:"write_timeout" json:"write_timeout"`
	RequiredAcks       *int          `koanf:"required_acks" json:"required_acks"`
	Async              bool          `koanf:"async" json:"async"`
	Compression        string        `koanf:"compression" json:"compression"`
	TLS                bool          `koanf:"tls" json:"tls"`
	SASL               SASLConfig    `koanf:"sasl" json:"sasl"`
}

// SASLConfig holds broker authentication settings
type SASLConfig struct {
	Mechanism string `koanf:"mechanism" json:"mechanism"`
	Username  string `koanf:"username" json:"username"`
	Password  string `koanf:"password" json:"-"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Brokers, validation.Required),
		validation.Field(&c.Compression, validation.In("", "none", "gzip", "snappy", "lz4", "zstd")),
		validation.Field(&c.RequiredAcks, validation.In(-1, 0, 1)),
	)
}

// Option configures Components
type Option func(*Components)

// WithLogger sets the logger shared by the components
func WithLogger(logger Logger) Option {
	return func(c *Components) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConverter replaces the default SimpleConverter
func WithConverter(converter MessageConverter) Option {
	return func(c *Components) {
		if converter != nil {
			c.converter = converter
		}
	}
}

// WithWriter replaces the kafka writer built from Config
func WithWriter(writer Writer) Option {
	return func(c *Components) {
		if writer != nil {
			c.writer = writer
		}
	}
}

// WithHeaders adds header funcs applied to every sent message
func WithHeaders(fns ...HeaderFunc) Option {
	return func(c *Components) {
		c.headers = append(c.headers, fns...)
	}
}

// Components owns the converter, the sender and the writer they share
type Components struct {
	cfg       Config
	logger    Logger
	converter MessageConverter
	writer    Writer
	sender    Sender
	headers   []HeaderFunc

	closeOnce sync.Once
	closeErr  error
}

// New builds the components once. The returned Converter and Sender are
// shared by every caller.
func New(cfg Config, opts ...Option) (*Components, error) {
	c := &Components{
		cfg:    cfg,
		logger: nopLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.converter == nil {
		c.converter = SimpleConverter{}
	}

	if c.writer == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		writer, err := NewWriter(cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.writer = writer
	}

	c.sender = NewSender(c.writer, c.converter, cfg.DefaultDestination, c.logger, c.headers...)

	return c, nil
}

func (c *Components) Converter() MessageConverter {
	return c.converter
}

func (c *Components) Sender() Sender {
	return c.sender
}

// Close flushes and closes the writer. Later calls return the first result.
func (c *Components) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.writer.Close()
	})
	return c.closeErr
}

// NewWriter builds a kafka writer. Messages carry their own topic.
func NewWriter(cfg Config, logger Logger) (*kafka.Writer, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	transport := &kafka.Transport{}
	if cfg.TLS {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.SASL.Mechanism != "" {
		mechanism, err := saslMechanism(cfg.SASL)
		if err != nil {
			return nil, err
		}
		transport.SASL = mechanism
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	// unset waits for all replicas, 0 is fire and forget
	requiredAcks := int(kafka.RequireAll)
	if cfg.RequiredAcks != nil {
		requiredAcks = *cfg.RequiredAcks
	}

	var compression kafka.Compression
	switch strings.ToLower(cfg.Compression) {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "snappy", "":
		compression = kafka.Snappy
	case "none":
		compression = 0
	default:
		logger.Warn("unknown compression codec, defaulting to snappy", "codec", cfg.Compression)
		compression = kafka.Snappy
	}

	logger.Info("kafka writer created",
		"brokers", cfg.Brokers,
		"default_destination", cfg.DefaultDestination,
		"tls_enabled", cfg.TLS,
		"sasl_enabled", cfg.SASL.Mechanism != "",
	)

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequiredAcks(requiredAcks),
		Async:                  cfg.Async,
		Compression:            compression,
		Transport:              transport,
		AllowAutoTopicCreation: false,
	}, nil
}

func saslMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch strings.ToUpper(cfg.Mechanism) {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		mechanism, err := scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to create SCRAM-SHA-256 mechanism: %w", err)
		}
		return mechanism, nil
	case "SCRAM-SHA-512":
		mechanism, err := scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to create SCRAM-SHA-512 mechanism: %w", err)
		}
		return mechanism, nil
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
