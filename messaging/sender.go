package messaging

import (
	"context"
	"strings"

	"github.com/goliatone/go-authkit/metrics"
	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
)

// Writer is the broker writer, satisfied by *kafka.Writer
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sender converts payloads and hands them to the broker
type Sender interface {
	// Send delivers payload to the default destination
	Send(ctx context.Context, payload any) error
	SendTo(ctx context.Context, destination string, payload any) error
}

// HeaderFunc adds request scoped headers to every message
type HeaderFunc func(ctx context.Context) []kafka.Header

type brokerSender struct {
	writer      Writer
	converter   MessageConverter
	destination string
	headers     []HeaderFunc
	logger      Logger
}

// NewSender creates a Sender writing to writer. destination is used by Send.
func NewSender(writer Writer, converter MessageConverter, destination string, logger Logger, headers ...HeaderFunc) Sender {
	if converter == nil {
		converter = SimpleConverter{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &brokerSender{
		writer:      writer,
		converter:   converter,
		destination: destination,
		headers:     headers,
		logger:      logger,
	}
}

func (s *brokerSender) Send(ctx context.Context, payload any) error {
	return s.SendTo(ctx, s.destination, payload)
}

func (s *brokerSender) SendTo(ctx context.Context, destination string, payload any) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return goerrors.New("message destination is required", goerrors.CategoryBadInput).
			WithTextCode("MISSING_DESTINATION").
			WithCode(goerrors.CodeBadRequest)
	}

	msg, err := s.converter.ToMessage(payload)
	if err != nil {
		metrics.MessagesFailed.WithLabelValues(destination, "conversion").Inc()
		return err
	}

	msg.Topic = destination
	for _, fn := range s.headers {
		if fn == nil {
			continue
		}
		msg.Headers = append(msg.Headers, fn(ctx)...)
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		metrics.MessagesFailed.WithLabelValues(destination, "write").Inc()
		s.logger.Error("failed to write message", "destination", destination, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send message").
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"destination": destination,
			})
	}

	metrics.MessagesSent.WithLabelValues(destination).Inc()
	s.logger.Debug("message sent", "destination", destination, "bytes", len(msg.Value))

	return nil
}
