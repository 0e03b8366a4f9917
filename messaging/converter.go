package messaging

import (
	"fmt"

	"github.com/goccy/go-json"
	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderContentType = "content-type"
	HeaderMessageType = "message-type"
	HeaderAuditor     = "auditor"
)

// Message types carried in the message-type header
const (
	TypeText  = "text"
	TypeBytes = "bytes"
	TypeMap   = "map"
	TypeJSON  = "json"
)

const (
	ContentTypeText  = "text/plain"
	ContentTypeBytes = "application/octet-stream"
	ContentTypeJSON  = "application/json"
)

const TextCodeConversion = "MESSAGE_CONVERSION"

// MessageConverter maps payloads to broker messages and back
type MessageConverter interface {
	ToMessage(payload any) (kafka.Message, error)
	FromMessage(msg kafka.Message) (any, error)
}

// SimpleConverter handles strings as text messages, byte slices as bytes
// messages and map[string]any as JSON map messages. Any other payload is a
// conversion error.
type SimpleConverter struct{}

var _ MessageConverter = SimpleConverter{}

func (SimpleConverter) ToMessage(payload any) (kafka.Message, error) {
	switch v := payload.(type) {
	case string:
		return newMessage([]byte(v), TypeText, ContentTypeText), nil
	case []byte:
		return newMessage(v, TypeBytes, ContentTypeBytes), nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return kafka.Message{}, conversionError(err, "failed to encode map payload", payload)
		}
		return newMessage(data, TypeMap, ContentTypeJSON), nil
	default:
		return kafka.Message{}, conversionError(nil, "unsupported payload type", payload)
	}
}

func (SimpleConverter) FromMessage(msg kafka.Message) (any, error) {
	switch messageType(msg) {
	case TypeText:
		return string(msg.Value), nil
	case TypeBytes:
		return msg.Value, nil
	case TypeMap, TypeJSON:
		out := map[string]any{}
		if err := json.Unmarshal(msg.Value, &out); err != nil {
			return nil, conversionError(err, "failed to decode map message", nil)
		}
		return out, nil
	default:
		return nil, conversionError(nil, "unknown message type", nil)
	}
}

// JSONConverter encodes any payload as JSON. FromMessage decodes into the
// value returned by New, or into map[string]any when New is nil.
type JSONConverter struct {
	New func() any
}

var _ MessageConverter = JSONConverter{}

func (c JSONConverter) ToMessage(payload any) (kafka.Message, error) {
	if payload == nil {
		return kafka.Message{}, conversionError(nil, "payload is required", payload)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, conversionError(err, "failed to encode payload", payload)
	}

	return newMessage(data, TypeJSON, ContentTypeJSON), nil
}

func (c JSONConverter) FromMessage(msg kafka.Message) (any, error) {
	if c.New == nil {
		out := map[string]any{}
		if err := json.Unmarshal(msg.Value, &out); err != nil {
			return nil, conversionError(err, "failed to decode message", nil)
		}
		return out, nil
	}

	out := c.New()
	if err := json.Unmarshal(msg.Value, out); err != nil {
		return nil, conversionError(err, "failed to decode message", nil)
	}
	return out, nil
}

func newMessage(value []byte, messageType, contentType string) kafka.Message {
	return kafka.Message{
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderMessageType, Value: []byte(messageType)},
			{Key: HeaderContentType, Value: []byte(contentType)},
		},
	}
}

// Header returns the value of the first header named key
func Header(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func messageType(msg kafka.Message) string {
	if t, ok := Header(msg, HeaderMessageType); ok {
		return t
	}

	ct, _ := Header(msg, HeaderContentType)
	switch ct {
	case ContentTypeText:
		return TypeText
	case ContentTypeBytes:
		return TypeBytes
	case ContentTypeJSON:
		return TypeJSON
	}
	return ""
}

func conversionError(err error, message string, payload any) error {
	meta := map[string]any{
		"payload_type": fmt.Sprintf("%T", payload),
	}

	if err == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(TextCodeConversion).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(meta)
	}

	return goerrors.Wrap(err, goerrors.CategoryBadInput, message).
		WithTextCode(TextCodeConversion).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(meta)
}

// IsConversionError reports whether err came from a converter
func IsConversionError(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == TextCodeConversion
}
