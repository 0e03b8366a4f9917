package messaging_test

import (
	"testing"

	"github.com/goliatone/go-authkit/messaging"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleConverterRoundTrip(t *testing.T) {
	converter := messaging.SimpleConverter{}

	tests := []struct {
		name        string
		payload     any
		contentType string
	}{
		{name: "text", payload: "hello", contentType: messaging.ContentTypeText},
		{name: "bytes", payload: []byte{0x01, 0x02}, contentType: messaging.ContentTypeBytes},
		{name: "map", payload: map[string]any{"user": "bob", "locked": true}, contentType: messaging.ContentTypeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := converter.ToMessage(tt.payload)
			require.NoError(t, err)

			ct, ok := messaging.Header(msg, messaging.HeaderContentType)
			require.True(t, ok)
			assert.Equal(t, tt.contentType, ct)

			out, err := converter.FromMessage(msg)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, out)
		})
	}
}

func TestSimpleConverterRejectsUnsupportedPayloads(t *testing.T) {
	converter := messaging.SimpleConverter{}

	for _, payload := range []any{42, struct{}{}, nil, []string{"a"}} {
		_, err := converter.ToMessage(payload)
		require.Error(t, err)
		assert.True(t, messaging.IsConversionError(err))
	}

	_, err := converter.FromMessage(kafka.Message{Value: []byte("x")})
	assert.True(t, messaging.IsConversionError(err))
}

func TestSimpleConverterFallsBackToContentType(t *testing.T) {
	out, err := messaging.SimpleConverter{}.FromMessage(kafka.Message{
		Value:   []byte(`{"a":"b"}`),
		Headers: []kafka.Header{{Key: messaging.HeaderContentType, Value: []byte(messaging.ContentTypeJSON)}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, out)
}

type lockEvent struct {
	Username string `json:"username"`
	Locked   bool   `json:"locked"`
}

func TestJSONConverter(t *testing.T) {
	converter := messaging.JSONConverter{New: func() any { return &lockEvent{} }}

	msg, err := converter.ToMessage(lockEvent{Username: "bob", Locked: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"bob","locked":true}`, string(msg.Value))

	out, err := converter.FromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, &lockEvent{Username: "bob", Locked: true}, out)

	generic, err := messaging.JSONConverter{}.FromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"username": "bob", "locked": true}, generic)

	_, err = converter.ToMessage(nil)
	assert.True(t, messaging.IsConversionError(err))

	_, err = converter.FromMessage(kafka.Message{Value: []byte("{")})
	assert.True(t, messaging.IsConversionError(err))
}
