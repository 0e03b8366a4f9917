package binding

import (
	"reflect"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// StringToNull maps empty strings to nil. Any other value is returned as is.
func StringToNull(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}

// OptionalString is a bound string field where an empty value means null
type OptionalString struct {
	value string
	valid bool
}

// NewOptionalString applies the StringToNull rule to value
func NewOptionalString(value string) OptionalString {
	return OptionalString{value: value, valid: value != ""}
}

// Valid reports whether a non empty value was bound
func (s OptionalString) Valid() bool {
	return s.valid
}

// String returns the bound value or the empty string
func (s OptionalString) String() string {
	return s.value
}

// Ptr returns nil for null values
func (s OptionalString) Ptr() *string {
	if !s.valid {
		return nil
	}
	v := s.value
	return &v
}

func (s *OptionalString) UnmarshalText(text []byte) error {
	*s = NewOptionalString(string(text))
	return nil
}

func (s *OptionalString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = OptionalString{}
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*s = NewOptionalString(value)
	return nil
}

func (s OptionalString) MarshalJSON() ([]byte, error) {
	if !s.valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

var registerFormOnce sync.Once

// RegisterFormConverters installs OptionalString into fiber's form and query
// decoder. The decoder is process wide.
func RegisterFormConverters() {
	registerFormOnce.Do(func() {
		fiber.SetParserDecoder(fiber.ParserConfig{
			IgnoreUnknownKeys: true,
			ZeroEmpty:         true,
			ParserType: []fiber.ParserType{
				{
					Customtype: OptionalString{},
					Converter: func(value string) reflect.Value {
						return reflect.ValueOf(NewOptionalString(value))
					},
				},
			},
		})
	})
}
