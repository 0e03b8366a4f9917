package authkit_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authkit"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil",
			err:      nil,
			expected: false,
		},
		{
			name:     "not found helper",
			err:      authkit.NewNotFound("role not found"),
			expected: true,
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("lookup: %w", authkit.NewNotFound("")),
			expected: true,
		},
		{
			name:     "go-errors not found category",
			err:      goerrors.New("gone", goerrors.CategoryNotFound),
			expected: true,
		},
		{
			name:     "other category",
			err:      goerrors.New("bad", goerrors.CategoryBadInput),
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authkit.IsNotFound(tt.err))
		})
	}
}

func TestNewNotFoundDefaults(t *testing.T) {
	err := authkit.NewNotFound("")
	assert.Equal(t, "resource not found", err.Message)
	assert.Equal(t, authkit.TextCodeNotFound, err.TextCode)
	assert.Equal(t, http.StatusNotFound, err.Code)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: authkit.NewNotFound("x"), expected: http.StatusNotFound},
		{name: "user locked", err: authkit.ErrUserLocked, expected: http.StatusForbidden},
		{name: "credentials", err: authkit.ErrMismatchedHashAndPassword, expected: http.StatusUnauthorized},
		{name: "missing token", err: authkit.ErrMissingToken, expected: http.StatusUnauthorized},
		{name: "validation category", err: goerrors.New("bad", goerrors.CategoryValidation), expected: http.StatusBadRequest},
		{name: "fiber error", err: fiber.ErrTeapot, expected: http.StatusTeapot},
		{name: "no rows", err: sql.ErrNoRows, expected: http.StatusNotFound},
		{name: "unknown", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authkit.StatusCode(tt.err))
		})
	}
}

func TestErrorResponseBody(t *testing.T) {
	status, body := authkit.ErrorResponse(authkit.NewNotFound("user login not found").
		WithMetadata(map[string]any{"username": "ghost"}))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user login not found", body["error"])
	assert.Equal(t, authkit.TextCodeNotFound, body["text_code"])
	assert.Equal(t, map[string]any{"username": "ghost"}, body["metadata"])

	status, body = authkit.ErrorResponse(errors.New("secret detail"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body["error"], "secret")
}
