package authkit

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound          = "NOT_FOUND"
	TextCodeInvalidRecord     = "INVALID_RECORD"
	TextCodeUserLocked        = "USER_LOCKED"
	TextCodeUserInactive      = "USER_INACTIVE"
	TextCodeInvalidToken      = "INVALID_TOKEN"
	TextCodeMissingToken      = "MISSING_TOKEN"
	TextCodeInvalidIdentifier = "INVALID_IDENTIFIER"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when credentials do not match
var ErrMismatchedHashAndPassword = goerrors.New("username or password mismatch", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserLocked is returned when a locked user tries to authenticate
var ErrUserLocked = goerrors.New("user login is locked", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserLocked).
	WithCode(goerrors.CodeForbidden)

// ErrUserInactive is returned when an inactive user tries to authenticate
var ErrUserInactive = goerrors.New("user login is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidToken is returned when a bearer token fails validation
var ErrInvalidToken = goerrors.New("invalid authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingToken is returned when a route requires a token and none was sent
var ErrMissingToken = goerrors.New("missing or malformed authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(goerrors.CodeUnauthorized)

// NewNotFound creates the error used to signal a missing resource. The HTTP
// error handler renders it as 404.
func NewNotFound(message string) *goerrors.Error {
	if message == "" {
		message = "resource not found"
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
}

// IsNotFound reports whether err signals a missing resource
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeNotFound {
		return true
	}

	return goerrors.IsNotFound(err) || isNoRows(err)
}

func invalidIdentifier(value string, err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid identifier").
		WithTextCode(TextCodeInvalidIdentifier).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"identifier": value,
		})
}

func invalidRecord(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithTextCode(TextCodeInvalidRecord).
		WithCode(goerrors.CodeBadRequest)
}
