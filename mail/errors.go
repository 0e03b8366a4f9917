package mail

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConnection = "MAIL_CONNECTION"
	TextCodeIO         = "MAIL_IO"
	TextCodeLookup     = "MAIL_LOOKUP"
	TextCodeDelivery   = "MAIL_DELIVERY"
)

// Error kinds used as metric labels
const (
	KindConnection = "connection"
	KindIO         = "io"
	KindLookup     = "lookup"
	KindDelivery   = "delivery"
)

func connectionError(err error, message string, meta map[string]any) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).
		WithTextCode(TextCodeConnection).
		WithCode(goerrors.CodeInternal).
		WithMetadata(meta)
}

func ioError(err error, message string, meta map[string]any) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, message).
		WithTextCode(TextCodeIO).
		WithCode(goerrors.CodeInternal).
		WithMetadata(meta)
}

func lookupError(name string) *goerrors.Error {
	return goerrors.New("mail session not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeLookup).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"session": name,
		})
}

// IsConnectionError reports a failure to dial, authenticate or open the mailbox
func IsConnectionError(err error) bool {
	return hasTextCode(err, TextCodeConnection)
}

// IsIOError reports a failure while searching, fetching or parsing messages
func IsIOError(err error) bool {
	return hasTextCode(err, TextCodeIO)
}

// IsLookupError reports an unknown session name
func IsLookupError(err error) bool {
	return hasTextCode(err, TextCodeLookup)
}

// IsDeliveryError reports an SMTP delivery failure
func IsDeliveryError(err error) bool {
	return hasTextCode(err, TextCodeDelivery)
}

// Kind returns the error kind of err or the empty string
func Kind(err error) string {
	switch {
	case IsConnectionError(err):
		return KindConnection
	case IsIOError(err):
		return KindIO
	case IsLookupError(err):
		return KindLookup
	case IsDeliveryError(err):
		return KindDelivery
	}
	return ""
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.TextCode == code
}
