package authkit

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-authkit/binding"
	"github.com/goliatone/go-authkit/metrics"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

func categoryStatus(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// StatusCode maps err to the HTTP status it should be rendered with
func StatusCode(err error) int {
	status, _ := ErrorResponse(err)
	return status
}

// ErrorResponse maps err to an HTTP status and a JSON body. go-errors values
// keep their code, fiber errors their status and anything else is a 500.
func ErrorResponse(err error) (int, fiber.Map) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < 400 || status > 599 {
			status = categoryStatus(richErr)
		}

		body := fiber.Map{
			"error": richErr.Message,
		}
		if richErr.TextCode != "" {
			body["text_code"] = richErr.TextCode
		}
		if len(richErr.Metadata) > 0 {
			body["metadata"] = richErr.Metadata
		}
		return status, body
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiber.Map{"error": fiberErr.Message}
	}

	if IsNotFound(err) {
		return http.StatusNotFound, fiber.Map{
			"error":     "resource not found",
			"text_code": TextCodeNotFound,
		}
	}

	return http.StatusInternalServerError, fiber.Map{
		"error": "an unexpected server error occurred",
	}
}

// NewErrorHandler renders errors as JSON. Server errors are logged.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status, body := ErrorResponse(err)

		if status >= http.StatusInternalServerError {
			logger.Error(
				"request failed",
				"error", err.Error(),
				"path", c.OriginalURL(),
				"method", c.Method(),
				"details", print.MaybePrettyJSON(body["metadata"]),
			)
		} else {
			logger.Debug(
				"request rejected",
				"status", status,
				"error", err.Error(),
				"path", c.OriginalURL(),
			)
		}

		return c.Status(status).JSON(body)
	}
}

// AppOption configures the fiber app built by NewApp
type AppOption func(*fiber.Config)

// WithAppName sets the fiber app name
func WithAppName(name string) AppOption {
	return func(cfg *fiber.Config) {
		cfg.AppName = name
	}
}

// WithBodyLimit sets the maximum request body size in bytes
func WithBodyLimit(limit int) AppOption {
	return func(cfg *fiber.Config) {
		if limit > 0 {
			cfg.BodyLimit = limit
		}
	}
}

// WithTimeouts sets the read and write timeouts of the server
func WithTimeouts(read, write time.Duration) AppOption {
	return func(cfg *fiber.Config) {
		cfg.ReadTimeout = read
		cfg.WriteTimeout = write
	}
}

// NewApp creates a fiber app using the JSON error handler and the form
// converters from the binding package
func NewApp(logger Logger, opts ...AppOption) *fiber.App {
	binding.RegisterFormConverters()

	cfg := fiber.Config{
		AppName:               "authkit",
		ErrorHandler:          NewErrorHandler(logger),
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return fiber.New(cfg)
}

// RegisterMetricsRoute exposes the prometheus registry on path
func RegisterMetricsRoute(router fiber.Router, path string) {
	if path == "" {
		path = "/metrics"
	}
	router.Get(path, adaptor.HTTPHandler(metrics.MetricsHandler()))
}
