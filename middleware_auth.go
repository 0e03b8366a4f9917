package authkit

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-authkit/middleware/jwtware"
	goerrors "github.com/goliatone/go-errors"
)

// NewAuthMiddleware validates bearer tokens and stores the resulting
// ClaimsAuthentication in the request user context. When cfg does not
// require authentication, requests without a token continue anonymously.
func NewAuthMiddleware(cfg AuthConfig, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	mcfg := jwtware.Config{
		AuthScheme: cfg.GetAuthScheme(),
		Issuer:     cfg.GetIssuer(),
		Optional:   !cfg.GetRequired(),
		Logger:     logger,
		ContextEnricher: func(ctx context.Context, claims jwt.MapClaims) context.Context {
			return WithAuthentication(ctx, NewClaimsAuthentication(claims))
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return authError(err)
		},
	}

	if url := strings.TrimSpace(cfg.GetJWKSURL()); url != "" {
		mcfg.JWKSetURLs = []string{url}
	} else {
		method := cfg.GetSigningMethod()
		if method == "" {
			method = jwt.SigningMethodHS256.Alg()
		}
		mcfg.SigningKey = jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: method,
		}
	}

	return jwtware.New(mcfg)
}

func authError(err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return ErrMissingToken
	}

	return goerrors.Wrap(err, goerrors.CategoryAuth, ErrInvalidToken.Message).
		WithTextCode(TextCodeInvalidToken).
		WithCode(goerrors.CodeUnauthorized)
}

// RequireAuthentication rejects requests whose context carries no
// authenticated principal
func RequireAuthentication() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authn, ok := AuthenticationFromContext(c.UserContext())
		if !ok || !authn.IsAuthenticated() {
			return ErrMissingToken
		}
		return c.Next()
	}
}
