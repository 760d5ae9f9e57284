package fakeserver

import (
	"strings"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BearerAuth rejects requests without a known session token. Rejections are
// application failures in the envelope, not HTTP 401s.
func BearerAuth(p request.Protocol, valid func(token string) bool, log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Debug("missing authorization header",
				zap.String("path", c.Path()),
			)
			return wrapper.Write(c, p, wrapper.ResponseFailed("missing authorization header"))
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Debug("malformed authorization header",
				zap.String("path", c.Path()),
			)
			return wrapper.Write(c, p, wrapper.ResponseFailed("malformed authorization header"))
		}

		if parts[1] == "" || !valid(parts[1]) {
			log.Debug("invalid session token",
				zap.String("path", c.Path()),
			)
			return wrapper.Write(c, p, wrapper.ResponseFailed("invalid session token"))
		}

		return c.Next()
	}
}

// ErrorHandler answers routing and internal errors with a bare HTTP status,
// without envelope headers.
func ErrorHandler(log *logger.CanonicalLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		log.HTTPError(c.Method(), c.Path(), code, err)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// RequestLogger logs once per request with the client's request id and the
// envelope outcome recorded by the handler.
func RequestLogger(log *logger.CanonicalLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logCtx := logger.NewLogContext()
		c.SetUserContext(logger.WithLogContext(c.UserContext(), logCtx))

		if id := c.Get(request.HeaderRequestID); id != "" {
			logCtx.AddField(zap.String(logger.FieldRequestID, id))
		}

		start := time.Now()
		defer func() {
			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Int64("duration_ms", duration.Milliseconds()),
			}
			fields = append(fields, logCtx.Fields()...)
			log.Info("http_request", fields...)
		}()

		return c.Next()
	}
}
