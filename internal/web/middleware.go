package web

import (
	"log/slog"
	"time"

	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/session"

	"github.com/gofiber/fiber/v2"
)

// ContentNegotiationMiddleware rejects clients that do not accept JSON.
func ContentNegotiationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Accepts(fiber.MIMEApplicationJSON) == "" {
			return ErrorResponse(c, fiber.StatusNotAcceptable, "NOT_ACCEPTABLE", "Supported types: application/json")
		}
		return c.Next()
	}
}

// SessionMiddleware resolves the bearer token of every request into a session
// and stores it in the request's user context. It never rejects a request.
func SessionMiddleware(resolver *session.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sess := resolver.Resolve(ctx, c.Get(fiber.HeaderAuthorization))
		c.SetUserContext(session.NewContext(ctx, sess))
		return c.Next()
	}
}

// AuthenticatedMiddleware answers 401 for anonymous sessions.
func AuthenticatedMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !session.FromContext(c.UserContext()).IsAuthenticated() {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return ErrorResponse(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
		}
		return c.Next()
	}
}

// ClearanceMiddleware answers 403 unless the caller's clearance covers level.
// It must run after AuthenticatedMiddleware.
func ClearanceMiddleware(level security.Level) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := currentEmployee(c)
		if !ok || !caller.CanAccessSecurityLevel(level) {
			return ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "Insufficient clearance")
		}
		return c.Next()
	}
}

func LoggerMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.InfoContext(c.UserContext(), "Request",
			"method", c.Method(),
			"url", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
			"ip", c.IP(),
		)
		return err
	}
}

// SecurityHeadersMiddleware sets the response headers every API answer carries.
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderReferrerPolicy, "no-referrer")
		return c.Next()
	}
}

// currentEmployee returns the caller. Routes behind AuthenticatedMiddleware
// always have one.
func currentEmployee(c *fiber.Ctx) (employee.Employee, bool) {
	return session.FromContext(c.UserContext()).CurrentEmployee()
}
