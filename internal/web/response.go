package web

import (
	"errors"

	"github.com/freekieb7/calendar/internal/auth"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(c *fiber.Ctx, code int, status string, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func DataResponse(c *fiber.Ctx, code int, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"data": data,
	})
}

func ListResponse(c *fiber.Ctx, items any, total int) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items": items,
		"total": total,
	})
}

// errorStatus maps the sentinel errors of the core packages onto an HTTP
// status. Anything unrecognised is a 500.
func errorStatus(err error) (int, string, string) {
	switch {
	case validator.IsValidationError(err):
		return fiber.StatusBadRequest, "INVALID_ARGUMENT", validator.Describe(err)
	case errors.Is(err, calendar.ErrInvalidTimeRange),
		errors.Is(err, calendar.ErrInvalidMonth),
		errors.Is(err, security.ErrInvalidSecurityLevelRank),
		errors.Is(err, security.ErrUnknownSecurityLevel):
		return fiber.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, calendar.ErrSecurityLevelAboveCreator):
		return fiber.StatusBadRequest, "INVALID_SECURITY_LEVEL", err.Error()
	case errors.Is(err, calendar.ErrEventNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "Event not found"
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return fiber.StatusNotFound, "NOT_FOUND", "Employee not found"
	case errors.Is(err, employee.ErrUsernameTaken):
		return fiber.StatusConflict, "ALREADY_EXISTS", "Username already in use"
	case errors.Is(err, employee.ErrEmailTaken):
		return fiber.StatusConflict, "ALREADY_EXISTS", "Email already in use"
	case errors.Is(err, employee.ErrHasEvents):
		return fiber.StatusConflict, "FAILED_PRECONDITION", "Employee still owns events, deactivate instead"
	case errors.Is(err, employee.ErrInvalidPassword):
		return fiber.StatusBadRequest, "INVALID_ARGUMENT", "Current password is incorrect"
	case errors.Is(err, calendar.ErrNotEventManager):
		return fiber.StatusForbidden, "PERMISSION_DENIED", "You may not manage this event"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "UNAUTHENTICATED", "Invalid username or password"
	case errors.Is(err, auth.ErrEmployeeInactive):
		return fiber.StatusForbidden, "PERMISSION_DENIED", "Account is inactive"
	case errors.Is(err, auth.ErrTooManyAttempts):
		return fiber.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "Too many login attempts, try again later"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return fiber.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required"
	}
	return fiber.StatusInternalServerError, "SERVER_ERROR", "Internal server error"
}
