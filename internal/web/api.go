package web

import (
	"context"
	"log/slog"

	"github.com/freekieb7/calendar/internal/auth"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck = func(ctx context.Context) error

type APIHandler struct {
	Logger          *slog.Logger
	Authenticator   *auth.Authenticator
	CalendarManager *calendar.Manager
	EmployeeManager *employee.Manager
	Validator       *validator.Validator
	HealthChecks    map[string]HealthCheck
}

func NewAPIHandler(logger *slog.Logger, authenticator *auth.Authenticator, calendarManager *calendar.Manager, employeeManager *employee.Manager, validator *validator.Validator, healthChecks map[string]HealthCheck) *APIHandler {
	return &APIHandler{
		Logger:          logger,
		Authenticator:   authenticator,
		CalendarManager: calendarManager,
		EmployeeManager: employeeManager,
		Validator:       validator,
		HealthChecks:    healthChecks,
	}
}

func (h *APIHandler) Healthy(c *fiber.Ctx) error {
	ctx := c.UserContext()

	checks := make(fiber.Map, len(h.HealthChecks))
	healthy := true
	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			h.Logger.ErrorContext(ctx, "Health check failed", "check", name, "error", err)
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"checks": checks,
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": checks,
	})
}

func (h *APIHandler) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var params auth.LoginParams
	if err := c.BodyParser(&params); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}
	if err := h.Validator.Validate(params); err != nil {
		return h.handleError(c, err)
	}

	token, e, err := h.Authenticator.Login(ctx, params)
	if err != nil {
		return h.handleError(c, err)
	}

	h.Logger.InfoContext(ctx, "Employee logged in", "employee_id", e.ID, "ip", c.IP())

	return DataResponse(c, fiber.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.Authenticator.TokenTTL().Seconds()),
		Employee:  newEmployeeResponse(e),
	})
}

func (h *APIHandler) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if err := h.Authenticator.Logout(ctx, session.FromContext(ctx)); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) Me(c *fiber.Ctx) error {
	e, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	return DataResponse(c, fiber.StatusOK, newEmployeeResponse(e))
}

// CheckAuthentication answers whether the request carries a valid session.
// It never fails, anonymous callers get false.
func (h *APIHandler) CheckAuthentication(c *fiber.Ctx) error {
	return DataResponse(c, fiber.StatusOK, fiber.Map{
		"authenticated": session.FromContext(c.UserContext()).IsAuthenticated(),
	})
}

// handleError writes the error envelope for err. Unmapped errors are logged.
func (h *APIHandler) handleError(c *fiber.Ctx, err error) error {
	code, status, message := errorStatus(err)
	if code >= fiber.StatusInternalServerError {
		h.Logger.ErrorContext(c.UserContext(), "Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return ErrorResponse(c, code, status, message)
}
