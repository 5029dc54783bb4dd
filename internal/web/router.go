package web

import (
	"errors"
	"log/slog"

	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds the Fiber application serving the JSON API.
func NewApp(logger *slog.Logger, cfg config.Config, h *APIHandler, resolver *session.Resolver) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Telemetry.ServiceName,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return ErrorResponse(c, fiberErr.Code, "HTTP_ERROR", fiberErr.Message)
			}
			logger.ErrorContext(c.UserContext(), "Unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
			return ErrorResponse(c, fiber.StatusInternalServerError, "SERVER_ERROR", "Internal server error")
		},
	})

	app.Use(recover.New())
	app.Use(telemetry.FiberMiddleware(cfg.Telemetry.ServiceName))
	app.Use(LoggerMiddleware(logger))
	app.Use(SecurityHeadersMiddleware())

	RegisterRoutes(app, h, resolver)
	return app
}

func RegisterRoutes(app *fiber.App, h *APIHandler, resolver *session.Resolver) {
	api := app.Group("/api", ContentNegotiationMiddleware(), SessionMiddleware(resolver))

	api.Get("/health", h.Healthy)

	authGroup := api.Group("/auth")
	authGroup.Get("/check", h.CheckAuthentication)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/logout", AuthenticatedMiddleware(), h.Logout)
	authGroup.Get("/me", AuthenticatedMiddleware(), h.Me)

	// Reads are open to every employee, changes to Level 1 administrators.
	// Password changes decide per caller.
	admin := ClearanceMiddleware(security.Level1)
	employees := api.Group("/employees", AuthenticatedMiddleware())
	employees.Get("/", h.ListEmployees)
	employees.Post("/", admin, h.CreateEmployee)
	employees.Get("/active", h.ListActiveEmployees)
	employees.Get("/security-levels", h.ListSecurityLevels)
	employees.Get("/department/:department", h.ListEmployeesByDepartment)
	employees.Get("/security-level/:level", h.ListEmployeesBySecurityLevel)
	employees.Get("/lower-security-level/:level", h.ListEmployeesBelowSecurityLevel)
	employees.Get("/username/:username", h.GetEmployeeByUsername)
	employees.Get("/:id", h.GetEmployee)
	employees.Put("/:id", admin, h.UpdateEmployee)
	employees.Put("/:id/password", h.UpdateEmployeePassword)
	employees.Delete("/:id", admin, h.DeleteEmployee)

	events := api.Group("/calendar/events", AuthenticatedMiddleware())
	events.Get("/", h.ListEvents)
	events.Post("/", h.CreateEvent)
	events.Get("/visible/year/:year/month/:month", h.ListVisibleEventsForMonth)
	events.Get("/my", h.ListMyEvents)
	events.Get("/search", h.SearchEvents)
	events.Get("/:id", h.GetEvent)
	events.Put("/:id", h.UpdateEvent)
	events.Delete("/:id", h.DeleteEvent)
	events.Get("/:id/permissions", h.ListPermissions)
	events.Post("/:id/permissions/:employeeId", h.GrantPermission)
	events.Delete("/:id/permissions/:employeeId", h.RevokePermission)
	events.Get("/:id/can-view", h.CanView)
}
