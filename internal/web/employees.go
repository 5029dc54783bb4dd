package web

import (
	"net/url"
	"strconv"

	"github.com/freekieb7/calendar/internal/auth"
	"github.com/freekieb7/calendar/internal/security"

	"github.com/gofiber/fiber/v2"
)

func (h *APIHandler) ListEmployees(c *fiber.Ctx) error {
	employees, err := h.EmployeeManager.List(c.UserContext(), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEmployeeResponses(employees), len(employees))
}

func (h *APIHandler) ListActiveEmployees(c *fiber.Ctx) error {
	employees, err := h.EmployeeManager.ListActive(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEmployeeResponses(employees), len(employees))
}

func (h *APIHandler) ListEmployeesByDepartment(c *fiber.Ctx) error {
	department, err := url.PathUnescape(c.Params("department"))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid department")
	}

	employees, err := h.EmployeeManager.ListByDepartment(c.UserContext(), department)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEmployeeResponses(employees), len(employees))
}

func (h *APIHandler) ListEmployeesBySecurityLevel(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return h.handleError(c, err)
	}

	employees, err := h.EmployeeManager.ListBySecurityLevel(c.UserContext(), level)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEmployeeResponses(employees), len(employees))
}

// ListEmployeesBelowSecurityLevel lists employees with less clearance than
// the level in the path.
func (h *APIHandler) ListEmployeesBelowSecurityLevel(c *fiber.Ctx) error {
	level, err := levelParam(c)
	if err != nil {
		return h.handleError(c, err)
	}

	employees, err := h.EmployeeManager.ListBelowSecurityLevel(c.UserContext(), level)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEmployeeResponses(employees), len(employees))
}

func (h *APIHandler) ListSecurityLevels(c *fiber.Ctx) error {
	levels := security.Levels()
	res := make([]SecurityLevelResponse, len(levels))
	for i, level := range levels {
		res[i] = newSecurityLevelResponse(level)
	}
	return ListResponse(c, res, len(res))
}

func (h *APIHandler) GetEmployee(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid employee ID")
	}

	e, err := h.EmployeeManager.GetByID(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusOK, newEmployeeResponse(e))
}

func (h *APIHandler) GetEmployeeByUsername(c *fiber.Ctx) error {
	e, err := h.EmployeeManager.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusOK, newEmployeeResponse(e))
}

func (h *APIHandler) CreateEmployee(c *fiber.Ctx) error {
	var req CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}
	params, err := req.params()
	if err != nil {
		return h.handleError(c, err)
	}

	e, err := h.EmployeeManager.Create(c.UserContext(), params)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusCreated, newEmployeeResponse(e))
}

// UpdateEmployee applies the profile, then the security level, then the
// status. The level is checked before anything is written.
func (h *APIHandler) UpdateEmployee(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid employee ID")
	}

	var req UpdateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}

	var level security.Level
	if req.SecurityLevel.IsSet {
		if level, err = security.FromRank(req.SecurityLevel.Val); err != nil {
			return h.handleError(c, err)
		}
	}

	if profile, ok := req.profile(); ok {
		if _, err := h.EmployeeManager.UpdateProfile(ctx, id, profile); err != nil {
			return h.handleError(c, err)
		}
	}
	if req.SecurityLevel.IsSet {
		if err := h.EmployeeManager.UpdateSecurityLevel(ctx, id, level); err != nil {
			return h.handleError(c, err)
		}
	}
	if req.Active.IsSet {
		if err := h.EmployeeManager.SetActive(ctx, id, req.Active.Val); err != nil {
			return h.handleError(c, err)
		}
	}

	e, err := h.EmployeeManager.GetByID(ctx, id)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusOK, newEmployeeResponse(e))
}

// UpdateEmployeePassword lets employees change their own password with the
// current one, and Level 1 administrators reset anybody else's.
func (h *APIHandler) UpdateEmployeePassword(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid employee ID")
	}

	var req UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}

	switch {
	case caller.ID == id:
		err = h.EmployeeManager.ChangePassword(c.UserContext(), id, req.CurrentPassword, req.Password)
	case caller.CanAccessSecurityLevel(security.Level1):
		err = h.EmployeeManager.ResetPassword(c.UserContext(), id, req.Password)
	default:
		return ErrorResponse(c, fiber.StatusForbidden, "PERMISSION_DENIED", "Insufficient clearance")
	}
	if err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) DeleteEmployee(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid employee ID")
	}
	if id == caller.ID {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "You cannot delete yourself")
	}

	if err := h.EmployeeManager.Delete(c.UserContext(), id); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// levelParam accepts a stored name (LEVEL_2) or a bare rank (2).
func levelParam(c *fiber.Ctx) (security.Level, error) {
	raw := c.Params("level")
	if rank, err := strconv.Atoi(raw); err == nil {
		return security.FromRank(rank)
	}
	return security.ParseLevel(raw)
}
