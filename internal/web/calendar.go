package web

import (
	"time"

	"github.com/freekieb7/calendar/internal/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ListEvents returns the events intersecting [start, end] the caller may see.
// Both bounds are RFC 3339 timestamps.
func (h *APIHandler) ListEvents(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "end must be an RFC 3339 timestamp")
	}

	events, err := h.CalendarManager.VisibleEvents(c.UserContext(), caller, start, end)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEventResponses(caller, events), len(events))
}

func (h *APIHandler) ListVisibleEventsForMonth(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}

	year, err := c.ParamsInt("year")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid year")
	}
	month, err := c.ParamsInt("month")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid month")
	}

	events, err := h.CalendarManager.VisibleEventsForMonth(c.UserContext(), caller, year, month)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEventResponses(caller, events), len(events))
}

func (h *APIHandler) ListMyEvents(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}

	events, err := h.CalendarManager.EventsByCreator(c.UserContext(), caller)
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEventResponses(caller, events), len(events))
}

func (h *APIHandler) SearchEvents(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}

	events, err := h.CalendarManager.SearchEvents(c.UserContext(), caller, c.Query("keyword"))
	if err != nil {
		return h.handleError(c, err)
	}
	return ListResponse(c, newEventResponses(caller, events), len(events))
}

func (h *APIHandler) GetEvent(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event ID")
	}

	event, err := h.CalendarManager.GetEvent(c.UserContext(), caller, id)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusOK, newEventResponse(caller, event))
}

func (h *APIHandler) CreateEvent(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}

	var req CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}
	params, err := req.params()
	if err != nil {
		return h.handleError(c, err)
	}

	event, err := h.CalendarManager.CreateEvent(c.UserContext(), caller, params)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusCreated, newEventResponse(caller, event))
}

func (h *APIHandler) UpdateEvent(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event ID")
	}

	var req UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid request body")
	}
	params, err := req.params()
	if err != nil {
		return h.handleError(c, err)
	}

	event, err := h.CalendarManager.UpdateEvent(c.UserContext(), caller, id, params)
	if err != nil {
		return h.handleError(c, err)
	}
	return DataResponse(c, fiber.StatusOK, newEventResponse(caller, event))
}

func (h *APIHandler) DeleteEvent(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event ID")
	}

	if err := h.CalendarManager.DeleteEvent(c.UserContext(), caller, id); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) ListPermissions(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event ID")
	}

	grants, err := h.CalendarManager.Grants(c.UserContext(), caller, id)
	if err != nil {
		return h.handleError(c, err)
	}

	res := make([]GrantResponse, len(grants))
	for i, grant := range grants {
		res[i] = GrantResponse{
			EmployeeID: grant.EmployeeID,
			GrantedAt:  grant.GrantedAt,
			GrantedBy:  grant.GrantedBy,
		}
	}
	return ListResponse(c, res, len(res))
}

func (h *APIHandler) GrantPermission(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	eventID, employeeID, err := permissionParams(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event or employee ID")
	}

	if err := h.CalendarManager.GrantView(c.UserContext(), caller, eventID, employeeID); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) RevokePermission(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	eventID, employeeID, err := permissionParams(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event or employee ID")
	}

	if err := h.CalendarManager.RevokeView(c.UserContext(), caller, eventID, employeeID); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CanView answers whether the caller may see the event. Unknown events are
// simply not viewable.
func (h *APIHandler) CanView(c *fiber.Ctx) error {
	caller, ok := currentEmployee(c)
	if !ok {
		return h.handleError(c, auth.ErrNotAuthenticated)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "Invalid event ID")
	}

	canView := h.CalendarManager.CanEmployeeView(c.UserContext(), id, caller.ID)
	return DataResponse(c, fiber.StatusOK, fiber.Map{"can_view": canView})
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func permissionParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	employeeID, err := uuidParam(c, "employeeId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return eventID, employeeID, nil
}
