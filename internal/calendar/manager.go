package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/calendar/internal/calendar"

type Manager struct {
	Logger    *slog.Logger
	Store     Store
	Employees employee.Store
	Auditor   *audit.Auditor
	Validator *validator.Validator

	tracer    trace.Tracer
	decisions metric.Int64Counter
}

func NewManager(logger *slog.Logger, store Store, employees employee.Store, auditor *audit.Auditor, validator *validator.Validator) Manager {
	m := Manager{
		Logger:    logger,
		Store:     store,
		Employees: employees,
		Auditor:   auditor,
		Validator: validator,
		tracer:    otel.Tracer(instrumentationName),
	}

	decisions, err := otel.Meter(instrumentationName).Int64Counter("calendar.access.decisions",
		metric.WithDescription("Event visibility decisions by outcome"))
	if err != nil {
		logger.Warn("calendar: failed to create decisions counter", "error", err)
	}
	m.decisions = decisions

	return m
}

type CreateEventParams struct {
	Title       string    `validate:"required,max=255"`
	Description string    `validate:"max=1000"`
	StartTime   time.Time `validate:"required"`
	EndTime     time.Time `validate:"required"`
	Location    string    `validate:"max=255"`
	// SecurityLevel defaults to the creator's own level.
	SecurityLevel util.Optional[security.Level]
	ViewerIDs     []uuid.UUID
}

func (m *Manager) CreateEvent(ctx context.Context, caller employee.Employee, params CreateEventParams) (Event, error) {
	ctx, span := m.tracer.Start(ctx, "calendar.CreateEvent")
	defer span.End()

	var event Event

	if err := m.Validator.Validate(params); err != nil {
		return event, err
	}
	if params.EndTime.Before(params.StartTime) {
		return event, ErrInvalidTimeRange
	}

	level := params.SecurityLevel.UnwrapOr(caller.SecurityLevel)
	if err := ValidateSecurityLevel(caller.SecurityLevel, level); err != nil {
		return event, err
	}

	viewers, err := m.resolveViewers(ctx, params.ViewerIDs)
	if err != nil {
		return event, err
	}

	now := time.Now().UTC()
	event = Event{
		ID:            uuid.New(),
		Title:         params.Title,
		Description:   params.Description,
		StartTime:     params.StartTime.UTC(),
		EndTime:       params.EndTime.UTC(),
		Location:      params.Location,
		CreatorID:     caller.ID,
		SecurityLevel: level,
		Viewers:       viewers,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := m.Store.CreateEvent(ctx, event, caller.Username); err != nil {
		return Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: caller.ID,
		Type:    audit.AuditLogEventTypeEventCreate,
		Data: map[string]any{
			"event_id":       event.ID,
			"security_level": event.SecurityLevel.String(),
			"viewers":        viewers.Len(),
		},
	})

	span.SetAttributes(attribute.String("event.id", event.ID.String()))
	return event, nil
}

func (m *Manager) UpdateEvent(ctx context.Context, caller employee.Employee, id uuid.UUID, params UpdateEventParams) (Event, error) {
	ctx, span := m.tracer.Start(ctx, "calendar.UpdateEvent", trace.WithAttributes(attribute.String("event.id", id.String())))
	defer span.End()

	event, err := m.Store.GetEventByID(ctx, id)
	if err != nil {
		return event, err
	}
	if !CanManage(caller, event) {
		if !CanView(caller, event) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, ErrNotEventManager
	}

	start := params.StartTime.UnwrapOr(event.StartTime)
	end := params.EndTime.UnwrapOr(event.EndTime)
	if end.Before(start) {
		return Event{}, ErrInvalidTimeRange
	}
	// Same limits as CreateEventParams.
	for _, field := range []struct {
		value util.Optional[string]
		tag   string
	}{
		{params.Title, "required,max=255"},
		{params.Description, "max=1000"},
		{params.Location, "max=255"},
	} {
		if !field.value.IsSet {
			continue
		}
		if err := m.Validator.Var(field.value.Val, field.tag); err != nil {
			return Event{}, err
		}
	}

	if params.SecurityLevel.IsSet {
		// The rule is anchored to the creator, not to whoever edits.
		creator, err := m.Employees.GetEmployeeByID(ctx, event.CreatorID)
		if err != nil {
			return Event{}, fmt.Errorf("failed to load event creator: %w", err)
		}
		if err := ValidateSecurityLevel(creator.SecurityLevel, params.SecurityLevel.Val); err != nil {
			return Event{}, err
		}
	}

	if params.Viewers.IsSet {
		viewers, err := m.resolveViewers(ctx, params.Viewers.Val.IDs())
		if err != nil {
			return Event{}, err
		}
		params.Viewers = util.Some(viewers)
	}
	params.GrantedBy = caller.Username

	if err := m.Store.UpdateEventByID(ctx, id, params); err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: caller.ID,
		Type:    audit.AuditLogEventTypeEventUpdate,
		Data:    map[string]any{"event_id": id},
	})

	return m.Store.GetEventByID(ctx, id)
}

func (m *Manager) DeleteEvent(ctx context.Context, caller employee.Employee, id uuid.UUID) error {
	event, err := m.Store.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanManage(caller, event) {
		if !CanView(caller, event) {
			return ErrEventNotFound
		}
		return ErrNotEventManager
	}

	if err := m.Store.DeleteEventByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: caller.ID,
		Type:    audit.AuditLogEventTypeEventDelete,
		Data:    map[string]any{"event_id": id},
	})
	return nil
}

// GetEvent returns ErrEventNotFound for events the caller may not see so that
// existence is not disclosed.
func (m *Manager) GetEvent(ctx context.Context, caller employee.Employee, id uuid.UUID) (Event, error) {
	event, err := m.Store.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}

	visible := CanView(caller, event)
	m.recordDecisions(ctx, boolToInt(visible), 1)
	if !visible {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

// VisibleEvents lists events intersecting [start, end] that caller may see,
// ordered by start time.
func (m *Manager) VisibleEvents(ctx context.Context, caller employee.Employee, start, end time.Time) ([]Event, error) {
	ctx, span := m.tracer.Start(ctx, "calendar.VisibleEvents")
	defer span.End()

	if end.Before(start) {
		return nil, ErrInvalidTimeRange
	}

	events, err := m.Store.ListEvents(ctx, ListEventsParams{
		Start: util.Some(start),
		End:   util.Some(end),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	visible := FilterVisibleInRange(caller, events, start, end)
	m.recordDecisions(ctx, len(visible), len(events))
	span.SetAttributes(attribute.Int("events.candidates", len(events)), attribute.Int("events.visible", len(visible)))
	return visible, nil
}

func (m *Manager) VisibleEventsForMonth(ctx context.Context, caller employee.Employee, year, month int) ([]Event, error) {
	start, end, err := MonthRange(year, month, time.UTC)
	if err != nil {
		return nil, err
	}
	return m.VisibleEvents(ctx, caller, start, end)
}

func (m *Manager) EventsByCreator(ctx context.Context, caller employee.Employee) ([]Event, error) {
	events, err := m.Store.ListEvents(ctx, ListEventsParams{CreatorID: util.Some(caller.ID)})
	if err != nil {
		return nil, fmt.Errorf("failed to list events by creator: %w", err)
	}
	return events, nil
}

// SearchEvents matches keyword against title and description, case-insensitively,
// and keeps only what caller may see.
func (m *Manager) SearchEvents(ctx context.Context, caller employee.Employee, keyword string) ([]Event, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []Event{}, nil
	}

	events, err := m.Store.ListEvents(ctx, ListEventsParams{Keyword: util.Some(keyword)})
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	visible := FilterVisible(caller, events)
	m.recordDecisions(ctx, len(visible), len(events))
	return visible, nil
}

// GrantView gives employeeID an explicit exception on the event. Granting
// twice leaves the grant set unchanged.
func (m *Manager) GrantView(ctx context.Context, caller employee.Employee, eventID, employeeID uuid.UUID) error {
	if _, err := m.managedEvent(ctx, caller, eventID); err != nil {
		return err
	}
	if _, err := m.Employees.GetEmployeeByID(ctx, employeeID); err != nil {
		return err
	}

	created, err := m.Store.CreateGrant(ctx, Grant{
		EventID:    eventID,
		EmployeeID: employeeID,
		GrantedAt:  time.Now().UTC(),
		GrantedBy:  caller.Username,
	})
	if err != nil {
		return fmt.Errorf("failed to grant view permission: %w", err)
	}
	if !created {
		return nil
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: caller.ID,
		Type:    audit.AuditLogEventTypeEventViewGrant,
		Data:    map[string]any{"event_id": eventID, "employee_id": employeeID},
	})
	return nil
}

// RevokeView removes an exception. Revoking a grant that does not exist succeeds.
func (m *Manager) RevokeView(ctx context.Context, caller employee.Employee, eventID, employeeID uuid.UUID) error {
	event, err := m.managedEvent(ctx, caller, eventID)
	if err != nil {
		return err
	}
	if !event.Viewers.Contains(employeeID) {
		return nil
	}

	if err := m.Store.DeleteGrant(ctx, eventID, employeeID); err != nil {
		return fmt.Errorf("failed to revoke view permission: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: caller.ID,
		Type:    audit.AuditLogEventTypeEventViewRevoke,
		Data:    map[string]any{"event_id": eventID, "employee_id": employeeID},
	})
	return nil
}

func (m *Manager) Grants(ctx context.Context, caller employee.Employee, eventID uuid.UUID) ([]Grant, error) {
	if _, err := m.managedEvent(ctx, caller, eventID); err != nil {
		return nil, err
	}
	return m.Store.ListGrants(ctx, eventID)
}

func (m *Manager) ViewerIDs(ctx context.Context, caller employee.Employee, eventID uuid.UUID) ([]uuid.UUID, error) {
	event, err := m.managedEvent(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	return event.Viewers.IDs(), nil
}

// CanEmployeeView resolves both ids and decides. Anything that does not
// resolve is a denial.
func (m *Manager) CanEmployeeView(ctx context.Context, eventID, employeeID uuid.UUID) bool {
	event, err := m.Store.GetEventByID(ctx, eventID)
	if err != nil {
		if !errors.Is(err, ErrEventNotFound) {
			m.Logger.Error("calendar: failed to load event", "event_id", eventID, "error", err)
		}
		return false
	}

	viewer, err := m.Employees.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			m.Logger.Error("calendar: failed to load employee", "employee_id", employeeID, "error", err)
		}
		return false
	}
	if !viewer.Active {
		return false
	}

	visible := CanView(viewer, event)
	m.recordDecisions(ctx, boolToInt(visible), 1)
	return visible
}

func (m *Manager) managedEvent(ctx context.Context, caller employee.Employee, eventID uuid.UUID) (Event, error) {
	event, err := m.Store.GetEventByID(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if !CanManage(caller, event) {
		if !CanView(caller, event) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, ErrNotEventManager
	}
	return event, nil
}

// resolveViewers drops ids that do not belong to an existing employee.
func (m *Manager) resolveViewers(ctx context.Context, ids []uuid.UUID) (ViewerSet, error) {
	viewers := NewViewerSet()
	for _, id := range ids {
		if viewers.Contains(id) {
			continue
		}
		if _, err := m.Employees.GetEmployeeByID(ctx, id); err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				m.Logger.Debug("calendar: skipping unknown viewer", "employee_id", id)
				continue
			}
			return nil, fmt.Errorf("failed to resolve viewer: %w", err)
		}
		viewers[id] = struct{}{}
	}
	return viewers, nil
}

func (m *Manager) recordDecisions(ctx context.Context, visible, total int) {
	if m.decisions == nil {
		return
	}
	if visible > 0 {
		m.decisions.Add(ctx, int64(visible), metric.WithAttributes(attribute.String("outcome", "visible")))
	}
	if denied := total - visible; denied > 0 {
		m.decisions.Add(ctx, int64(denied), metric.WithAttributes(attribute.String("outcome", "denied")))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
