// Package memstore is an in-memory adapter for the employee, calendar and
// audit store ports. It backs tests and the "memory" database driver.
package memstore

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"

	"github.com/google/uuid"
)

type grantKey struct {
	EventID    uuid.UUID
	EmployeeID uuid.UUID
}

type Store struct {
	mu sync.RWMutex

	employees map[uuid.UUID]employee.Employee
	events    map[uuid.UUID]calendar.Event
	grants    map[grantKey]calendar.Grant
	auditLog  []audit.AuditLogEvent
}

func New() *Store {
	return &Store{
		employees: make(map[uuid.UUID]employee.Employee),
		events:    make(map[uuid.UUID]calendar.Event),
		grants:    make(map[grantKey]calendar.Grant),
	}
}

func (s *Store) CreateEmployee(_ context.Context, e employee.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.employees {
		if existing.Username == e.Username {
			return employee.ErrUsernameTaken
		}
		if existing.Email == e.Email {
			return employee.ErrEmailTaken
		}
	}
	s.employees[e.ID] = e
	return nil
}

func (s *Store) GetEmployeeByID(_ context.Context, id uuid.UUID) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (s *Store) GetEmployeeByUsername(_ context.Context, username string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.employees {
		if e.Username == username {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (s *Store) GetEmployeeByEmail(_ context.Context, email string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.employees {
		if e.Email == email {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (s *Store) ListEmployees(_ context.Context, params employee.ListParams) ([]employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employees := make([]employee.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if params.Active.IsSet && e.Active != params.Active.Val {
			continue
		}
		if params.Department.IsSet && e.Department != params.Department.Val {
			continue
		}
		if params.SecurityLevel.IsSet && e.SecurityLevel != params.SecurityLevel.Val {
			continue
		}
		if params.BelowSecurityLevel.IsSet && e.SecurityLevel.Rank() <= params.BelowSecurityLevel.Val.Rank() {
			continue
		}
		employees = append(employees, e)
	}
	slices.SortFunc(employees, func(a, b employee.Employee) int {
		return strings.Compare(a.Username, b.Username)
	})

	if params.Offset > 0 {
		if params.Offset >= len(employees) {
			return []employee.Employee{}, nil
		}
		employees = employees[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(employees) {
		employees = employees[:params.Limit]
	}
	return employees, nil
}

func (s *Store) UpdateEmployeeByID(_ context.Context, id uuid.UUID, params employee.UpdateParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employees[id]
	if !ok {
		return employee.ErrEmployeeNotFound
	}
	if params.FullName.IsSet {
		e.FullName = params.FullName.Val
	}
	if params.Email.IsSet {
		e.Email = params.Email.Val
	}
	if params.Department.IsSet {
		e.Department = params.Department.Val
	}
	if params.PasswordHash.IsSet {
		e.PasswordHash = params.PasswordHash.Val
	}
	if params.SecurityLevel.IsSet {
		e.SecurityLevel = params.SecurityLevel.Val
	}
	if params.Active.IsSet {
		e.Active = params.Active.Val
	}
	e.UpdatedAt = time.Now().UTC()
	s.employees[id] = e
	return nil
}

func (s *Store) DeleteEmployeeByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return employee.ErrEmployeeNotFound
	}
	for _, event := range s.events {
		if event.CreatorID == id {
			return employee.ErrHasEvents
		}
	}
	for key := range s.grants {
		if key.EmployeeID == id {
			delete(s.grants, key)
		}
	}
	delete(s.employees, id)
	return nil
}

func (s *Store) CreateEvent(_ context.Context, event calendar.Event, grantedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := event
	stored.Viewers = nil
	s.events[event.ID] = stored
	for id := range event.Viewers {
		s.grants[grantKey{EventID: event.ID, EmployeeID: id}] = calendar.Grant{
			EventID:    event.ID,
			EmployeeID: id,
			GrantedAt:  event.CreatedAt,
			GrantedBy:  grantedBy,
		}
	}
	return nil
}

func (s *Store) GetEventByID(_ context.Context, id uuid.UUID) (calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return calendar.Event{}, calendar.ErrEventNotFound
	}
	return s.withViewers(event), nil
}

func (s *Store) ListEvents(_ context.Context, params calendar.ListEventsParams) ([]calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword := strings.ToLower(params.Keyword.Val)
	events := make([]calendar.Event, 0)
	for _, event := range s.events {
		if params.CreatorID.IsSet && event.CreatorID != params.CreatorID.Val {
			continue
		}
		if params.End.IsSet && event.StartTime.After(params.End.Val) {
			continue
		}
		if params.Start.IsSet && event.EndTime.Before(params.Start.Val) {
			continue
		}
		if params.Keyword.IsSet &&
			!strings.Contains(strings.ToLower(event.Title), keyword) &&
			!strings.Contains(strings.ToLower(event.Description), keyword) {
			continue
		}
		events = append(events, s.withViewers(event))
	}

	slices.SortFunc(events, func(a, b calendar.Event) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return events, nil
}

func (s *Store) UpdateEventByID(_ context.Context, id uuid.UUID, params calendar.UpdateEventParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return calendar.ErrEventNotFound
	}
	if params.Title.IsSet {
		event.Title = params.Title.Val
	}
	if params.Description.IsSet {
		event.Description = params.Description.Val
	}
	if params.StartTime.IsSet {
		event.StartTime = params.StartTime.Val.UTC()
	}
	if params.EndTime.IsSet {
		event.EndTime = params.EndTime.Val.UTC()
	}
	if params.Location.IsSet {
		event.Location = params.Location.Val
	}
	if params.SecurityLevel.IsSet {
		event.SecurityLevel = params.SecurityLevel.Val
	}
	now := time.Now().UTC()
	event.UpdatedAt = now
	s.events[id] = event

	if params.Viewers.IsSet {
		wanted := params.Viewers.Val
		for key := range s.grants {
			if key.EventID == id && !wanted.Contains(key.EmployeeID) {
				delete(s.grants, key)
			}
		}
		for employeeID := range wanted {
			key := grantKey{EventID: id, EmployeeID: employeeID}
			if _, exists := s.grants[key]; !exists {
				s.grants[key] = calendar.Grant{EventID: id, EmployeeID: employeeID, GrantedAt: now, GrantedBy: params.GrantedBy}
			}
		}
	}
	return nil
}

func (s *Store) DeleteEventByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return calendar.ErrEventNotFound
	}
	for key := range s.grants {
		if key.EventID == id {
			delete(s.grants, key)
		}
	}
	delete(s.events, id)
	return nil
}

func (s *Store) CreateGrant(_ context.Context, grant calendar.Grant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[grant.EventID]; !ok {
		return false, calendar.ErrEventNotFound
	}
	key := grantKey{EventID: grant.EventID, EmployeeID: grant.EmployeeID}
	if _, exists := s.grants[key]; exists {
		return false, nil
	}
	s.grants[key] = grant
	return true, nil
}

func (s *Store) DeleteGrant(_ context.Context, eventID, employeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.grants, grantKey{EventID: eventID, EmployeeID: employeeID})
	return nil
}

func (s *Store) ListGrants(_ context.Context, eventID uuid.UUID) ([]calendar.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := make([]calendar.Grant, 0)
	for key, grant := range s.grants {
		if key.EventID == eventID {
			grants = append(grants, grant)
		}
	}
	slices.SortFunc(grants, func(a, b calendar.Grant) int {
		if c := a.GrantedAt.Compare(b.GrantedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.EmployeeID[:], b.EmployeeID[:])
	})
	return grants, nil
}

func (s *Store) CreateAuditLogEvent(_ context.Context, event audit.AuditLogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLog = append(s.auditLog, event)
	return nil
}

// AuditLog returns a copy of the recorded audit events, oldest first.
func (s *Store) AuditLog() []audit.AuditLogEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.auditLog)
}

// withViewers must be called with s.mu held.
func (s *Store) withViewers(event calendar.Event) calendar.Event {
	viewers := calendar.NewViewerSet()
	for key := range s.grants {
		if key.EventID == event.ID {
			viewers[key.EmployeeID] = struct{}{}
		}
	}
	event.Viewers = viewers
	return event
}
