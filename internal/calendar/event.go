package calendar

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound             = errors.New("event not found")
	ErrInvalidTimeRange          = errors.New("event end time is before start time")
	ErrInvalidMonth              = errors.New("month must be between 1 and 12")
	ErrSecurityLevelAboveCreator = errors.New("event security level exceeds the creator's own level")
	ErrNotEventManager           = errors.New("employee may not manage this event")
)

// Event is the protected resource. Viewers holds the ids of employees with an
// explicit view grant; it references employees by id only.
type Event struct {
	ID            uuid.UUID
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time
	Location      string
	CreatorID     uuid.UUID
	SecurityLevel security.Level
	Viewers       ViewerSet
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Grant is an explicit exception letting one employee view one event.
type Grant struct {
	EventID    uuid.UUID
	EmployeeID uuid.UUID
	GrantedAt  time.Time
	GrantedBy  string
}

// ViewerSet is a set of employee ids. The zero value is an empty, read-only set.
type ViewerSet map[uuid.UUID]struct{}

func NewViewerSet(ids ...uuid.UUID) ViewerSet {
	set := make(ViewerSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s ViewerSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s ViewerSet) Len() int {
	return len(s)
}

// IDs returns the members in a stable byte order.
func (s ViewerSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

func (s ViewerSet) Clone() ViewerSet {
	clone := make(ViewerSet, len(s))
	for id := range s {
		clone[id] = struct{}{}
	}
	return clone
}

type ListEventsParams struct {
	CreatorID util.Optional[uuid.UUID]
	// Start and End select events whose interval intersects [Start, End].
	Start   util.Optional[time.Time]
	End     util.Optional[time.Time]
	Keyword util.Optional[string]
}

type UpdateEventParams struct {
	Title         util.Optional[string]
	Description   util.Optional[string]
	StartTime     util.Optional[time.Time]
	EndTime       util.Optional[time.Time]
	Location      util.Optional[string]
	SecurityLevel util.Optional[security.Level]
	// Viewers, when set, replaces the grant set in the same transaction.
	Viewers   util.Optional[ViewerSet]
	GrantedBy string
}

// Store is the persistence the calendar core delegates to. Grant mutations
// must be atomic with respect to concurrent readers of the same event.
type Store interface {
	CreateEvent(ctx context.Context, event Event, grantedBy string) error
	GetEventByID(ctx context.Context, id uuid.UUID) (Event, error)
	ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error)
	UpdateEventByID(ctx context.Context, id uuid.UUID, params UpdateEventParams) error
	DeleteEventByID(ctx context.Context, id uuid.UUID) error

	// CreateGrant is idempotent; created is false when the grant already existed.
	CreateGrant(ctx context.Context, grant Grant) (created bool, err error)
	// DeleteGrant succeeds when no grant exists.
	DeleteGrant(ctx context.Context, eventID, employeeID uuid.UUID) error
	ListGrants(ctx context.Context, eventID uuid.UUID) ([]Grant, error)
}
