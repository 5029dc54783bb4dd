package employee

import (
	"context"
	"errors"
	"time"

	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"

	"github.com/google/uuid"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrUsernameTaken    = errors.New("username already in use")
	ErrEmailTaken       = errors.New("email already in use")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrHasEvents        = errors.New("employee still owns events")
)

// Employee is an authenticated principal. Only active employees should ever
// reach an access decision.
type Employee struct {
	ID            uuid.UUID
	Username      string
	FullName      string
	Email         string
	Department    string
	PasswordHash  string
	SecurityLevel security.Level
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanAccessSecurityLevel reports whether the employee's clearance covers level.
func (e Employee) CanAccessSecurityLevel(level security.Level) bool {
	return e.SecurityLevel.HasAccessTo(level)
}

type UpdateParams struct {
	FullName      util.Optional[string]
	Email         util.Optional[string]
	Department    util.Optional[string]
	PasswordHash  util.Optional[string]
	SecurityLevel util.Optional[security.Level]
	Active        util.Optional[bool]
}

type ListParams struct {
	Active        util.Optional[bool]
	Department    util.Optional[string]
	SecurityLevel util.Optional[security.Level]
	// BelowSecurityLevel selects employees whose rank is numerically greater.
	BelowSecurityLevel util.Optional[security.Level]
	Limit              int
	Offset             int
}

// Store is the identity lookup the calendar core consumes. Lookups return
// ErrEmployeeNotFound rather than a zero value.
type Store interface {
	CreateEmployee(ctx context.Context, e Employee) error
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (Employee, error)
	GetEmployeeByUsername(ctx context.Context, username string) (Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (Employee, error)
	ListEmployees(ctx context.Context, params ListParams) ([]Employee, error)
	UpdateEmployeeByID(ctx context.Context, id uuid.UUID, params UpdateParams) error
	// DeleteEmployeeByID removes the employee and the view grants they hold.
	// It fails with ErrHasEvents while they still created events.
	DeleteEmployeeByID(ctx context.Context, id uuid.UUID) error
}
