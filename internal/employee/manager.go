package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Manager struct {
	Logger    *slog.Logger
	Store     Store
	Auditor   *audit.Auditor
	Validator *validator.Validator
}

func NewManager(logger *slog.Logger, store Store, auditor *audit.Auditor, validator *validator.Validator) Manager {
	return Manager{Logger: logger, Store: store, Auditor: auditor, Validator: validator}
}

type CreateParams struct {
	Username      string         `validate:"required,username"`
	Password      string         `validate:"required,min=8,max=72"`
	FullName      string         `validate:"required,max=100"`
	Email         string         `validate:"required,email"`
	Department    string         `validate:"max=100"`
	SecurityLevel security.Level `validate:"security_level"`
}

func (m *Manager) Create(ctx context.Context, params CreateParams) (Employee, error) {
	var employee Employee

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if err := m.Validator.Validate(params); err != nil {
		return employee, err
	}

	if _, err := m.Store.GetEmployeeByUsername(ctx, params.Username); err == nil {
		return employee, ErrUsernameTaken
	} else if !errors.Is(err, ErrEmployeeNotFound) {
		return employee, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := m.Store.GetEmployeeByEmail(ctx, params.Email); err == nil {
		return employee, ErrEmailTaken
	} else if !errors.Is(err, ErrEmployeeNotFound) {
		return employee, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return employee, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	employee = Employee{
		ID:            uuid.New(),
		Username:      params.Username,
		FullName:      params.FullName,
		Email:         params.Email,
		Department:    params.Department,
		PasswordHash:  string(hash),
		SecurityLevel: params.SecurityLevel,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := m.Store.CreateEmployee(ctx, employee); err != nil {
		return Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: employee.ID,
		Type:    audit.AuditLogEventTypeEmployeeCreate,
		Data: map[string]any{
			"username":       employee.Username,
			"security_level": employee.SecurityLevel.String(),
		},
	})

	m.Logger.Info("employee created", "employee_id", employee.ID, "username", employee.Username)
	return employee, nil
}

func (m *Manager) GetByID(ctx context.Context, id uuid.UUID) (Employee, error) {
	return m.Store.GetEmployeeByID(ctx, id)
}

func (m *Manager) GetByUsername(ctx context.Context, username string) (Employee, error) {
	return m.Store.GetEmployeeByUsername(ctx, username)
}

func (m *Manager) List(ctx context.Context, limit, offset int) ([]Employee, error) {
	return m.Store.ListEmployees(ctx, ListParams{Limit: limit, Offset: offset})
}

func (m *Manager) ListBySecurityLevel(ctx context.Context, level security.Level) ([]Employee, error) {
	return m.Store.ListEmployees(ctx, ListParams{SecurityLevel: util.Some(level)})
}

func (m *Manager) ListActive(ctx context.Context) ([]Employee, error) {
	return m.Store.ListEmployees(ctx, ListParams{Active: util.Some(true)})
}

func (m *Manager) ListByDepartment(ctx context.Context, department string) ([]Employee, error) {
	return m.Store.ListEmployees(ctx, ListParams{Department: util.Some(department)})
}

// ListBelowSecurityLevel returns employees with less clearance than level.
func (m *Manager) ListBelowSecurityLevel(ctx context.Context, level security.Level) ([]Employee, error) {
	return m.Store.ListEmployees(ctx, ListParams{BelowSecurityLevel: util.Some(level)})
}

type UpdateProfileParams struct {
	FullName   util.Optional[string]
	Email      util.Optional[string]
	Department util.Optional[string]
}

func (m *Manager) UpdateProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (Employee, error) {
	employee, err := m.Store.GetEmployeeByID(ctx, id)
	if err != nil {
		return employee, err
	}

	if params.FullName.IsSet {
		if err := m.Validator.Var(params.FullName.Val, "required,max=100"); err != nil {
			return employee, err
		}
	}
	if params.Department.IsSet {
		if err := m.Validator.Var(params.Department.Val, "max=100"); err != nil {
			return employee, err
		}
	}
	if params.Email.IsSet {
		email := strings.ToLower(strings.TrimSpace(params.Email.Val))
		if err := m.Validator.Var(email, "required,email"); err != nil {
			return employee, err
		}
		if other, err := m.Store.GetEmployeeByEmail(ctx, email); err == nil && other.ID != id {
			return employee, ErrEmailTaken
		}
		params.Email = util.Some(email)
	}

	if err := m.Store.UpdateEmployeeByID(ctx, id, UpdateParams{
		FullName:   params.FullName,
		Email:      params.Email,
		Department: params.Department,
	}); err != nil {
		return employee, fmt.Errorf("failed to update employee: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{OwnerID: id, Type: audit.AuditLogEventTypeEmployeeUpdate})
	return m.Store.GetEmployeeByID(ctx, id)
}

func (m *Manager) UpdateSecurityLevel(ctx context.Context, id uuid.UUID, level security.Level) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", security.ErrInvalidSecurityLevelRank, level.Rank())
	}
	employee, err := m.Store.GetEmployeeByID(ctx, id)
	if err != nil {
		return err
	}

	if err := m.Store.UpdateEmployeeByID(ctx, id, UpdateParams{SecurityLevel: util.Some(level)}); err != nil {
		return fmt.Errorf("failed to update security level: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: id,
		Type:    audit.AuditLogEventTypeEmployeeSecurityLevel,
		Data: map[string]any{
			"from": employee.SecurityLevel.String(),
			"to":   level.String(),
		},
	})
	return nil
}

// SetActive toggles login eligibility. Inactive employees resolve to anonymous sessions.
func (m *Manager) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := m.Store.GetEmployeeByID(ctx, id); err != nil {
		return err
	}
	if err := m.Store.UpdateEmployeeByID(ctx, id, UpdateParams{Active: util.Some(active)}); err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: id,
		Type:    audit.AuditLogEventTypeEmployeeStatus,
		Data:    map[string]any{"active": active},
	})
	return nil
}

func (m *Manager) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	employee, err := m.Store.GetEmployeeByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidPassword
	}
	return m.setPassword(ctx, id, newPassword)
}

// ResetPassword replaces the password without knowing the current one.
// Callers must restrict it to administrators.
func (m *Manager) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	if _, err := m.Store.GetEmployeeByID(ctx, id); err != nil {
		return err
	}
	return m.setPassword(ctx, id, newPassword)
}

func (m *Manager) setPassword(ctx context.Context, id uuid.UUID, password string) error {
	if err := m.Validator.Var(password, "required,min=8,max=72"); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := m.Store.UpdateEmployeeByID(ctx, id, UpdateParams{PasswordHash: util.Some(string(hash))}); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{OwnerID: id, Type: audit.AuditLogEventTypeEmployeePassword})
	return nil
}

// Delete removes an employee together with the view grants they hold.
// Employees who still created events cannot be deleted; deactivate them instead.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	employee, err := m.Store.GetEmployeeByID(ctx, id)
	if err != nil {
		return err
	}

	if err := m.Store.DeleteEmployeeByID(ctx, id); err != nil {
		if errors.Is(err, ErrHasEvents) || errors.Is(err, ErrEmployeeNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	m.Auditor.Record(ctx, audit.LogEventParam{
		OwnerID: id,
		Type:    audit.AuditLogEventTypeEmployeeDelete,
		Data:    map[string]any{"username": employee.Username},
	})
	m.Logger.Info("employee deleted", "employee_id", id, "username", employee.Username)
	return nil
}
