package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmployeeInactive   = errors.New("employee account is inactive")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// dummyHash is compared against for unknown usernames.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("calendar-dummy-password"), bcrypt.DefaultCost)
	return hash
})

type Authenticator struct {
	logger    *slog.Logger
	employees employee.Store
	tokens    token.Service
	auditor   *audit.Auditor
	limiter   Limiter
	denylist  session.Denylist

	Now func() time.Time
}

// NewAuthenticator builds an Authenticator. limiter and denylist may be nil.
func NewAuthenticator(logger *slog.Logger, employees employee.Store, tokens token.Service, auditor *audit.Auditor, limiter Limiter, denylist session.Denylist) Authenticator {
	return Authenticator{
		logger:    logger,
		employees: employees,
		tokens:    tokens,
		auditor:   auditor,
		limiter:   limiter,
		denylist:  denylist,
		Now:       time.Now,
	}
}

type LoginParams struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (a *Authenticator) Login(ctx context.Context, params LoginParams) (string, employee.Employee, error) {
	username := strings.TrimSpace(params.Username)

	if a.limiter != nil {
		if err := a.limiter.CheckLogin(ctx, username); err != nil {
			if errors.Is(err, ErrTooManyAttempts) {
				return "", employee.Employee{}, err
			}
			a.logger.Error("auth: rate limiter unavailable", "error", err)
		}
	}

	e, err := a.employees.GetEmployeeByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(params.Password))
			return "", employee.Employee{}, ErrInvalidCredentials
		}
		return "", employee.Employee{}, fmt.Errorf("failed to get employee by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(params.Password)); err != nil {
		return "", employee.Employee{}, ErrInvalidCredentials
	}
	if !e.Active {
		return "", employee.Employee{}, ErrEmployeeInactive
	}

	signed, err := a.tokens.Issue(e.Username, a.now())
	if err != nil {
		return "", employee.Employee{}, err
	}

	if a.limiter != nil {
		if err := a.limiter.ResetLogin(ctx, username); err != nil {
			a.logger.Warn("auth: failed to reset login attempts", "username", username, "error", err)
		}
	}

	a.auditor.Record(ctx, audit.LogEventParam{
		OwnerID: e.ID,
		Type:    audit.AuditLogEventTypeEmployeeLogin,
		Data:    map[string]any{"username": e.Username},
	})

	return signed, e, nil
}

// Logout records the logout. With a denylist configured the session's token
// stops resolving immediately; otherwise it lives until it expires.
func (a *Authenticator) Logout(ctx context.Context, sess session.Session) error {
	e, ok := sess.CurrentEmployee()
	if !ok {
		return ErrNotAuthenticated
	}

	if a.denylist != nil && sess.TokenID() != "" {
		if err := a.denylist.Add(ctx, sess.TokenID(), sess.ExpiresAt()); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	a.auditor.Record(ctx, audit.LogEventParam{
		OwnerID: e.ID,
		Type:    audit.AuditLogEventTypeEmployeeLogout,
		Data:    map[string]any{"username": e.Username},
	})
	return nil
}

// TokenTTL is the lifetime of the tokens Login issues.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokens.TTL()
}

func (a *Authenticator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
