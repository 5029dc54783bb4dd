package employee_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/memstore"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupManager(t *testing.T) (employee.Manager, *memstore.Store) {
	t.Helper()

	log := logger.Discard()
	store := memstore.New()
	auditor := audit.NewAuditor(log, store)
	return employee.NewManager(log, store, &auditor, validator.New()), store
}

func createParams(username string, level security.Level) employee.CreateParams {
	return employee.CreateParams{
		Username:      username,
		Password:      "correct-horse",
		FullName:      "Test " + username,
		Email:         username + "@example.com",
		Department:    "Engineering",
		SecurityLevel: level,
	}
}

func TestManager_Create(t *testing.T) {
	manager, store := setupManager(t)
	ctx := context.Background()

	params := createParams("alice", security.Level2)
	params.Email = "  Alice@Example.COM "
	alice, err := manager.Create(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", alice.Email)
	assert.True(t, alice.Active)
	assert.Equal(t, security.Level2, alice.SecurityLevel)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(alice.PasswordHash), []byte("correct-horse")))

	got, err := manager.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	log := store.AuditLog()
	require.Len(t, log, 1)
	assert.Equal(t, audit.AuditLogEventTypeEmployeeCreate, log[0].Type)
}

func TestManager_Create_Rejects(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, createParams("alice", security.Level2))
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(p *employee.CreateParams)
		wantErr error
	}{
		{name: "duplicate_username", mutate: func(p *employee.CreateParams) { p.Email = "other@example.com" }, wantErr: employee.ErrUsernameTaken},
		{name: "duplicate_email", mutate: func(p *employee.CreateParams) { p.Username = "alice2" }, wantErr: employee.ErrEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := createParams("alice", security.Level2)
			tt.mutate(&params)
			_, err := manager.Create(ctx, params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	invalid := []struct {
		name   string
		mutate func(p *employee.CreateParams)
	}{
		{name: "short_password", mutate: func(p *employee.CreateParams) { p.Password = "short" }},
		{name: "bad_username", mutate: func(p *employee.CreateParams) { p.Username = "a b" }},
		{name: "bad_email", mutate: func(p *employee.CreateParams) { p.Email = "nope" }},
		{name: "bad_level", mutate: func(p *employee.CreateParams) { p.SecurityLevel = security.Level(7) }},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			params := createParams("bob", security.Level3)
			tt.mutate(&params)
			_, err := manager.Create(ctx, params)
			require.Error(t, err)
			assert.True(t, validator.IsValidationError(err))
		})
	}
}

func TestManager_ListBySecurityLevel(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	for _, p := range []employee.CreateParams{
		createParams("alice", security.Level1),
		createParams("bob", security.Level2),
		createParams("carol", security.Level4),
		createParams("dave", security.Level4),
	} {
		_, err := manager.Create(ctx, p)
		require.NoError(t, err)
	}

	level4, err := manager.ListBySecurityLevel(ctx, security.Level4)
	require.NoError(t, err)
	assert.Len(t, level4, 2)

	below, err := manager.ListBelowSecurityLevel(ctx, security.Level2)
	require.NoError(t, err)
	require.Len(t, below, 2)
	assert.Equal(t, "carol", below[0].Username)

	page, err := manager.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Username)
}

func TestManager_UpdateSecurityLevelAndStatus(t *testing.T) {
	manager, store := setupManager(t)
	ctx := context.Background()

	bob, err := manager.Create(ctx, createParams("bob", security.Level3))
	require.NoError(t, err)

	require.NoError(t, manager.UpdateSecurityLevel(ctx, bob.ID, security.Level1))
	assert.ErrorIs(t, manager.UpdateSecurityLevel(ctx, bob.ID, security.Level(0)), security.ErrInvalidSecurityLevelRank)
	require.NoError(t, manager.SetActive(ctx, bob.ID, false))

	got, err := manager.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, security.Level1, got.SecurityLevel)
	assert.False(t, got.Active)

	types := make([]audit.AuditLogEventType, 0)
	for _, e := range store.AuditLog() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []audit.AuditLogEventType{
		audit.AuditLogEventTypeEmployeeCreate,
		audit.AuditLogEventTypeEmployeeSecurityLevel,
		audit.AuditLogEventTypeEmployeeStatus,
	}, types)
}

func TestManager_UpdateProfile(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	alice, err := manager.Create(ctx, createParams("alice", security.Level2))
	require.NoError(t, err)
	_, err = manager.Create(ctx, createParams("bob", security.Level2))
	require.NoError(t, err)

	_, err = manager.UpdateProfile(ctx, alice.ID, employee.UpdateProfileParams{Email: util.Some("BOB@example.com")})
	assert.ErrorIs(t, err, employee.ErrEmailTaken)

	updated, err := manager.UpdateProfile(ctx, alice.ID, employee.UpdateProfileParams{
		FullName:   util.Some("Alice Liddell"),
		Department: util.Some("Finance"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.FullName)
	assert.Equal(t, "Finance", updated.Department)
	assert.Equal(t, "alice@example.com", updated.Email)

	_, err = manager.UpdateProfile(ctx, alice.ID, employee.UpdateProfileParams{FullName: util.Some(strings.Repeat("a", 101))})
	assert.True(t, validator.IsValidationError(err))
	_, err = manager.UpdateProfile(ctx, alice.ID, employee.UpdateProfileParams{FullName: util.Some("")})
	assert.True(t, validator.IsValidationError(err))
}

func TestManager_ListActiveAndByDepartment(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	alice, err := manager.Create(ctx, createParams("alice", security.Level1))
	require.NoError(t, err)
	finance := createParams("bob", security.Level2)
	finance.Department = "Finance"
	_, err = manager.Create(ctx, finance)
	require.NoError(t, err)
	_, err = manager.Create(ctx, createParams("carol", security.Level4))
	require.NoError(t, err)

	require.NoError(t, manager.SetActive(ctx, alice.ID, false))

	active, err := manager.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "bob", active[0].Username)

	engineering, err := manager.ListByDepartment(ctx, "Engineering")
	require.NoError(t, err)
	require.Len(t, engineering, 2)
	assert.Equal(t, "alice", engineering[0].Username)
	assert.Equal(t, "carol", engineering[1].Username)

	none, err := manager.ListByDepartment(ctx, "Legal")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestManager_ResetPassword(t *testing.T) {
	manager, store := setupManager(t)
	ctx := context.Background()

	alice, err := manager.Create(ctx, createParams("alice", security.Level2))
	require.NoError(t, err)

	assert.True(t, validator.IsValidationError(manager.ResetPassword(ctx, alice.ID, "short")))
	assert.ErrorIs(t, manager.ResetPassword(ctx, uuid.New(), "new-password-1"), employee.ErrEmployeeNotFound)
	require.NoError(t, manager.ResetPassword(ctx, alice.ID, "new-password-1"))

	got, err := manager.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("new-password-1")))

	log := store.AuditLog()
	assert.Equal(t, audit.AuditLogEventTypeEmployeePassword, log[len(log)-1].Type)
}

func TestManager_Delete(t *testing.T) {
	manager, store := setupManager(t)
	ctx := context.Background()

	owner, err := manager.Create(ctx, createParams("owner", security.Level2))
	require.NoError(t, err)
	viewer, err := manager.Create(ctx, createParams("viewer", security.Level4))
	require.NoError(t, err)

	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	event := calendar.Event{
		ID:            uuid.New(),
		Title:         "Budget review",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		CreatorID:     owner.ID,
		SecurityLevel: security.Level2,
		Viewers:       calendar.NewViewerSet(viewer.ID),
		CreatedAt:     start,
		UpdatedAt:     start,
	}
	require.NoError(t, store.CreateEvent(ctx, event, owner.Username))

	assert.ErrorIs(t, manager.Delete(ctx, owner.ID), employee.ErrHasEvents)
	assert.ErrorIs(t, manager.Delete(ctx, uuid.New()), employee.ErrEmployeeNotFound)

	require.NoError(t, manager.Delete(ctx, viewer.ID))
	_, err = manager.GetByID(ctx, viewer.ID)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	grants, err := store.ListGrants(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)

	log := store.AuditLog()
	assert.Equal(t, audit.AuditLogEventTypeEmployeeDelete, log[len(log)-1].Type)
}

func TestManager_ChangePassword(t *testing.T) {
	manager, _ := setupManager(t)
	ctx := context.Background()

	alice, err := manager.Create(ctx, createParams("alice", security.Level2))
	require.NoError(t, err)

	assert.ErrorIs(t, manager.ChangePassword(ctx, alice.ID, "wrong-password", "new-password-1"), employee.ErrInvalidPassword)
	require.NoError(t, manager.ChangePassword(ctx, alice.ID, "correct-horse", "new-password-1"))

	got, err := manager.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("new-password-1")))
}
