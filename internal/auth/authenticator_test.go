package auth_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/auth"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/memstore"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var now = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

type countingLimiter struct {
	max      int
	attempts map[string]int
	err      error
}

func (l *countingLimiter) CheckLogin(_ context.Context, username string) error {
	if l.err != nil {
		return l.err
	}
	l.attempts[username]++
	if l.attempts[username] > l.max {
		return auth.ErrTooManyAttempts
	}
	return nil
}

func (l *countingLimiter) ResetLogin(_ context.Context, username string) error {
	delete(l.attempts, username)
	return nil
}

type memoryDenylist map[string]time.Time

func (d memoryDenylist) Add(_ context.Context, tokenID string, until time.Time) error {
	d[tokenID] = until
	return nil
}

func (d memoryDenylist) Contains(_ context.Context, tokenID string) (bool, error) {
	_, ok := d[tokenID]
	return ok, nil
}

type fixture struct {
	store         *memstore.Store
	tokens        token.Service
	authenticator auth.Authenticator
	logger        *slog.Logger
}

func setup(t *testing.T, limiter auth.Limiter, denylist session.Denylist) fixture {
	t.Helper()

	log := logger.Discard()
	store := memstore.New()
	auditor := audit.NewAuditor(log, store)
	tokens := token.NewService("0123456789abcdef0123456789abcdef", time.Hour, "calendar")

	authenticator := auth.NewAuthenticator(log, store, tokens, &auditor, limiter, denylist)
	authenticator.Now = func() time.Time { return now }

	return fixture{store: store, tokens: tokens, authenticator: authenticator, logger: log}
}

func (f fixture) seed(t *testing.T, username, password string, active bool) employee.Employee {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	e := employee.Employee{
		ID:            uuid.New(),
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  string(hash),
		SecurityLevel: security.Level3,
		Active:        active,
	}
	require.NoError(t, f.store.CreateEmployee(context.Background(), e))
	return e
}

func TestAuthenticator_Login(t *testing.T) {
	f := setup(t, nil, nil)
	ctx := context.Background()

	alice := f.seed(t, "alice", "wonderland", true)
	f.seed(t, "ivan", "inactive-pw", false)

	signed, e, err := f.authenticator.Login(ctx, auth.LoginParams{Username: " alice ", Password: "wonderland"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, e.ID)

	subject, err := f.tokens.Validate(signed, now)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	log := f.store.AuditLog()
	require.Len(t, log, 1)
	assert.Equal(t, audit.AuditLogEventTypeEmployeeLogin, log[0].Type)

	tests := []struct {
		name    string
		params  auth.LoginParams
		wantErr error
	}{
		{name: "wrong_password", params: auth.LoginParams{Username: "alice", Password: "nope"}, wantErr: auth.ErrInvalidCredentials},
		{name: "unknown_user", params: auth.LoginParams{Username: "mallory", Password: "wonderland"}, wantErr: auth.ErrInvalidCredentials},
		{name: "inactive", params: auth.LoginParams{Username: "ivan", Password: "inactive-pw"}, wantErr: auth.ErrEmployeeInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, _, err := f.authenticator.Login(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, signed)
		})
	}
}

func TestAuthenticator_RateLimit(t *testing.T) {
	limiter := &countingLimiter{max: 2, attempts: map[string]int{}}
	f := setup(t, limiter, nil)
	ctx := context.Background()

	f.seed(t, "alice", "wonderland", true)

	for range 2 {
		_, _, err := f.authenticator.Login(ctx, auth.LoginParams{Username: "alice", Password: "bad"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	_, _, err := f.authenticator.Login(ctx, auth.LoginParams{Username: "alice", Password: "wonderland"})
	assert.ErrorIs(t, err, auth.ErrTooManyAttempts)

	limiter.attempts = map[string]int{}
	_, _, err = f.authenticator.Login(ctx, auth.LoginParams{Username: "alice", Password: "wonderland"})
	require.NoError(t, err)
	assert.Empty(t, limiter.attempts)
}

func TestAuthenticator_RateLimiterUnavailable(t *testing.T) {
	limiter := &countingLimiter{max: 1, attempts: map[string]int{}, err: errors.New("connection refused")}
	f := setup(t, limiter, nil)

	f.seed(t, "alice", "wonderland", true)
	_, _, err := f.authenticator.Login(context.Background(), auth.LoginParams{Username: "alice", Password: "wonderland"})
	assert.NoError(t, err)
}

func TestAuthenticator_Logout(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		f := setup(t, nil, nil)
		err := f.authenticator.Logout(context.Background(), session.Anonymous())
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})

	t.Run("stateless", func(t *testing.T) {
		f := setup(t, nil, nil)
		ctx := context.Background()
		f.seed(t, "alice", "wonderland", true)

		signed, _, err := f.authenticator.Login(ctx, auth.LoginParams{Username: "alice", Password: "wonderland"})
		require.NoError(t, err)

		resolver := session.NewResolver(f.logger, f.tokens, f.store, nil)
		resolver.Now = func() time.Time { return now }
		sess := resolver.ResolveToken(ctx, signed)
		require.True(t, sess.IsAuthenticated())

		require.NoError(t, f.authenticator.Logout(ctx, sess))
		assert.True(t, resolver.ResolveToken(ctx, signed).IsAuthenticated())
		assert.Equal(t, audit.AuditLogEventTypeEmployeeLogout, f.store.AuditLog()[1].Type)
	})

	t.Run("denylist", func(t *testing.T) {
		denylist := memoryDenylist{}
		f := setup(t, nil, denylist)
		ctx := context.Background()
		f.seed(t, "alice", "wonderland", true)

		signed, _, err := f.authenticator.Login(ctx, auth.LoginParams{Username: "alice", Password: "wonderland"})
		require.NoError(t, err)

		resolver := session.NewResolver(f.logger, f.tokens, f.store, denylist)
		resolver.Now = func() time.Time { return now }
		sess := resolver.ResolveToken(ctx, signed)
		require.True(t, sess.IsAuthenticated())

		require.NoError(t, f.authenticator.Logout(ctx, sess))
		assert.False(t, resolver.ResolveToken(ctx, signed).IsAuthenticated())
	})
}
