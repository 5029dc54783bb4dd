package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/memstore"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/session"
	"github.com/freekieb7/calendar/internal/token"
	"github.com/freekieb7/calendar/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

type memoryDenylist struct {
	ids map[string]time.Time
	err error
}

func (d *memoryDenylist) Add(_ context.Context, tokenID string, until time.Time) error {
	d.ids[tokenID] = until
	return nil
}

func (d *memoryDenylist) Contains(_ context.Context, tokenID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.ids[tokenID]
	return ok, nil
}

func setupResolver(t *testing.T, denylist session.Denylist) (session.Resolver, *memstore.Store, token.Service) {
	t.Helper()

	log := logger.Discard()
	store := memstore.New()
	tokens := token.NewService("0123456789abcdef0123456789abcdef", time.Hour, "calendar")

	resolver := session.NewResolver(log, tokens, store, denylist)
	resolver.Now = func() time.Time { return now }
	return resolver, store, tokens
}

func seedEmployee(t *testing.T, store *memstore.Store, username string, active bool) employee.Employee {
	t.Helper()

	e := employee.Employee{
		ID:            uuid.New(),
		Username:      username,
		Email:         username + "@example.com",
		SecurityLevel: security.Level2,
		Active:        active,
	}
	require.NoError(t, store.CreateEmployee(context.Background(), e))
	return e
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{header: "bearer   abc", want: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer ", ok: false},
		{header: "abc", ok: false},
		{header: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := session.BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	resolver, store, tokens := setupResolver(t, nil)
	ctx := context.Background()

	alice := seedEmployee(t, store, "alice", true)
	seedEmployee(t, store, "ivan", false)

	valid, err := tokens.Issue("alice", now)
	require.NoError(t, err)
	inactive, err := tokens.Issue("ivan", now)
	require.NoError(t, err)
	ghost, err := tokens.Issue("ghost", now)
	require.NoError(t, err)
	expired, err := tokens.Issue("alice", now.Add(-2*time.Hour))
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		sess := resolver.Resolve(ctx, "Bearer "+valid)
		require.True(t, sess.IsAuthenticated())
		current, ok := sess.CurrentEmployee()
		require.True(t, ok)
		assert.Equal(t, alice.ID, current.ID)
		assert.NotEmpty(t, sess.TokenID())
		assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt().UTC())
	})

	anonymous := []struct {
		name   string
		header string
	}{
		{name: "missing_header", header: ""},
		{name: "malformed", header: "Bearer corrupted-token"},
		{name: "expired", header: "Bearer " + expired},
		{name: "unknown_employee", header: "Bearer " + ghost},
		{name: "inactive_employee", header: "Bearer " + inactive},
	}

	for _, tt := range anonymous {
		t.Run(tt.name, func(t *testing.T) {
			sess := resolver.Resolve(ctx, tt.header)
			assert.False(t, sess.IsAuthenticated())
			_, ok := sess.CurrentEmployee()
			assert.False(t, ok)
		})
	}
}

func TestResolver_DeactivatedAfterIssue(t *testing.T) {
	resolver, store, tokens := setupResolver(t, nil)
	ctx := context.Background()

	bob := seedEmployee(t, store, "bob", true)
	raw, err := tokens.Issue("bob", now)
	require.NoError(t, err)
	require.True(t, resolver.ResolveToken(ctx, raw).IsAuthenticated())

	require.NoError(t, store.UpdateEmployeeByID(ctx, bob.ID, employee.UpdateParams{Active: util.Some(false)}))
	assert.False(t, resolver.ResolveToken(ctx, raw).IsAuthenticated())
}

func TestResolver_Denylist(t *testing.T) {
	denylist := &memoryDenylist{ids: map[string]time.Time{}}
	resolver, store, tokens := setupResolver(t, denylist)
	ctx := context.Background()

	seedEmployee(t, store, "alice", true)
	raw, err := tokens.Issue("alice", now)
	require.NoError(t, err)

	sess := resolver.ResolveToken(ctx, raw)
	require.True(t, sess.IsAuthenticated())

	require.NoError(t, denylist.Add(ctx, sess.TokenID(), sess.ExpiresAt()))
	assert.False(t, resolver.ResolveToken(ctx, raw).IsAuthenticated())

	denylist.err = errors.New("connection refused")
	other, err := tokens.Issue("alice", now)
	require.NoError(t, err)
	assert.False(t, resolver.ResolveToken(ctx, other).IsAuthenticated())
}

func TestContext(t *testing.T) {
	assert.False(t, session.FromContext(context.Background()).IsAuthenticated())

	e := employee.Employee{ID: uuid.New(), Username: "alice"}
	ctx := session.NewContext(context.Background(), session.Authenticated(e, "jti", now))

	current, ok := session.FromContext(ctx).CurrentEmployee()
	require.True(t, ok)
	assert.Equal(t, e.ID, current.ID)
}
