package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/freekieb7/calendar/internal/audit"
	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/logger"
	"github.com/freekieb7/calendar/internal/memstore"
	"github.com/freekieb7/calendar/internal/seed"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()
	store := memstore.New()
	auditor := audit.NewAuditor(log, store)
	v := validator.New()
	employees := employee.NewManager(log, store, &auditor, v)
	planner := calendar.NewManager(log, store, store, &auditor, v)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	credentials, err := seed.Seed(ctx, log, &employees, &planner, now)
	require.NoError(t, err)
	require.Len(t, credentials, 4)

	intern, err := store.GetEmployeeByUsername(ctx, "intern")
	require.NoError(t, err)

	visible, err := planner.VisibleEventsForMonth(ctx, intern, 2025, 3)
	require.NoError(t, err)

	var titles []string
	for _, event := range visible {
		titles = append(titles, event.Title)
	}
	assert.Equal(t, []string{"Budget review", "Team lunch"}, titles)

	t.Run("is idempotent", func(t *testing.T) {
		again, err := seed.Seed(ctx, log, &employees, &planner, now)
		require.NoError(t, err)
		assert.Empty(t, again)

		events, err := store.ListEvents(ctx, calendar.ListEventsParams{})
		require.NoError(t, err)
		assert.Len(t, events, 4)
	})
}
