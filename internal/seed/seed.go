// Package seed fills an empty store with one employee per security level and
// a handful of events that exercise the visibility rules.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freekieb7/calendar/internal/calendar"
	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/util"

	"github.com/google/uuid"
)

// Credential is a seeded login. Password is only known at seed time.
type Credential struct {
	Username      string
	Password      string
	SecurityLevel security.Level
}

type demoEmployee struct {
	username   string
	fullName   string
	department string
	level      security.Level
}

var demoEmployees = []demoEmployee{
	{"director", "Dana Director", "Board", security.Level1},
	{"manager", "Morgan Manager", "Finance", security.Level2},
	{"engineer", "Emery Engineer", "Engineering", security.Level3},
	{"intern", "Indy Intern", "Engineering", security.Level4},
}

// Seed creates the demo employees that do not exist yet and, when all of them
// are new, their events in the month of now. Existing data is left alone.
func Seed(ctx context.Context, logger *slog.Logger, employees *employee.Manager, planner *calendar.Manager, now time.Time) ([]Credential, error) {
	created := make(map[string]employee.Employee, len(demoEmployees))
	credentials := make([]Credential, 0, len(demoEmployees))

	for _, demo := range demoEmployees {
		password, err := util.RandomPassword(12)
		if err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}

		e, err := employees.Create(ctx, employee.CreateParams{
			Username:      demo.username,
			Password:      password,
			FullName:      demo.fullName,
			Email:         demo.username + "@example.com",
			Department:    demo.department,
			SecurityLevel: demo.level,
		})
		if err != nil {
			if errors.Is(err, employee.ErrUsernameTaken) || errors.Is(err, employee.ErrEmailTaken) {
				logger.Info("seed: employee already exists", "username", demo.username)
				continue
			}
			return nil, fmt.Errorf("failed to seed employee %s: %w", demo.username, err)
		}

		created[demo.username] = e
		credentials = append(credentials, Credential{Username: e.Username, Password: password, SecurityLevel: e.SecurityLevel})
	}

	if len(created) != len(demoEmployees) {
		return credentials, nil
	}

	if err := seedEvents(ctx, planner, created, now); err != nil {
		return credentials, err
	}
	return credentials, nil
}

func seedEvents(ctx context.Context, planner *calendar.Manager, staff map[string]employee.Employee, now time.Time) error {
	day := time.Date(now.Year(), now.Month(), 15, 9, 0, 0, 0, time.UTC)

	events := []struct {
		creator string
		params  calendar.CreateEventParams
	}{
		{"director", calendar.CreateEventParams{
			Title:         "Board meeting",
			Description:   "Quarterly strategy review",
			StartTime:     day,
			EndTime:       day.Add(2 * time.Hour),
			Location:      "Boardroom",
			SecurityLevel: util.Some(security.Level1),
		}},
		{"manager", calendar.CreateEventParams{
			Title:         "Budget review",
			Description:   "Department budgets for next quarter",
			StartTime:     day.Add(3 * time.Hour),
			EndTime:       day.Add(4 * time.Hour),
			Location:      "Room 2.14",
			SecurityLevel: util.Some(security.Level2),
			// The intern takes the minutes.
			ViewerIDs: []uuid.UUID{staff["intern"].ID},
		}},
		{"engineer", calendar.CreateEventParams{
			Title:       "Sprint planning",
			StartTime:   day.AddDate(0, 0, 1),
			EndTime:     day.AddDate(0, 0, 1).Add(time.Hour),
			Location:    "Room 3.02",
			Description: "Plan the next two weeks",
		}},
		{"intern", calendar.CreateEventParams{
			Title:     "Team lunch",
			StartTime: day.AddDate(0, 0, 2).Add(3 * time.Hour),
			EndTime:   day.AddDate(0, 0, 2).Add(4 * time.Hour),
			Location:  "Canteen",
		}},
	}

	for _, event := range events {
		if _, err := planner.CreateEvent(ctx, staff[event.creator], event.params); err != nil {
			return fmt.Errorf("failed to seed event %q: %w", event.params.Title, err)
		}
	}
	return nil
}
