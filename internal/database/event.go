package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freekieb7/calendar/internal/calendar"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, title, description, start_time, end_time, location, creator_id, security_level, created_at, updated_at`

// CreateEvent inserts the event and its initial grants in one transaction.
func (db *Database) CreateEvent(ctx context.Context, event calendar.Event, grantedBy string) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO tbl_event (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			event.ID, event.Title, event.Description, event.StartTime, event.EndTime, event.Location,
			event.CreatorID, event.SecurityLevel.String(), event.CreatedAt, event.UpdatedAt); err != nil {
			return fmt.Errorf("database: failed to insert event (id=%s): %w", event.ID, err)
		}

		for _, employeeID := range event.Viewers.IDs() {
			if _, err := insertGrant(ctx, tx, calendar.Grant{
				EventID:    event.ID,
				EmployeeID: employeeID,
				GrantedAt:  event.CreatedAt,
				GrantedBy:  grantedBy,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEventByID reads the event and its grant set from one snapshot.
func (db *Database) GetEventByID(ctx context.Context, id uuid.UUID) (calendar.Event, error) {
	var event calendar.Event

	err := pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		event, err = scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM tbl_event WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return calendar.ErrEventNotFound
			}
			return fmt.Errorf("database: failed to scan event: %w", err)
		}

		viewers, err := loadViewers(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		event.Viewers = viewers[id]
		if event.Viewers == nil {
			event.Viewers = calendar.NewViewerSet()
		}
		return nil
	})
	if err != nil {
		return calendar.Event{}, err
	}
	return event, nil
}

func (db *Database) ListEvents(ctx context.Context, params calendar.ListEventsParams) ([]calendar.Event, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + eventColumns + ` FROM tbl_event WHERE 1=1`)
	var args []any
	argNum := 1

	if params.CreatorID.IsSet {
		query.WriteString(fmt.Sprintf(" AND creator_id = $%d", argNum))
		args = append(args, params.CreatorID.Val)
		argNum++
	}
	if params.End.IsSet {
		query.WriteString(fmt.Sprintf(" AND start_time <= $%d", argNum))
		args = append(args, params.End.Val)
		argNum++
	}
	if params.Start.IsSet {
		query.WriteString(fmt.Sprintf(" AND end_time >= $%d", argNum))
		args = append(args, params.Start.Val)
		argNum++
	}
	if params.Keyword.IsSet {
		query.WriteString(fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+escapeLike(params.Keyword.Val)+"%")
	}
	query.WriteString(" ORDER BY start_time ASC, id ASC")

	var events []calendar.Event
	err := pgx.BeginTxFunc(ctx, db.Pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query.String(), args...)
		if err != nil {
			return fmt.Errorf("database: failed to list events: %w", err)
		}
		events, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (calendar.Event, error) {
			return scanEvent(row)
		})
		if err != nil {
			return fmt.Errorf("database: failed to scan event: %w", err)
		}

		ids := make([]uuid.UUID, len(events))
		for i, event := range events {
			ids[i] = event.ID
		}
		viewers, err := loadViewers(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range events {
			if set, ok := viewers[events[i].ID]; ok {
				events[i].Viewers = set
			} else {
				events[i].Viewers = calendar.NewViewerSet()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []calendar.Event{}
	}
	return events, nil
}

// UpdateEventByID applies the set fields and, when Viewers is set, replaces
// the grant set, all in one transaction.
func (db *Database) UpdateEventByID(ctx context.Context, id uuid.UUID, params calendar.UpdateEventParams) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		var query strings.Builder
		query.WriteString(`UPDATE tbl_event SET `)
		args := []any{}
		argNum := 1

		set := func(column string, value any) {
			query.WriteString(fmt.Sprintf("%s = $%d, ", column, argNum))
			args = append(args, value)
			argNum++
		}

		if params.Title.IsSet {
			set("title", params.Title.Val)
		}
		if params.Description.IsSet {
			set("description", params.Description.Val)
		}
		if params.StartTime.IsSet {
			set("start_time", params.StartTime.Val.UTC())
		}
		if params.EndTime.IsSet {
			set("end_time", params.EndTime.Val.UTC())
		}
		if params.Location.IsSet {
			set("location", params.Location.Val)
		}
		if params.SecurityLevel.IsSet {
			set("security_level", params.SecurityLevel.Val.String())
		}
		now := time.Now().UTC()
		query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
		args = append(args, now, id)

		tag, err := tx.Exec(ctx, query.String(), args...)
		if err != nil {
			return fmt.Errorf("database: failed to update event (id=%s): %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return calendar.ErrEventNotFound
		}

		if !params.Viewers.IsSet {
			return nil
		}

		wanted := params.Viewers.Val.IDs()
		if _, err := tx.Exec(ctx, `DELETE FROM tbl_event_view_permission WHERE event_id = $1 AND NOT (employee_id = ANY($2))`, id, wanted); err != nil {
			return fmt.Errorf("database: failed to prune view permissions (event_id=%s): %w", id, err)
		}
		for _, employeeID := range wanted {
			if _, err := insertGrant(ctx, tx, calendar.Grant{EventID: id, EmployeeID: employeeID, GrantedAt: now, GrantedBy: params.GrantedBy}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *Database) DeleteEventByID(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_event WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete event (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return calendar.ErrEventNotFound
	}
	return nil
}

func (db *Database) CreateGrant(ctx context.Context, grant calendar.Grant) (bool, error) {
	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tbl_event WHERE id = $1)`, grant.EventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("database: failed to check event (id=%s): %w", grant.EventID, err)
	}
	if !exists {
		return false, calendar.ErrEventNotFound
	}
	return insertGrant(ctx, db.Pool, grant)
}

func (db *Database) DeleteGrant(ctx context.Context, eventID, employeeID uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM tbl_event_view_permission WHERE event_id = $1 AND employee_id = $2`, eventID, employeeID); err != nil {
		return fmt.Errorf("database: failed to delete view permission (event_id=%s, employee_id=%s): %w", eventID, employeeID, err)
	}
	return nil
}

func (db *Database) ListGrants(ctx context.Context, eventID uuid.UUID) ([]calendar.Grant, error) {
	rows, err := db.Pool.Query(ctx, `SELECT event_id, employee_id, granted_at, granted_by FROM tbl_event_view_permission WHERE event_id = $1 ORDER BY granted_at ASC, employee_id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list view permissions: %w", err)
	}
	defer rows.Close()

	grants := make([]calendar.Grant, 0)
	for rows.Next() {
		var grant calendar.Grant
		if err := rows.Scan(&grant.EventID, &grant.EmployeeID, &grant.GrantedAt, &grant.GrantedBy); err != nil {
			return nil, fmt.Errorf("database: failed to scan view permission: %w", err)
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate view permissions: %w", err)
	}
	return grants, nil
}

func insertGrant(ctx context.Context, q querier, grant calendar.Grant) (bool, error) {
	tag, err := q.Exec(ctx, `INSERT INTO tbl_event_view_permission (event_id, employee_id, granted_at, granted_by) VALUES ($1, $2, $3, $4) ON CONFLICT (event_id, employee_id) DO NOTHING`,
		grant.EventID, grant.EmployeeID, grant.GrantedAt, grant.GrantedBy)
	if err != nil {
		return false, fmt.Errorf("database: failed to insert view permission (event_id=%s, employee_id=%s): %w", grant.EventID, grant.EmployeeID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func loadViewers(ctx context.Context, q querier, eventIDs []uuid.UUID) (map[uuid.UUID]calendar.ViewerSet, error) {
	viewers := make(map[uuid.UUID]calendar.ViewerSet, len(eventIDs))
	if len(eventIDs) == 0 {
		return viewers, nil
	}

	rows, err := q.Query(ctx, `SELECT event_id, employee_id FROM tbl_event_view_permission WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("database: failed to load viewers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID, employeeID uuid.UUID
		if err := rows.Scan(&eventID, &employeeID); err != nil {
			return nil, fmt.Errorf("database: failed to scan viewer: %w", err)
		}
		set, ok := viewers[eventID]
		if !ok {
			set = calendar.NewViewerSet()
			viewers[eventID] = set
		}
		set[employeeID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate viewers: %w", err)
	}
	return viewers, nil
}

func scanEvent(row pgx.Row) (calendar.Event, error) {
	var event calendar.Event
	var level string
	if err := row.Scan(&event.ID, &event.Title, &event.Description, &event.StartTime, &event.EndTime, &event.Location,
		&event.CreatorID, &level, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return calendar.Event{}, err
	}

	var err error
	if event.SecurityLevel, err = parseLevel(level); err != nil {
		return calendar.Event{}, err
	}
	event.StartTime = event.StartTime.UTC()
	event.EndTime = event.EndTime.UTC()
	return event, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
