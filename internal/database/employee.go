package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freekieb7/calendar/internal/employee"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const employeeColumns = `id, username, full_name, email, department, password_hash, security_level, is_active, created_at, updated_at`

func (db *Database) CreateEmployee(ctx context.Context, e employee.Employee) error {
	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_employee (`+employeeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Username, e.FullName, e.Email, e.Department, e.PasswordHash, e.SecurityLevel.String(), e.Active, e.CreatedAt, e.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return employee.ErrEmailTaken
			}
			return employee.ErrUsernameTaken
		}
		return fmt.Errorf("database: failed to insert employee (username=%s): %w", e.Username, err)
	}
	return nil
}

func (db *Database) GetEmployeeByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return db.getEmployee(ctx, `id = $1`, id)
}

func (db *Database) GetEmployeeByUsername(ctx context.Context, username string) (employee.Employee, error) {
	return db.getEmployee(ctx, `username = $1`, username)
}

func (db *Database) GetEmployeeByEmail(ctx context.Context, email string) (employee.Employee, error) {
	return db.getEmployee(ctx, `email = $1`, email)
}

func (db *Database) getEmployee(ctx context.Context, where string, arg any) (employee.Employee, error) {
	e, err := scanEmployee(db.Pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM tbl_employee WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return e, employee.ErrEmployeeNotFound
		}
		return e, fmt.Errorf("database: failed to scan employee: %w", err)
	}
	return e, nil
}

func (db *Database) ListEmployees(ctx context.Context, params employee.ListParams) ([]employee.Employee, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + employeeColumns + ` FROM tbl_employee WHERE 1=1`)
	var args []any
	argNum := 1

	if params.Active.IsSet {
		query.WriteString(fmt.Sprintf(" AND is_active = $%d", argNum))
		args = append(args, params.Active.Val)
		argNum++
	}
	if params.Department.IsSet {
		query.WriteString(fmt.Sprintf(" AND department = $%d", argNum))
		args = append(args, params.Department.Val)
		argNum++
	}
	if params.SecurityLevel.IsSet {
		query.WriteString(fmt.Sprintf(" AND security_level = $%d", argNum))
		args = append(args, params.SecurityLevel.Val.String())
		argNum++
	}
	if params.BelowSecurityLevel.IsSet {
		// Levels are stored as LEVEL_n, so text order equals rank order.
		query.WriteString(fmt.Sprintf(" AND security_level > $%d", argNum))
		args = append(args, params.BelowSecurityLevel.Val.String())
		argNum++
	}
	query.WriteString(" ORDER BY username ASC")
	if params.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", argNum))
		args = append(args, params.Limit)
		argNum++
	}
	if params.Offset > 0 {
		query.WriteString(fmt.Sprintf(" OFFSET $%d", argNum))
		args = append(args, params.Offset)
	}

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := make([]employee.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate employees: %w", err)
	}

	return employees, nil
}

func (db *Database) UpdateEmployeeByID(ctx context.Context, id uuid.UUID, params employee.UpdateParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_employee SET `)
	args := []any{}
	argNum := 1

	set := func(column string, value any) {
		query.WriteString(fmt.Sprintf("%s = $%d, ", column, argNum))
		args = append(args, value)
		argNum++
	}

	if params.FullName.IsSet {
		set("full_name", params.FullName.Val)
	}
	if params.Email.IsSet {
		set("email", params.Email.Val)
	}
	if params.Department.IsSet {
		set("department", params.Department.Val)
	}
	if params.PasswordHash.IsSet {
		set("password_hash", params.PasswordHash.Val)
	}
	if params.SecurityLevel.IsSet {
		set("security_level", params.SecurityLevel.Val.String())
	}
	if params.Active.IsSet {
		set("is_active", params.Active.Val)
	}
	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := db.Pool.Exec(ctx, query.String(), args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return employee.ErrEmailTaken
		}
		return fmt.Errorf("database: failed to update employee (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// DeleteEmployeeByID relies on the grant table cascading. Events reference
// their creator without a cascade, so owners are refused.
func (db *Database) DeleteEmployeeByID(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_employee WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return employee.ErrHasEvents
		}
		return fmt.Errorf("database: failed to delete employee (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	var level string
	if err := row.Scan(&e.ID, &e.Username, &e.FullName, &e.Email, &e.Department, &e.PasswordHash, &level, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return employee.Employee{}, err
	}

	var err error
	if e.SecurityLevel, err = parseLevel(level); err != nil {
		return employee.Employee{}, err
	}
	return e, nil
}
