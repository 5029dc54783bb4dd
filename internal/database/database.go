package database

import (
	"context"
	"fmt"

	"github.com/freekieb7/calendar/internal/security"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// foreignKeyViolation is the Postgres SQLSTATE for foreign_key_violation.
const foreignKeyViolation = "23503"

type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string, maxConns int) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = int32(maxConns)
	}

	db.Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	if err := db.Pool.Ping(ctx); err != nil {
		db.Pool.Close()
		return fmt.Errorf("unable to ping database: %w", err)
	}

	return nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func parseLevel(value string) (security.Level, error) {
	level, err := security.ParseLevel(value)
	if err != nil {
		return level, fmt.Errorf("database: stored security level %q: %w", value, err)
	}
	return level, nil
}
