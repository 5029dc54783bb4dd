package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/freekieb7/calendar/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Migrator runs the embedded schema migrations over a database/sql handle.
type Migrator struct {
	db      *sql.DB
	migrate *migrate.Migrate
}

func NewMigrator(connString string) (*Migrator, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{db: db, migrate: m}, nil
}

// Up applies pending migrations; steps <= 0 means all of them. It reports
// false when there was nothing to apply.
func (m *Migrator) Up(steps int) (bool, error) {
	var err error
	if steps > 0 {
		err = m.migrate.Steps(steps)
	} else {
		err = m.migrate.Up()
	}
	return changed(err)
}

// Down rolls back steps migrations, at least one.
func (m *Migrator) Down(steps int) (bool, error) {
	if steps <= 0 {
		steps = 1
	}
	return changed(m.migrate.Steps(-steps))
}

// Drop removes every migration, leaving an empty schema.
func (m *Migrator) Drop() (bool, error) {
	return changed(m.migrate.Down())
}

func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) Force(version int) error {
	return m.migrate.Force(version)
}

func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr, m.db.Close())
}

func changed(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
