package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Migration is one ordered schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   int        `db:"version"`
	Name      string     `db:"name"`
	AppliedAt *time.Time `db:"applied_at"`
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrations lists the catalog schema in apply order. Versions are never reused.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	user_type TEXT NOT NULL CHECK (user_type IN ('student', 'staff', 'admin')),
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	student_id TEXT UNIQUE,
	password_hash TEXT NOT NULL,
	department TEXT,
	role TEXT,
	parent_email TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_login TIMESTAMPTZ
)`,
	},
	{
		Version: 2,
		Name:    "create_user_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS user_sessions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	session_token TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions (expires_at)`,
	},
	{
		Version: 3,
		Name:    "create_books",
		SQL: `CREATE TABLE IF NOT EXISTS books (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	genre TEXT,
	isbn TEXT,
	availability_status TEXT NOT NULL DEFAULT 'available' CHECK (availability_status IN ('available', 'checked_out')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
	{
		Version: 4,
		Name:    "create_book_checkouts",
		SQL: `CREATE TABLE IF NOT EXISTS book_checkouts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	book_id BIGINT NOT NULL REFERENCES books(id),
	checkout_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	due_date TIMESTAMPTZ NOT NULL,
	return_date TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'returned'))
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_book_checkouts_active_book ON book_checkouts (book_id) WHERE status = 'active';
CREATE UNIQUE INDEX IF NOT EXISTS uq_book_checkouts_active_user_book ON book_checkouts (user_id, book_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_book_checkouts_checkout_date ON book_checkouts (checkout_date DESC)`,
	},
}

// Migrator applies Migrations and records them in schema_migrations.
type Migrator struct {
	db         *sqlx.DB
	migrations []Migration
}

// NewMigrator builds a migrator over the catalog schema.
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{db: db, migrations: Migrations}
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	var rows []MigrationStatus
	if err := m.db.SelectContext(ctx, &rows, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[int]time.Time, len(rows))
	for _, row := range rows {
		if row.AppliedAt != nil {
			done[row.Version] = *row.AppliedAt
		}
	}
	return done, nil
}

// Up applies every pending migration, each in its own transaction, and returns
// the versions it applied. Running it twice applies nothing the second time.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var appliedNow []int
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return appliedNow, err
		}
		appliedNow = append(appliedNow, mig.Version)
	}
	return appliedNow, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", mig.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("apply migration %d_%s: %w", mig.Version, mig.Name, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return fmt.Errorf("record migration %d: %w", mig.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", mig.Version, err)
	}
	return nil
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		status := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := done[mig.Version]; ok {
			at := at
			status.AppliedAt = &at
		}
		out = append(out, status)
	}
	return out, nil
}
