package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Step is one ordered schema statement.
type Step struct {
	Index       int
	Description string
	Query       string
}

// UsersSchema creates the users table.
var UsersSchema = []Step{
	{
		Index:       1,
		Description: "Create table: users",
		Query: `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			name          VARCHAR(100) NOT NULL,
			age           INT NOT NULL CHECK (age > 0),
			email         VARCHAR(100) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Index:       2,
		Description: "Create unique index: users(lower(email))",
		Query: `
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx
			ON users (lower(email));`,
	},
}

// AttendanceSchema creates the attendance log. It references users, so
// UsersSchema has to be applied first.
var AttendanceSchema = []Step{
	{
		Index:       1,
		Description: "Create table: attendance_events",
		Query: `
		CREATE TABLE IF NOT EXISTS attendance_events (
			id          UUID PRIMARY KEY,
			user_id     UUID NOT NULL REFERENCES users(id),
			occurred_at TIMESTAMPTZ NOT NULL,
			status      VARCHAR(16) NOT NULL CHECK (status IN ('check_in', 'check_out'))
		);`,
	},
	{
		Index:       2,
		Description: "Create index: attendance_events(user_id, occurred_at)",
		Query: `
		CREATE INDEX IF NOT EXISTS idx_attendance_events_user_time
			ON attendance_events (user_id, occurred_at DESC);`,
	},
}

// Migrator applies schema steps. Every statement is idempotent, so applying
// the same steps twice is a no-op.
type Migrator struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewMigrator creates a migrator over db.
func NewMigrator(db *sql.DB, log logrus.FieldLogger) *Migrator {
	return &Migrator{db: db, log: log}
}

// Apply runs steps in order inside one transaction.
func (m *Migrator) Apply(ctx context.Context, steps []Step) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.Query); err != nil {
			return fmt.Errorf("schema step %d (%s): %w", s.Index, s.Description, err)
		}
		m.log.WithField("step", s.Index).Debug(s.Description)
	}
	return tx.Commit()
}

// NoopMigrator satisfies schema bootstrap for backends without a schema.
type NoopMigrator struct{}

// Apply does nothing.
func (NoopMigrator) Apply(context.Context, []Step) error { return nil }
