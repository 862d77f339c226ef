package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	lockUserQuery = `SELECT id FROM users WHERE id = $1 FOR UPDATE`

	lastEventQuery = `
		SELECT id, user_id, occurred_at, status
		FROM attendance_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1
	`
	checkedInBetweenQuery = `
		SELECT EXISTS (
			SELECT 1 FROM attendance_events
			WHERE user_id = $1 AND status = $2 AND occurred_at BETWEEN $3 AND $4
		)
	`
	insertEventQuery = `
		INSERT INTO attendance_events (id, user_id, occurred_at, status)
		VALUES ($1, $2, $3, $4)
	`
	listEventsQuery = `
		SELECT id, user_id, occurred_at, status
		FROM attendance_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
)

// PostgresStore persists attendance events in Postgres. The per-user lock
// is a row lock on the user's row held for the transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithUserLock implements Store.
func (s *PostgresStore) WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error {
	if _, err := uuid.Parse(userID); err != nil {
		return ErrUserNotFound
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, lockUserQuery, userID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	if err := fn(&pgTx{tx: tx, userID: userID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListEvents returns the user's events, newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, userID string, limit, offset int) ([]Event, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, listEventsQuery, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.UserID, &evt.When, &evt.Status); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

type pgTx struct {
	tx     *sql.Tx
	userID string
}

func (t *pgTx) LastEvent(ctx context.Context) (*Event, error) {
	var evt Event
	err := t.tx.QueryRowContext(ctx, lastEventQuery, t.userID).Scan(&evt.ID, &evt.UserID, &evt.When, &evt.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select last event: %w", err)
	}
	return &evt, nil
}

func (t *pgTx) CheckedInBetween(ctx context.Context, start, end time.Time) (bool, error) {
	var found bool
	if err := t.tx.QueryRowContext(ctx, checkedInBetweenQuery, t.userID, CheckedIn, start, end).Scan(&found); err != nil {
		return false, fmt.Errorf("select day check-ins: %w", err)
	}
	return found, nil
}

func (t *pgTx) Append(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.UserID = t.userID
	if _, err := t.tx.ExecContext(ctx, insertEventQuery, evt.ID, evt.UserID, evt.When, evt.Status); err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return evt, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
