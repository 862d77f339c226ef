package attendance

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const aliceID = "4b6f1d2e-8c1a-4f7e-9a53-0d9f2f6d8e11"

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func eventColumns() []string {
	return []string{"id", "user_id", "occurred_at", "status"}
}

func TestPostgresCheckIn(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockUserQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(aliceID))
	mock.ExpectQuery(regexp.QuoteMeta(lastEventQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows(eventColumns()))
	mock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
		WithArgs(sqlmock.AnyArg(), aliceID, now, "check_in").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(store, time.UTC, quietLogger(), WithClock(func() time.Time { return now }))
	evt, err := svc.CheckInOrOut(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if evt.Status != CheckedIn || evt.UserID != aliceID {
		t.Fatalf("unexpected event %+v", evt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRejectsSecondCheckInSameDay(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC)
	start, end := DayWindow(now, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockUserQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(aliceID))
	mock.ExpectQuery(regexp.QuoteMeta(lastEventQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows(eventColumns()).
			AddRow("e2", aliceID, now.Add(-time.Hour), "check_out"))
	mock.ExpectQuery(regexp.QuoteMeta(checkedInBetweenQuery)).
		WithArgs(aliceID, "check_in", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	svc := NewService(store, time.UTC, quietLogger(), WithClock(func() time.Time { return now }))
	if _, err := svc.CheckInOrOut(context.Background(), aliceID); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCheckInOnNewDay(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 7, 8, 30, 0, 0, time.UTC)
	start := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 7, 23, 59, 59, 999_000_000, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockUserQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(aliceID))
	mock.ExpectQuery(regexp.QuoteMeta(lastEventQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows(eventColumns()).
			AddRow("e2", aliceID, now.Add(-15*time.Hour), "check_out"))
	mock.ExpectQuery(regexp.QuoteMeta(checkedInBetweenQuery)).
		WithArgs(aliceID, "check_in", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
		WithArgs(sqlmock.AnyArg(), aliceID, now, "check_in").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewService(store, time.UTC, quietLogger(), WithClock(func() time.Time { return now }))
	evt, err := svc.CheckInOrOut(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if evt.Status != CheckedIn || !evt.When.Equal(now) {
		t.Fatalf("unexpected event %+v", evt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockUserQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithUserLock(context.Background(), aliceID, func(Tx) error {
		t.Fatal("fn must not run for unknown users")
		return nil
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresMalformedUserID(t *testing.T) {
	store, mock := newMockStore(t)
	err := store.WithUserLock(context.Background(), "not-a-uuid", func(Tx) error { return nil })
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no queries expected: %v", err)
	}
}

func TestPostgresInsertFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockUserQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(aliceID))
	mock.ExpectQuery(regexp.QuoteMeta(lastEventQuery)).
		WithArgs(aliceID).
		WillReturnRows(sqlmock.NewRows(eventColumns()).
			AddRow("e1", aliceID, now.Add(-time.Hour), "check_in"))
	mock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	svc := NewService(store, time.UTC, quietLogger(), WithClock(func() time.Time { return now }))
	if _, err := svc.CheckInOrOut(context.Background(), aliceID); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresListEvents(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(listEventsQuery)).
		WithArgs(aliceID, 50, 0).
		WillReturnRows(sqlmock.NewRows(eventColumns()).
			AddRow("e2", aliceID, now, "check_out").
			AddRow("e1", aliceID, now.Add(-8*time.Hour), "check_in"))

	evts, err := store.ListEvents(context.Background(), aliceID, 0, -3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(evts) != 2 || evts[0].Status != CheckedOut || evts[1].Status != CheckedIn {
		t.Fatalf("unexpected events %+v", evts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
