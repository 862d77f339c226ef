package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Publisher is told about every event after it has been committed.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Service applies the check-in/check-out rule on top of a Store.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	pub   Publisher
	log   logrus.FieldLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets where committed events are announced.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// NewService creates a service; loc defines the calendar day.
func NewService(store Store, loc *time.Location, log logrus.FieldLogger, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{store: store, loc: loc, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CheckInOrOut records the next attendance event for userID. It returns
// ErrAlreadyCheckedIn when today's check-in was already used,
// ErrUserNotFound for unknown users and an error matching
// ErrStoreUnavailable when persistence fails, in which case nothing is written.
func (s *Service) CheckInOrOut(ctx context.Context, userID string) (Event, error) {
	var (
		decision Decision
		recorded Event
	)
	err := s.store.WithUserLock(ctx, userID, func(tx Tx) error {
		last, err := tx.LastEvent(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		if last != nil && !now.After(last.When) {
			// Keep the per-user log strictly ordered if the clock stalls or steps back.
			now = last.When.Add(time.Microsecond)
		}

		checkedInToday := false
		if NeedsDayCheck(last) {
			start, end := DayWindow(now, s.loc)
			if checkedInToday, err = tx.CheckedInBetween(ctx, start, end); err != nil {
				return err
			}
		}

		decision = Decide(last, checkedInToday)
		if decision.Action == Reject {
			return nil
		}
		recorded, err = tx.Append(ctx, Event{When: now, Status: decision.Status})
		return err
	})
	switch {
	case errors.Is(err, ErrUserNotFound):
		return Event{}, err
	case err != nil:
		storeErrorsTotal.Inc()
		return Event{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	observeDecision(decision)
	if decision.Action == Reject {
		return Event{}, ErrAlreadyCheckedIn
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"event_id": recorded.ID,
		"status":   recorded.Status.String(),
	}).Info("attendance recorded")

	if s.pub != nil {
		if err := s.pub.Publish(ctx, recorded); err != nil {
			s.log.WithError(err).WithField("event_id", recorded.ID).Warn("publish attendance event failed")
		}
	}
	return recorded, nil
}

// History lists the user's events, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]Event, error) {
	events, err := s.store.ListEvents(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return events, nil
}
