package attendance

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrStoreUnavailable = errors.New("attendance store unavailable")
)

// Tx is the view of one user's log inside that user's critical section.
type Tx interface {
	LastEvent(ctx context.Context) (*Event, error)
	CheckedInBetween(ctx context.Context, start, end time.Time) (bool, error)
	Append(ctx context.Context, evt Event) (Event, error)
}

// Store persists attendance events.
type Store interface {
	// WithUserLock runs fn while holding an exclusive lock on userID. Appends
	// made through the Tx become visible only if fn returns nil. It returns
	// ErrUserNotFound when the user does not exist.
	WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error
	ListEvents(ctx context.Context, userID string, limit, offset int) ([]Event, error)
}
