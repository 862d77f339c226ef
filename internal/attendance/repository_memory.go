package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// MemoryStore keeps attendance events in process memory, serializing
// decisions per user with one mutex each.
type MemoryStore struct {
	users UserDirectory

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu     sync.RWMutex
	events map[string][]Event
}

// NewMemoryStore creates an empty store backed by users for existence checks.
func NewMemoryStore(users UserDirectory) *MemoryStore {
	return &MemoryStore{
		users:  users,
		locks:  make(map[string]*sync.Mutex),
		events: make(map[string][]Event),
	}
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithUserLock implements Store.
func (s *MemoryStore) WithUserLock(ctx context.Context, userID string, fn func(Tx) error) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	tx := &memTx{store: s, userID: userID}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.events[userID] = append(s.events[userID], tx.pending...)
	s.mu.Unlock()
	return nil
}

// ListEvents returns the user's events, newest first.
func (s *MemoryStore) ListEvents(_ context.Context, userID string, limit, offset int) ([]Event, error) {
	limit, offset = clampPage(limit, offset)

	s.mu.RLock()
	all := make([]Event, len(s.events[userID]))
	copy(all, s.events[userID])
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].When.After(all[j].When) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type memTx struct {
	store   *MemoryStore
	userID  string
	pending []Event
}

func (t *memTx) committed() []Event {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.events[t.userID]
}

func (t *memTx) LastEvent(context.Context) (*Event, error) {
	var last *Event
	for _, evts := range [][]Event{t.committed(), t.pending} {
		for i := range evts {
			if last == nil || !evts[i].When.Before(last.When) {
				e := evts[i]
				last = &e
			}
		}
	}
	return last, nil
}

func (t *memTx) CheckedInBetween(_ context.Context, start, end time.Time) (bool, error) {
	for _, evts := range [][]Event{t.committed(), t.pending} {
		for _, e := range evts {
			if e.Status == CheckedIn && !e.When.Before(start) && !e.When.After(end) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *memTx) Append(_ context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.UserID = t.userID
	t.pending = append(t.pending, evt)
	return evt, nil
}
