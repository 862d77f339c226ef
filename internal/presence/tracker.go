package presence

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"timeclock/internal/attendance"
	"timeclock/internal/queue"
)

// Tracker applies recorded attendance events to a Roster.
type Tracker struct {
	roster Roster
	log    logrus.FieldLogger
}

func NewTracker(roster Roster, log logrus.FieldLogger) *Tracker {
	return &Tracker{roster: roster, log: log}
}

// Apply handles one queue message. Messages of other types are ignored, as
// are events older than what the roster already reflects for that user.
func (t *Tracker) Apply(ctx context.Context, msg queue.Message) error {
	if msg.Type != attendance.MessageRecorded {
		return nil
	}
	evt, err := attendance.DecodeRecorded(msg)
	if err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	if evt.Status != attendance.CheckedIn && evt.Status != attendance.CheckedOut {
		return fmt.Errorf("unexpected status %s", evt.Status)
	}
	applied, err := t.roster.Apply(ctx, evt.UserID, evt.Status == attendance.CheckedIn, evt.When)
	if err != nil {
		return err
	}
	if !applied {
		t.log.WithFields(logrus.Fields{
			"user_id":  evt.UserID,
			"event_id": evt.ID,
		}).Debug("skipping stale presence update")
	}
	return nil
}

// Run consumes msgs until the channel closes or ctx ends. Failures are
// logged and the message is dropped.
func (t *Tracker) Run(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := t.Apply(ctx, msg); err != nil {
				t.log.WithError(err).WithField("type", msg.Type).Warn("presence update failed")
				continue
			}
			t.log.WithField("type", msg.Type).Debug("presence updated")
		}
	}
}
