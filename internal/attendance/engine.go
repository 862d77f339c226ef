package attendance

import "time"

// Event represents a recorded attendance event.
type Event struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	When   time.Time `json:"time"`
	Status Status    `json:"status"`
}

// Action is what a decision asks the caller to do.
type Action int

const (
	Append Action = iota + 1
	Reject
)

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Status Status
	Reason string
}

const reasonAlreadyCheckedIn = "already checked in today"

// DayWindow returns the first and last instant (millisecond precision) of
// the calendar day containing now in loc.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return start, next.Add(-time.Millisecond)
}

// NeedsDayCheck reports whether Decide depends on today's check-ins.
func NeedsDayCheck(last *Event) bool {
	return last != nil && last.Status == CheckedOut
}

// Decide picks the next event for a user given the latest recorded one.
// checkedInToday is only consulted when the user is checked out: the day
// window gates check-ins, never check-outs.
func Decide(last *Event, checkedInToday bool) Decision {
	switch {
	case last == nil:
		return Decision{Action: Append, Status: CheckedIn}
	case last.Status == CheckedIn:
		return Decision{Action: Append, Status: CheckedOut}
	case checkedInToday:
		return Decision{Action: Reject, Reason: reasonAlreadyCheckedIn}
	default:
		return Decision{Action: Append, Status: CheckedIn}
	}
}
