package attendance

import (
	"database/sql/driver"
	"fmt"
)

// Status is the attendance state an event records.
type Status int

const (
	CheckedIn Status = iota + 1
	CheckedOut
)

func (s Status) String() string {
	switch s {
	case CheckedIn:
		return "check_in"
	case CheckedOut:
		return "check_out"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParseStatus maps the stored text form back to a Status.
func ParseStatus(v string) (Status, error) {
	switch v {
	case "check_in":
		return CheckedIn, nil
	case "check_out":
		return CheckedOut, nil
	}
	return 0, fmt.Errorf("unknown attendance status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if s != CheckedIn && s != CheckedOut {
		return nil, fmt.Errorf("invalid attendance status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into attendance status", src)
}
