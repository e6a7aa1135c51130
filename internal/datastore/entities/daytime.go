package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DayTime is a time of day with minute resolution, stored as "HH:MM" text.
// It is used for quiet-hours windows and auto-generation schedules, where only
// the wall-clock time matters, never the date or zone.
type DayTime int // minutes since midnight

// ParseDayTime parses "HH:MM" into a DayTime.
func ParseDayTime(s string) (DayTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return DayTime(t.Hour()*60 + t.Minute()), nil
}

// DayTimeOf extracts the time of day from a timestamp.
func DayTimeOf(t time.Time) DayTime {
	return DayTime(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component (0-23).
func (d DayTime) Hour() int { return int(d) / 60 }

// Minute returns the minute component (0-59).
func (d DayTime) Minute() int { return int(d) % 60 }

func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour(), d.Minute())
}

// Value implements driver.Valuer, storing the "HH:MM" form.
func (d DayTime) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner, accepting "HH:MM" text or a time value.
func (d *DayTime) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDayTime(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDayTime(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	case time.Time:
		*d = DayTimeOf(v)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("cannot scan %T into DayTime", src)
	}
	return nil
}

// MarshalJSON outputs the "HH:MM" form.
func (d DayTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the "HH:MM" form.
func (d *DayTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDayTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
