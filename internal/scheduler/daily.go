package scheduler

import (
	"fmt"
	"time"
)

// DailyAt is a wall-clock time of day in a fixed location. It satisfies
// cron.Schedule, so the runner asks for the next occurrence after every run
// instead of repeating a fixed 24h period.
type DailyAt struct {
	Hour     int
	Minute   int
	Second   int
	Location *time.Location
}

// ParseDailyAt parses "HH:MM".
func ParseDailyAt(s string, loc *time.Location) (DailyAt, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return DailyAt{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return DailyAt{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

// Next returns the first anchor strictly after t. At or past today's anchor
// it is tomorrow's.
func (d DailyAt) Next(t time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	now := t.In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), d.Hour, d.Minute, d.Second, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, d.Hour, d.Minute, d.Second, 0, loc)
	}
	return next
}

func (d DailyAt) String() string {
	if d.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", d.Hour, d.Minute, d.Second)
	}
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}
