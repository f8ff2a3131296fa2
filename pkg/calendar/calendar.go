// Package calendar decomposes timestamps into the local wall-clock parts that
// tariff schedules are written against. Everything timezone-sensitive in the
// billing and dispatch code goes through Split so DST handling lives in one
// place.
package calendar

import (
	"fmt"
	"time"
)

// Parts is the local decomposition of a single timestamp.
type Parts struct {
	MinuteOfDay int
	Weekend     bool
	Month       time.Month
	DayKey      string // local calendar day, 2006-01-02
	MonthKey    string // local calendar month, 2006-01
}

// Split computes a timestamp's local parts in the given location. It computes
// wall-clock parts per call rather than applying a fixed UTC offset, which is
// what keeps it correct across DST transitions.
func Split(ts time.Time, loc *time.Location) Parts {
	lt := ts.In(loc)
	wd := lt.Weekday()
	return Parts{
		MinuteOfDay: lt.Hour()*60 + lt.Minute(),
		Weekend:     wd == time.Saturday || wd == time.Sunday,
		Month:       lt.Month(),
		DayKey:      lt.Format("2006-01-02"),
		MonthKey:    lt.Format("2006-01"),
	}
}

// LoadLocation resolves an IANA timezone name, defaulting to UTC when the
// name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %s: %w", name, err)
	}
	return loc, nil
}
