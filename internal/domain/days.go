package domain

import (
	"fmt"
	"iter"
	"time"
)

const (
	// DayLayout is the user-facing date format.
	DayLayout = "2006-01-02"
	// StemLayout is the compact date used in archive names and URLs.
	StemLayout = "20060102"
)

// ParseDay parses a YYYY-MM-DD date as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// DayStem formats day as YYYYMMDD.
func DayStem(day time.Time) string {
	return day.Format(StemLayout)
}

// Days yields every calendar day from from to to inclusive, in ascending
// order. The sequence can be ranged over any number of times.
func Days(from, to time.Time) iter.Seq[time.Time] {
	start, end := truncateDay(from), truncateDay(to)
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// DayCount returns how many days Days(from, to) yields.
func DayCount(from, to time.Time) int {
	start, end := truncateDay(from), truncateDay(to)
	if end.Before(start) {
		return 0
	}
	// Both ends are UTC midnights so the difference is a whole number of days.
	return int(end.Sub(start).Hours()/24) + 1
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
