// Package timeline computes the derived layout of the board: the month
// grid, event lane assignments, column sets per grouping mode, and the
// domain mutations resolved from drag-and-drop gestures.
//
// All dates travel as canonical zero-padded YYYY-MM-DD strings; on that
// form plain string comparison equals chronological comparison, so the
// package never needs time.Time for ordering, only for calendar math.
package timeline

import (
	"time"

	"github.com/planboard/core/internal/domain/entities"
)

// dateLayout is the canonical date key layout.
const dateLayout = "2006-01-02"

// DateKey formats a calendar day as a canonical date key.
func DateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// DateKeyOf formats t's calendar day in t's location.
func DateKeyOf(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDateKey parses a canonical date key.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(dateLayout, key)
	if err != nil {
		return time.Time{}, entities.ErrInvalidDateKey
	}
	return t, nil
}

// ValidDateKey reports whether key is a well-formed canonical date key.
func ValidDateKey(key string) bool {
	_, err := ParseDateKey(key)
	return err == nil
}

// AddDays shifts a date key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := ParseDateKey(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(dateLayout), nil
}

// DaysBetween returns b-a in days. Negative when b precedes a.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDateKey(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDateKey(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
