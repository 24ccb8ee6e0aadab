package kpi

import (
	"time"

	"github.com/ignite/netsuite-kpi/internal/domain"
)

// DateLayout is the only accepted date representation.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// parseDate returns the field as a calendar date when it is a non-empty
// YYYY-MM-DD string.
func parseDate(r domain.Record, field string) (time.Time, bool) {
	s, ok := r.String(field)
	if !ok || len(s) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// daysBetween returns later minus earlier in whole days, or nil when either
// date is absent.
func daysBetween(r domain.Record, laterField, earlierField string) *int {
	later, ok := parseDate(r, laterField)
	if !ok {
		return nil
	}
	earlier, ok := parseDate(r, earlierField)
	if !ok {
		return nil
	}
	// Both are UTC midnights, so the difference is an exact multiple of a day.
	days := int((later.Unix() - earlier.Unix()) / secondsPerDay)
	return &days
}
