package commission

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - The balance boundary for tier volume
// =============================================================================

// Month identifies one calendar month. Tier volume is ALWAYS accumulated
// within a month; a person's tier resets on the first.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the wire format "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start returns the first day of the month (UTC midnight).
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the month (UTC midnight).
// Computed, not the original's "-31" string suffix, so February and
// 30-day months bound correctly.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, -1)
}

// Contains reports whether t falls within the month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool { return m.Year == 0 }

// String formats as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Date is a convenience constructor for day-granularity UTC times.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
