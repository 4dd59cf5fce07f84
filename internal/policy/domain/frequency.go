package domain

import "time"

// Frequency is how often a premium falls due.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyOneTime   Frequency = "one-time"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyOneTime:
		return true
	default:
		return false
	}
}

// Months is the length of one premium interval; zero for one-time.
func (f Frequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 0
	}
}

func (f Frequency) Recurring() bool {
	return f.Months() > 0
}

// AddMonths moves t by n calendar months, clamping the day to the end of the
// target month: Jan 31 + 1 month is Feb 29 in a leap year.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// AddInterval returns the next due date after t, or nil for a one-time
// premium.
func AddInterval(t time.Time, f Frequency) *time.Time {
	months := f.Months()
	if months == 0 {
		return nil
	}
	next := AddMonths(t, months)
	return &next
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
