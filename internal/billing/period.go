package billing

import (
	"fmt"
	"time"
)

// dueDayOffset puts the due date on the 10th of the billed month.
const dueDayOffset = 9

// Day strips the clock from date, keeping its calendar day, as UTC midnight.
func Day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodOf returns the billing period containing date: the first day of its month.
func PeriodOf(date time.Time) time.Time {
	y, m, _ := date.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// DueDateOf returns the due date of an invoice for the period containing date.
// It is always inside that month, even when billing runs after the 10th.
func DueDateOf(date time.Time) time.Time {
	return PeriodOf(date).AddDate(0, 0, dueDayOffset)
}

func DaysInMonth(date time.Time) int {
	return PeriodOf(date).AddDate(0, 1, -1).Day()
}

// ParsePeriod accepts "2006-01" or a full "2006-01-02" date and returns its period.
func ParsePeriod(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return PeriodOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period %q, expected YYYY-MM", s)
}
