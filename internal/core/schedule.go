package core

import (
	"fmt"
	"time"
)

// patternSpec fixes the step and occurrence count for one recurrence
// pattern. Every pattern targets an approximate two-year horizon.
type patternSpec struct {
	occurrences int
	step        func(Date) Date
}

var patternSpecs = map[RecurrencePattern]patternSpec{
	RecurrenceNone:     {occurrences: 1, step: nil},
	RecurrenceWeekly:   {occurrences: 104, step: stepDays(7)},
	RecurrenceBiweekly: {occurrences: 52, step: stepDays(14)},
	RecurrenceMonthly:  {occurrences: 24, step: stepMonths(1)},
	RecurrenceYearly:   {occurrences: 2, step: stepYears(1)},
}

// Occurrences returns the fixed number of occurrences for a pattern.
func Occurrences(pattern RecurrencePattern) (int, error) {
	spec, ok := patternSpecs[pattern]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPattern, pattern)
	}
	return spec.occurrences, nil
}

// Schedule materializes the full ordered sequence of occurrence dates for
// a recurring expense. The first element is the start date; each next
// element is derived by applying the pattern's step to the previous
// element, not to the original start.
//
// Month and year steps clamp to the last valid day of the target month
// (Jan 31 + 1 month = Feb 28/29, Feb 29 + 1 year = Feb 28). Because each
// step starts from the previous occurrence, the day-of-month can drift
// downward once a short month has been crossed; the rule is applied
// consistently and never produces duplicate or out-of-order dates.
func Schedule(start Date, pattern RecurrencePattern) ([]Date, error) {
	if start.IsZero() {
		return nil, ErrMissingDate
	}
	spec, ok := patternSpecs[pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPattern, pattern)
	}
	if pattern == RecurrenceNone {
		return []Date{start}, nil
	}

	dates := make([]Date, spec.occurrences)
	dates[0] = start
	for i := 1; i < spec.occurrences; i++ {
		dates[i] = spec.step(dates[i-1])
	}
	return dates, nil
}

func stepDays(n int) func(Date) Date {
	return func(d Date) Date {
		return Date{Time: d.AddDate(0, 0, n)}
	}
}

func stepMonths(n int) func(Date) Date {
	return func(d Date) Date {
		return addMonthsClamped(d, n)
	}
}

func stepYears(n int) func(Date) Date {
	return func(d Date) Date {
		return addMonthsClamped(d, 12*n)
	}
}

// addMonthsClamped advances a date by whole months, clamping the day to
// the last valid day of the target month instead of rolling over the way
// time.AddDate does (Jan 31 + 1 month would otherwise become Mar 2/3).
func addMonthsClamped(d Date, months int) Date {
	year, month, day := d.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := lastDayOfMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return NewDate(target.Year(), int(target.Month()), day)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
