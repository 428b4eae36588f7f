package core

import "sort"

// PartitionResult splits an owner's expenses around a reference date.
// Malformed holds rows whose stored date could not be parsed at the
// storage boundary; callers log those and render neither table with them.
type PartitionResult struct {
	Latest    []Expense // dated on or before the reference date, most recent first
	Future    []Expense // dated strictly after the reference date, soonest first
	Malformed []Expense
}

// Partition classifies expenses into latest and future relative to today.
// The comparison is by calendar date only; an expense dated exactly today
// lands in Latest. Sorting is stable, so rows sharing a date keep their
// fetch order. The function is pure and recomputed on every render.
func Partition(expenses []Expense, today Date) PartitionResult {
	var res PartitionResult
	for _, e := range expenses {
		switch {
		case e.CreatedAt.IsZero():
			res.Malformed = append(res.Malformed, e)
		case e.CreatedAt.OnOrBefore(today):
			res.Latest = append(res.Latest, e)
		default:
			res.Future = append(res.Future, e)
		}
	}

	sort.SliceStable(res.Latest, func(i, j int) bool {
		return res.Latest[i].CreatedAt.After(res.Latest[j].CreatedAt)
	})
	sort.SliceStable(res.Future, func(i, j int) bool {
		return res.Future[j].CreatedAt.After(res.Future[i].CreatedAt)
	})

	return res
}
