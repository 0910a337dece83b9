package reconciliation

import "sort"

// SortKey selects the order of a record list.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByVariance SortKey = "variance"
)

// FilterByStatus keeps records whose status is one of statuses. No statuses
// keeps everything.
func FilterByStatus(records []Record, statuses ...Status) []Record {
	if len(statuses) == 0 {
		return append([]Record(nil), records...)
	}
	var out []Record
	for _, rec := range records {
		for _, s := range statuses {
			if rec.Status == s {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// SortRecords returns records ordered by key, descending. Ties keep their
// input order.
func SortRecords(records []Record, key SortKey) []Record {
	out := append([]Record(nil), records...)
	switch key {
	case SortByVariance:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Summary.Variance.Abs().GreaterThan(out[j].Summary.Variance.Abs())
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Date > out[j].Date
		})
	}
	return out
}
