// Package feed filters history records through the blacklist and serves
// them as fixed-size batches for incremental display.
package feed

import (
	"github.com/retrace-dev/retrace/pkg/blacklist"
	"github.com/retrace-dev/retrace/pkg/history"
)

// Result is the outcome of one filtering pass over a loaded record set.
// FilteredOut is computed once per load and goes stale until the next
// full reload; pagination never recomputes it.
type Result struct {
	Filtered    []history.VisitRecord
	FilteredOut int
}

// Aggregate partitions records into kept and blacklisted. Input order is
// preserved: the caller supplies records sorted most-recent-first for the
// feed path and this function does not resort them.
func Aggregate(records []history.VisitRecord, rules *blacklist.RuleSet) Result {
	res := Result{Filtered: make([]history.VisitRecord, 0, len(records))}
	for _, r := range records {
		if rules.Matches(r.URL) {
			res.FilteredOut++
			continue
		}
		res.Filtered = append(res.Filtered, r)
	}
	return res
}
