// Package history defines the browsing-history source contract and the
// record types flowing through the feed and analytics pipelines.
package history

import (
	"context"
	"sort"
)

// TransitionTyped is the one transition kind treated specially by the
// analytics rollup; every other kind counts as a click.
const TransitionTyped = "typed"

// VisitRecord is a read-only snapshot of one history entry.
type VisitRecord struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	LastVisitTime int64  `json:"last_visit_time"` // ms since Unix epoch
	VisitCount    int    `json:"visit_count"`
}

// Visit is one navigation event for a URL.
type Visit struct {
	Transition string `json:"transition"`
}

// Source is the history backend contract. Search returns records whose
// last visit falls within [start, end] (ms since epoch), most recent
// first, at most max records. VisitDetails and VisitCount are per-URL
// lookups; VisitCount is expected to be cheap enough to call per
// displayed batch but not per aggregation pass.
type Source interface {
	Search(ctx context.Context, start, end int64, max int) ([]VisitRecord, error)
	VisitDetails(ctx context.Context, url string) ([]Visit, error)
	VisitCount(ctx context.Context, url string) (int, error)
}

// MemorySource is an in-memory Source, used by tests and as a seed
// backend when no history database is available.
type MemorySource struct {
	Records []VisitRecord
	Visits  map[string][]Visit
}

func (m *MemorySource) Search(ctx context.Context, start, end int64, max int) ([]VisitRecord, error) {
	var out []VisitRecord
	for _, r := range m.Records {
		if r.LastVisitTime >= start && r.LastVisitTime <= end {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastVisitTime > out[j].LastVisitTime
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (m *MemorySource) VisitDetails(ctx context.Context, url string) ([]Visit, error) {
	return m.Visits[url], nil
}

func (m *MemorySource) VisitCount(ctx context.Context, url string) (int, error) {
	for _, r := range m.Records {
		if r.URL == url {
			return r.VisitCount, nil
		}
	}
	return 0, nil
}
