// Package stats rolls filtered history records up to root-domain
// granularity with a typed-versus-clicked visit breakdown.
package stats

import (
	"context"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/history"
)

// DomainAggregate is one row of the analytics view.
type DomainAggregate struct {
	Domain       string  `json:"domain"`
	VisitCount   int     `json:"visit_count"`
	TypedCount   int     `json:"typed_count"`
	ClickedCount int     `json:"clicked_count"`
	Percentage   float64 `json:"percentage"`
}

// secondLevelSuffixes are generic labels that commonly appear as the
// second-to-last hostname label under a ccTLD (example.co.uk). When one
// is present the root domain keeps three labels instead of two.
var secondLevelSuffixes = map[string]struct{}{
	"co":  {},
	"com": {},
	"org": {},
	"ac":  {},
	"gov": {},
	"edu": {},
	"net": {},
}

// RootDomain reduces a hostname to its root domain:
// blog.example.com -> example.com, www.example.co.uk -> example.co.uk.
func RootDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	keep := 2
	if _, ok := secondLevelSuffixes[labels[len(labels)-2]]; ok && len(labels) >= 3 {
		keep = 3
	}
	return strings.Join(labels[len(labels)-keep:], ".")
}

// Aggregate groups records by root domain and resolves every underlying
// URL's visit list to split counts into typed and clicked. Records whose
// URL does not parse are silently excluded. A failed visit-detail lookup
// undercounts that domain but never aborts the pass. The percentage is
// computed against the total filtered record count, rounded to one
// decimal, and the result is sorted by visit count descending (ties keep
// discovery order).
func Aggregate(ctx context.Context, source history.Source, records []history.VisitRecord) ([]DomainAggregate, error) {
	type bucket struct {
		urls []string
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, r := range records {
		u, err := url.Parse(r.URL)
		if err != nil || u.Hostname() == "" {
			utils.Log.Debugf("excluding unparsable url from stats: %q", r.URL)
			continue
		}
		domain := RootDomain(u.Hostname())
		b, ok := buckets[domain]
		if !ok {
			b = &bucket{}
			buckets[domain] = b
			order = append(order, domain)
		}
		b.urls = append(b.urls, r.URL)
	}

	total := len(records)
	out := make([]DomainAggregate, 0, len(order))
	for _, domain := range order {
		agg := DomainAggregate{Domain: domain}
		for _, u := range buckets[domain].urls {
			visits, err := source.VisitDetails(ctx, u)
			if err != nil {
				utils.Log.Warnf("visit details lookup failed for %s: %v", u, err)
				continue
			}
			for _, v := range visits {
				if v.Transition == history.TransitionTyped {
					agg.TypedCount++
				} else {
					agg.ClickedCount++
				}
			}
		}
		agg.VisitCount = agg.TypedCount + agg.ClickedCount
		if total > 0 {
			agg.Percentage = round1(float64(agg.VisitCount) / float64(total) * 100)
		}
		out = append(out, agg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VisitCount > out[j].VisitCount
	})
	return out, nil
}

// TopN slices the sorted aggregate list. n <= 0 means no truncation.
func TopN(aggs []DomainAggregate, n int) []DomainAggregate {
	if n <= 0 || n >= len(aggs) {
		return aggs
	}
	return aggs[:n]
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
