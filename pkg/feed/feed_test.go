package feed

import (
	"testing"

	"github.com/retrace-dev/retrace/pkg/blacklist"
	"github.com/retrace-dev/retrace/pkg/history"
)

func TestAggregateFilters(t *testing.T) {
	rules := blacklist.Compile(blacklist.Rules{Domains: []string{"example.com"}})
	records := []history.VisitRecord{
		{URL: "https://example.com/a", LastVisitTime: 5},
		{URL: "https://other.com/1", LastVisitTime: 4},
		{URL: "https://example.com/b", LastVisitTime: 3},
		{URL: "https://example.com/c", LastVisitTime: 2},
		{URL: "https://another.org/2", LastVisitTime: 1},
	}

	res := Aggregate(records, rules)
	if len(res.Filtered) != 2 {
		t.Fatalf("expected 2 kept records, got %d", len(res.Filtered))
	}
	if res.FilteredOut != 3 {
		t.Fatalf("expected filteredOutCount 3, got %d", res.FilteredOut)
	}
}

func TestAggregatePreservesOrder(t *testing.T) {
	rules := blacklist.Compile(blacklist.Rules{})
	records := []history.VisitRecord{
		{URL: "https://a.com/", LastVisitTime: 30},
		{URL: "https://b.com/", LastVisitTime: 20},
		{URL: "https://c.com/", LastVisitTime: 10},
	}

	res := Aggregate(records, rules)
	for i := 1; i < len(res.Filtered); i++ {
		if res.Filtered[i-1].LastVisitTime < res.Filtered[i].LastVisitTime {
			t.Fatalf("input order not preserved at %d", i)
		}
	}
	if res.FilteredOut != 0 {
		t.Fatalf("expected no records filtered, got %d", res.FilteredOut)
	}
}

func TestAggregateKeepsUnparsableURLs(t *testing.T) {
	// The matcher fails open, so a record with a broken URL stays in the
	// feed rather than crashing or vanishing here.
	rules := blacklist.Compile(blacklist.Rules{Domains: []string{"*"}})
	records := []history.VisitRecord{
		{URL: "http://bro ken.example/"},
	}
	res := Aggregate(records, rules)
	if len(res.Filtered) != 1 {
		t.Fatalf("expected unparsable record kept, got %d kept", len(res.Filtered))
	}
}
