package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/retrace-dev/retrace/pkg/history"
)

func TestRootDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"www.example.co.uk", "example.co.uk"},
		{"blog.example.com", "example.com"},
		{"example.com", "example.com"},
		{"a.b.c.example.org", "example.org"},
		{"www.example.ac.jp", "example.ac.jp"},
		{"news.bbc.gov.uk", "bbc.gov.uk"},
		{"localhost", "localhost"},
		{"WWW.Example.COM", "example.com"},
		{"example.com.", "example.com"},
	}
	for _, tc := range tests {
		if got := RootDomain(tc.host); got != tc.want {
			t.Fatalf("RootDomain(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func testSource() *history.MemorySource {
	typed := history.Visit{Transition: history.TransitionTyped}
	link := history.Visit{Transition: "link"}
	return &history.MemorySource{
		Records: []history.VisitRecord{
			{URL: "https://www.example.com/a"},
			{URL: "https://blog.example.com/b"},
			{URL: "https://other.org/c"},
		},
		Visits: map[string][]history.Visit{
			"https://www.example.com/a":  {typed, link, link},
			"https://blog.example.com/b": {typed},
			"https://other.org/c":        {link, link},
		},
	}
}

func TestAggregateRollsUpToRootDomain(t *testing.T) {
	source := testSource()
	aggs, err := Aggregate(context.Background(), source, source.Records)
	if err != nil {
		t.Fatal(err)
	}
	if len(aggs) != 2 {
		t.Fatalf("expected 2 domains, got %d: %#v", len(aggs), aggs)
	}

	// Sorted by visit count descending.
	if aggs[0].Domain != "example.com" || aggs[1].Domain != "other.org" {
		t.Fatalf("unexpected domain order: %#v", aggs)
	}
	if aggs[0].VisitCount != 4 || aggs[0].TypedCount != 2 || aggs[0].ClickedCount != 2 {
		t.Fatalf("example.com counts wrong: %#v", aggs[0])
	}
	if aggs[1].VisitCount != 2 || aggs[1].TypedCount != 0 || aggs[1].ClickedCount != 2 {
		t.Fatalf("other.org counts wrong: %#v", aggs[1])
	}
}

func TestAggregateInvariants(t *testing.T) {
	source := testSource()
	aggs, err := Aggregate(context.Background(), source, source.Records)
	if err != nil {
		t.Fatal(err)
	}

	total := len(source.Records)
	for _, a := range aggs {
		if a.TypedCount+a.ClickedCount != a.VisitCount {
			t.Fatalf("typed+clicked != visitCount for %s: %#v", a.Domain, a)
		}
		want := float64(a.VisitCount) / float64(total) * 100
		if diff := a.Percentage - want; diff > 0.05 || diff < -0.05 {
			t.Fatalf("percentage for %s: got %v, want %v to one decimal", a.Domain, a.Percentage, want)
		}
	}
}

func TestAggregateExcludesUnparsableURLs(t *testing.T) {
	source := &history.MemorySource{
		Records: []history.VisitRecord{
			{URL: "http://bro ken.example/"},
			{URL: "https://good.example.com/"},
		},
		Visits: map[string][]history.Visit{
			"https://good.example.com/": {{Transition: "link"}},
		},
	}
	aggs, err := Aggregate(context.Background(), source, source.Records)
	if err != nil {
		t.Fatal(err)
	}
	if len(aggs) != 1 || aggs[0].Domain != "example.com" {
		t.Fatalf("expected only the parsable record aggregated, got %#v", aggs)
	}
	// Percentage denominator is the full filtered record count, broken
	// records included.
	if aggs[0].Percentage != 50.0 {
		t.Fatalf("expected 50.0%%, got %v", aggs[0].Percentage)
	}
}

type failingSource struct {
	history.MemorySource
}

func (f *failingSource) VisitDetails(ctx context.Context, url string) ([]history.Visit, error) {
	if url == "https://www.flaky.net/" {
		return nil, errors.New("lookup failed")
	}
	return f.MemorySource.VisitDetails(ctx, url)
}

func TestAggregateSurvivesLookupFailures(t *testing.T) {
	source := &failingSource{MemorySource: history.MemorySource{
		Visits: map[string][]history.Visit{
			"https://ok.example.com/": {{Transition: history.TransitionTyped}},
		},
	}}
	records := []history.VisitRecord{
		{URL: "https://www.flaky.net/"},
		{URL: "https://ok.example.com/"},
	}

	aggs, err := Aggregate(context.Background(), source, records)
	if err != nil {
		t.Fatal(err)
	}
	// The flaky domain is undercounted, not fatal.
	if len(aggs) != 2 {
		t.Fatalf("expected both domains present, got %#v", aggs)
	}
	for _, a := range aggs {
		if a.TypedCount+a.ClickedCount != a.VisitCount {
			t.Fatalf("invariant broken for %s: %#v", a.Domain, a)
		}
	}
}

func TestTopN(t *testing.T) {
	aggs := []DomainAggregate{
		{Domain: "a.com", VisitCount: 3},
		{Domain: "b.com", VisitCount: 2},
		{Domain: "c.com", VisitCount: 1},
	}
	if got := TopN(aggs, 2); len(got) != 2 || got[1].Domain != "b.com" {
		t.Fatalf("TopN(2) = %#v", got)
	}
	if got := TopN(aggs, 0); len(got) != 3 {
		t.Fatalf("TopN(0) should keep all, got %d", len(got))
	}
	if got := TopN(aggs, 10); len(got) != 3 {
		t.Fatalf("TopN(10) should keep all, got %d", len(got))
	}
}
