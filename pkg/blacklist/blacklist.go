// Package blacklist implements the rule engine that decides whether a
// history record should be hidden from the feed and the analytics rollup.
//
// Two rule kinds exist: domain rules, matched against the full hostname
// (anchored, so a rule for example.com never matches evil-example.com),
// and URL patterns, matched as plain substrings of the lowercased URL or
// as unanchored wildcard expressions when they contain '*'.
package blacklist

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/retrace-dev/retrace/internal/utils"
)

// Rules is the serialized rule shape shared by the bundled rule file and
// the user override store.
type Rules struct {
	Domains  []string `json:"domains"`
	Patterns []string `json:"patterns"`
}

// RuleSet holds compiled rules. It is immutable after Compile; edits to
// the override store only take effect on the next Load.
type RuleSet struct {
	exactDomains   map[string]struct{}
	domainRegexps  []*regexp.Regexp
	substrings     []string
	patternRegexps []*regexp.Regexp
}

// Compile lowercases, de-duplicates and compiles a rule list. Rules that
// fail to compile are skipped with a log line rather than aborting the load.
func Compile(rules Rules) *RuleSet {
	rs := &RuleSet{
		exactDomains: make(map[string]struct{}),
	}

	for _, d := range dedupe(rules.Domains) {
		if !strings.Contains(d, "*") {
			rs.exactDomains[d] = struct{}{}
			continue
		}
		re, err := compileWildcard(d, true)
		if err != nil {
			utils.Log.Warnf("skipping bad domain rule %q: %v", d, err)
			continue
		}
		rs.domainRegexps = append(rs.domainRegexps, re)
	}

	for _, p := range dedupe(rules.Patterns) {
		if !strings.Contains(p, "*") {
			rs.substrings = append(rs.substrings, p)
			continue
		}
		re, err := compileWildcard(p, false)
		if err != nil {
			utils.Log.Warnf("skipping bad url pattern %q: %v", p, err)
			continue
		}
		rs.patternRegexps = append(rs.patternRegexps, re)
	}

	return rs
}

// compileWildcard turns a '*' glob into a regexp. Every other regexp
// metacharacter is escaped. Domain rules are anchored so the expression
// must cover the whole hostname; URL patterns match anywhere.
func compileWildcard(pattern string, anchored bool) (*regexp.Regexp, error) {
	expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
	if anchored {
		expr = "^" + expr + "$"
	}
	return regexp.Compile(expr)
}

// Matches reports whether rawURL is blacklisted. A URL that fails to parse
// is never blacklisted: the filter fails open so a malformed record can't
// take down the pipeline, and it is not worth blocking either. This is a
// documented contract, not an accident.
func (rs *RuleSet) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host != "" {
		if _, ok := rs.exactDomains[host]; ok {
			return true
		}
		for _, re := range rs.domainRegexps {
			if re.MatchString(host) {
				return true
			}
		}
	}

	lowered := strings.ToLower(rawURL)
	for _, sub := range rs.substrings {
		if strings.Contains(lowered, sub) {
			return true
		}
	}
	for _, re := range rs.patternRegexps {
		if re.MatchString(lowered) {
			return true
		}
	}

	return false
}

// Size returns the number of compiled rules, mostly for logging.
func (rs *RuleSet) Size() int {
	return len(rs.exactDomains) + len(rs.domainRegexps) + len(rs.substrings) + len(rs.patternRegexps)
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Merge unions rule lists, dropping duplicates. Used to combine the
// bundled rules with the user override store.
func Merge(lists ...Rules) Rules {
	var domains, patterns []string
	for _, l := range lists {
		domains = append(domains, l.Domains...)
		patterns = append(patterns, l.Patterns...)
	}
	return Rules{
		Domains:  dedupe(domains),
		Patterns: dedupe(patterns),
	}
}
