package blacklist

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

//go:embed rules.json
var bundledRules []byte

// Bundled returns the rules shipped with the binary.
func Bundled() (Rules, error) {
	var r Rules
	if err := json.Unmarshal(bundledRules, &r); err != nil {
		return Rules{}, fmt.Errorf("parsing bundled rules: %w", err)
	}
	return r, nil
}

// Load merges the bundled rules with the override store at overridesPath
// and compiles the union. The returned set is immutable for the session.
func Load(overridesPath string) (*RuleSet, error) {
	bundled, err := Bundled()
	if err != nil {
		return nil, err
	}

	store := NewOverrideStore(overridesPath)
	overrides, err := store.Load()
	if err != nil {
		return nil, err
	}

	merged := Merge(bundled, overrides)
	rs := Compile(merged)
	utils.Log.Debugf("loaded %d blacklist rules (%d bundled domains, %d override domains)",
		rs.Size(), len(bundled.Domains), len(overrides.Domains))
	return rs, nil
}

// RootWildcard reduces a host (or URL) to a wildcard rule on its
// registrable domain, e.g. "tracker.ads.example.co.uk" -> "*.example.co.uk".
// Returns the input lowercased when no registrable domain can be found.
func RootWildcard(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(host, "*.")

	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return "*." + domain
}
