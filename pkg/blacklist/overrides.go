package blacklist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OverrideStore persists user-added rules as a JSON file with the same
// shape as the bundled rule file. A missing file reads as an empty set.
type OverrideStore struct {
	path string
}

func NewOverrideStore(path string) *OverrideStore {
	return &OverrideStore{path: path}
}

func (s *OverrideStore) Load() (Rules, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Rules{}, nil
		}
		return Rules{}, fmt.Errorf("reading overrides: %w", err)
	}
	var r Rules
	if err := json.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parsing overrides %s: %w", s.path, err)
	}
	return r, nil
}

func (s *OverrideStore) save(r Rules) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

// AddDomain appends a domain rule to the overrides. Duplicate adds are a
// no-op.
func (s *OverrideStore) AddDomain(domain string) error {
	return s.mutate(func(r *Rules) {
		r.Domains = appendUnique(r.Domains, domain)
	})
}

func (s *OverrideStore) AddPattern(pattern string) error {
	return s.mutate(func(r *Rules) {
		r.Patterns = appendUnique(r.Patterns, pattern)
	})
}

func (s *OverrideStore) RemoveDomain(domain string) error {
	return s.mutate(func(r *Rules) {
		r.Domains = removeString(r.Domains, domain)
	})
}

func (s *OverrideStore) RemovePattern(pattern string) error {
	return s.mutate(func(r *Rules) {
		r.Patterns = removeString(r.Patterns, pattern)
	})
}

// Clear drops every override. The bundled rules are unaffected.
func (s *OverrideStore) Clear() error {
	return s.save(Rules{})
}

func (s *OverrideStore) mutate(fn func(*Rules)) error {
	r, err := s.Load()
	if err != nil {
		return err
	}
	fn(&r)
	return s.save(r)
}

func appendUnique(list []string, s string) []string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func removeString(list []string, s string) []string {
	s = strings.TrimSpace(strings.ToLower(s))
	out := list[:0]
	for _, existing := range list {
		if existing != s {
			out = append(out, existing)
		}
	}
	return out
}
