package truth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoEntry is returned when a case has no ground truth.
var ErrNoEntry = errors.New("no ground truth entry")

// Entry is the injected vulnerability of one case: its CWE and the scope
// path(s) a finding must point at to count.
type Entry struct {
	CWE       string       `json:"cwe" yaml:"cwe"`
	Locations StringOrList `json:"location" yaml:"location"`
}

// Store maps case id -> Entry. It is read-only once loaded.
type Store map[string]Entry

// StringOrList accepts either a single string or a list.
// "search" → ["search"], ["a.py:f", "b.py:g"] → ["a.py:f", "b.py:g"]
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

func (s *StringOrList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// Load reads a ground truth file (JSON, or YAML for .yaml/.yml).
func Load(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ground truth: %w", err)
	}

	store := Store{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &store)
	default:
		err = json.Unmarshal(data, &store)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing ground truth %s: %w", path, err)
	}

	for id, e := range store {
		if e.CWE == "" {
			return nil, fmt.Errorf("ground truth %q: missing cwe", id)
		}
	}
	return store, nil
}

// Lookup returns the entry for caseID.
func (s Store) Lookup(caseID string) (Entry, error) {
	e, ok := s[caseID]
	if !ok {
		return Entry{}, fmt.Errorf("%w for case %q", ErrNoEntry, caseID)
	}
	return e, nil
}

// Accepts reports whether key names one of the entry's locations exactly.
func (e Entry) Accepts(key string) bool {
	for _, loc := range e.Locations {
		if loc == key {
			return true
		}
	}
	return false
}

// AcceptsSuffix is Accepts, but a key may also be a trailing part of a
// location that starts at a path separator, so "app/views.py:index"
// matches the location "src/app/views.py:index".
func (e Entry) AcceptsSuffix(key string) bool {
	if key == "" {
		return false
	}
	for _, loc := range e.Locations {
		if loc == key || strings.HasSuffix(loc, "/"+key) {
			return true
		}
	}
	return false
}
