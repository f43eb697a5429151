// Package cwemap holds the curated table that maps a tool's rule identifier
// or message text to the CWE identifiers it reports.
package cwemap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mapping is description -> CWE identifiers, e.g.
// "sql_injection_check" -> ["CWE-89"].
type Mapping map[string][]string

// UnmappedError reports a finding description with no entry in the table.
// It means the table needs curation and invalidates the running evaluation.
type UnmappedError struct {
	Description string
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("no CWE mapping for description %q", e.Description)
}

// Load reads a mapping table. Files ending in .yaml or .yml are read as
// YAML, everything else as JSON.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CWE mapping: %w", err)
	}

	m := Mapping{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing CWE mapping %s: %w", path, err)
	}
	return m, nil
}

// Lookup returns the CWE identifiers recorded for description. A missing
// entry is an *UnmappedError.
func (m Mapping) Lookup(description string) ([]string, error) {
	cwes, ok := m[description]
	if !ok {
		return nil, &UnmappedError{Description: description}
	}
	return cwes, nil
}

// Contains reports whether description maps to cwe.
func (m Mapping) Contains(description, cwe string) (bool, error) {
	cwes, err := m.Lookup(description)
	if err != nil {
		return false, err
	}
	for _, c := range cwes {
		if strings.EqualFold(c, cwe) {
			return true, nil
		}
	}
	return false, nil
}

// WriteDescriptions writes the descriptions, sorted and one per line, as
// the starting point for curating a mapping table.
func WriteDescriptions(path string, descriptions map[string]struct{}) error {
	sorted := make([]string, 0, len(descriptions))
	for d := range descriptions {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, d := range sorted {
		if _, err := w.WriteString(d + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
