// Package report reads the native result files of the supported SAST tools
// and turns them into a flat list of findings.
//
// Every tool gets its own Parser. Parsers only know their schema: which
// field is the description, where the file and line live, and which
// findings are irrelevant for Python. Matching against ground truth happens
// in the evaluate package.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Finding is one raw result as the tool reported it. File is the path as
// written in the report, usually prefixed by the directory the tool scanned
// inside its container.
type Finding struct {
	Description string
	File        string
	Line        int
}

// Parser reads one tool's report format.
type Parser interface {
	// Name is the tool identifier, e.g. "bandit".
	Name() string

	// Ext is the report file extension including the dot. An empty Ext
	// means every report is a directory.
	Ext() string

	// Descriptions returns the description of every finding in the report,
	// without any language or category filtering.
	Descriptions(path string) ([]string, error)

	// Findings returns the relevant findings in report order.
	Findings(path string) ([]Finding, error)
}

var registry = map[string]func() Parser{
	"bandit":  func() Parser { return &BanditParser{} },
	"bearer":  func() Parser { return &BearerParser{} },
	"codeql":  func() Parser { return &CodeqlParser{} },
	"devskim": func() Parser { return &DevSkimParser{} },
	"dlint":   func() Parser { return &DlintParser{} },
	"pysa":    func() Parser { return &PysaParser{} },
	"semgrep": func() Parser { return &SemgrepParser{} },
	"snyk":    func() Parser { return &SnykParser{} },
}

// Get returns the parser registered for a tool name (case-insensitive).
func Get(name string) (Parser, error) {
	newParser, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return newParser(), nil
}

// Names lists the registered tools, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsReport reports whether a directory entry looks like a report of p.
func IsReport(p Parser, entry os.DirEntry) bool {
	if p.Ext() == "" {
		return entry.IsDir()
	}
	return !entry.IsDir() && strings.HasSuffix(entry.Name(), p.Ext())
}

// Stem strips the parser's extension from a report name.
func Stem(p Parser, name string) string {
	return strings.TrimSuffix(name, p.Ext())
}

func descriptionsOf(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Description)
	}
	return out
}
