package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CodeqlParser reads CodeQL's headerless CSV output:
// name, description, severity, message, path, start line, start column,
// end line, end column.
type CodeqlParser struct{}

const (
	codeqlNameCol = 0
	codeqlPathCol = 4
	codeqlLineCol = 5
)

func (p *CodeqlParser) Name() string { return "codeql" }
func (p *CodeqlParser) Ext() string  { return ".csv" }

func (p *CodeqlParser) Descriptions(path string) ([]string, error) {
	findings, err := p.Findings(path)
	if err != nil {
		return nil, err
	}
	return descriptionsOf(findings), nil
}

func (p *CodeqlParser) Findings(path string) ([]Finding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var findings []Finding
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing codeql report %s: %w", path, err)
		}
		if len(row) <= codeqlLineCol {
			return nil, fmt.Errorf("parsing codeql report %s: expected at least %d columns, got %d", path, codeqlLineCol+1, len(row))
		}

		line, err := strconv.Atoi(strings.TrimSpace(row[codeqlLineCol]))
		if err != nil {
			return nil, fmt.Errorf("parsing codeql report %s: bad line %q", path, row[codeqlLineCol])
		}
		findings = append(findings, Finding{
			Description: row[codeqlNameCol],
			// Paths are relative to the source root and start with "/".
			File: strings.TrimPrefix(row[codeqlPathCol], "/"),
			Line: line,
		})
	}
	return findings, nil
}

var _ Parser = (*CodeqlParser)(nil)
