package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

// PysaParser reads a Pysa report directory holding errors.json and,
// optionally, result.sarif.
//
// errors.json gives one entry per issue at the sink. When result.sarif
// carries the matching result, the steps of its first thread flow are added
// after the sink, walked backwards, so that an issue whose sink sits in a
// shared helper can still be attributed to the function the flow started in.
type PysaParser struct{}

const (
	pysaErrorsFile = "errors.json"
	pysaSarifFile  = "result.sarif"
)

type pysaError struct {
	Line int    `json:"line"`
	Path string `json:"path"`
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (p *PysaParser) Name() string { return "pysa" }
func (p *PysaParser) Ext() string  { return "" }

func (p *PysaParser) readErrors(dir string) ([]pysaError, error) {
	data, err := os.ReadFile(filepath.Join(dir, pysaErrorsFile))
	if err != nil {
		return nil, err
	}
	var errs []pysaError
	if err := json.Unmarshal(data, &errs); err != nil {
		return nil, fmt.Errorf("parsing pysa report %s: %w", dir, err)
	}
	return errs, nil
}

func (p *PysaParser) Descriptions(dir string) ([]string, error) {
	errs, err := p.readErrors(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Name)
	}
	return out, nil
}

func (p *PysaParser) Findings(dir string) ([]Finding, error) {
	errs, err := p.readErrors(dir)
	if err != nil {
		return nil, err
	}

	var results []*sarif.Result
	report, err := readSarif(filepath.Join(dir, pysaSarifFile))
	switch {
	case err == nil:
		results = firstRunResults(report)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	var findings []Finding
	for _, e := range errs {
		findings = append(findings, Finding{Description: e.Name, File: e.Path, Line: e.Line})

		result := matchPysaResult(results, e)
		if result == nil {
			continue
		}
		for _, location := range reverseTrace(result) {
			file := locationFileName(location)
			line := locationStartLine(location)
			if file == "" || line == 0 {
				continue
			}
			findings = append(findings, Finding{Description: e.Name, File: file, Line: line})
		}
	}
	return findings, nil
}

// matchPysaResult finds the SARIF result describing the same issue: same
// rule code and same primary location.
func matchPysaResult(results []*sarif.Result, e pysaError) *sarif.Result {
	code := strconv.Itoa(e.Code)
	for _, result := range results {
		if resultRuleID(result) != code {
			continue
		}
		location := firstLocation(result)
		if locationStartLine(location) != e.Line {
			continue
		}
		if file := locationFileName(location); file != e.Path && filepath.Base(file) != filepath.Base(e.Path) {
			continue
		}
		return result
	}
	return nil
}

var _ Parser = (*PysaParser)(nil)
