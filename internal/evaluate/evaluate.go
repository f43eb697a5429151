// Package evaluate scores a directory of SAST reports against the curated
// ground truth.
//
// For every report (one per case) the findings are walked in report order
// and the case counts as flagged once a finding both maps to the case's CWE
// and resolves to one of its accepted locations. Flagged-ness and the case
// variant give the confusion bucket; the buckets give precision, recall
// and F1.
package evaluate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Victor725/PySASTBench-sub000/internal/config"
	"github.com/Victor725/PySASTBench-sub000/internal/cwemap"
	"github.com/Victor725/PySASTBench-sub000/internal/logger"
	"github.com/Victor725/PySASTBench-sub000/internal/report"
	"github.com/Victor725/PySASTBench-sub000/internal/scope"
	"github.com/Victor725/PySASTBench-sub000/internal/truth"
)

// Evaluator holds the read-only inputs of one evaluation.
type Evaluator struct {
	Parser      report.Parser
	Truth       truth.Store
	Mapping     cwemap.Mapping
	DatasetRoot string
	Kind        Kind
	// Prefixes are stripped from report paths before they are resolved
	// against the case's target. They may use $CASE, $NAME and
	// $VARIANT_DIR.
	Prefixes []string
	// Log, when set, receives one event per evaluated case.
	Log *logger.RunLogger
}

// Match is the finding that decided a case.
type Match struct {
	Finding report.Finding `json:"finding"`
	Key     string         `json:"key"`
}

// Outcome is the evaluation of one case.
type Outcome struct {
	Case     Case   `json:"case"`
	Bucket   Bucket `json:"bucket"`
	Match    *Match `json:"match,omitempty"`
	Findings int    `json:"findings"`
	// Warnings lists findings that could not be located, e.g. because the
	// source file does not exist under the dataset root.
	Warnings []string `json:"warnings,omitempty"`
}

// Result accumulates the outcomes of one evaluation.
type Result struct {
	Tool     string    `json:"tool"`
	TP       []string  `json:"tp"`
	TN       []string  `json:"tn"`
	FP       []string  `json:"fp"`
	FN       []string  `json:"fn"`
	Outcomes []Outcome `json:"outcomes"`
	Metrics  Metrics   `json:"metrics"`
}

// Total is the number of cases evaluated.
func (r *Result) Total() int {
	return len(r.TP) + len(r.TN) + len(r.FP) + len(r.FN)
}

func (r *Result) add(o Outcome) {
	switch o.Bucket {
	case TP:
		r.TP = append(r.TP, o.Case.FullName)
	case TN:
		r.TN = append(r.TN, o.Case.FullName)
	case FP:
		r.FP = append(r.FP, o.Case.FullName)
	case FN:
		r.FN = append(r.FN, o.Case.FullName)
	}
	r.Outcomes = append(r.Outcomes, o)
	r.Metrics = ComputeMetrics(len(r.TP), len(r.FP), len(r.FN))
}

// Evaluate scores every report in reportDir.
//
// Bad data is fatal: a report that does not parse, a case without ground
// truth or a finding description missing from the CWE mapping stops the
// evaluation. The result so far is returned together with the error; for
// an unmapped description the error is a *cwemap.UnmappedError.
func (e *Evaluator) Evaluate(reportDir string) (*Result, error) {
	result := &Result{Tool: e.Parser.Name()}

	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return result, fmt.Errorf("reading report dir: %w", err)
	}

	for _, entry := range entries {
		if !report.IsReport(e.Parser, entry) {
			continue
		}

		c, err := ParseCase(report.Stem(e.Parser, entry.Name()))
		if err != nil {
			return result, err
		}

		entryTruth, err := e.Truth.Lookup(c.ID)
		if err != nil {
			return result, err
		}

		findings, err := e.Parser.Findings(filepath.Join(reportDir, entry.Name()))
		if err != nil {
			return result, fmt.Errorf("case %s: %w", c.FullName, err)
		}

		outcome, err := e.evaluateCase(c, entryTruth, findings)
		if err != nil {
			return result, fmt.Errorf("case %s: %w", c.FullName, err)
		}

		result.add(outcome)
		e.logOutcome(outcome)
	}

	return result, nil
}

func (e *Evaluator) evaluateCase(c Case, entry truth.Entry, findings []report.Finding) (Outcome, error) {
	outcome := Outcome{Case: c, Findings: len(findings)}

	t, locateErr := e.locate(c)
	if locateErr != nil {
		outcome.Warnings = append(outcome.Warnings, locateErr.Error())
	}

	for _, f := range findings {
		ok, err := e.Mapping.Contains(f.Description, entry.CWE)
		if err != nil {
			return outcome, err
		}
		if !ok || locateErr != nil {
			continue
		}

		key, err := e.locationKey(t, c, f)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings, err.Error())
			continue
		}
		if e.accepts(entry, key) {
			outcome.Match = &Match{Finding: f, Key: key}
			break
		}
	}

	outcome.Bucket = Classify(outcome.Match != nil, c.Expect)
	return outcome, nil
}

func (e *Evaluator) accepts(entry truth.Entry, key string) bool {
	if e.Kind == Realworld {
		return entry.AcceptsSuffix(key)
	}
	return entry.Accepts(key)
}

// target is where a case's scanned sources live under the dataset root.
type target struct {
	dir        string
	file       string // set when the target is a single source file
	variantDir string
}

func (e *Evaluator) locate(c Case) (target, error) {
	if e.Kind == Realworld {
		caseDir := filepath.Join(e.DatasetRoot, c.ID)
		entries, err := os.ReadDir(caseDir)
		if err != nil {
			return target{}, fmt.Errorf("locating %s: %w", c.FullName, err)
		}
		for _, entry := range entries {
			if entry.IsDir() && strings.HasSuffix(entry.Name(), "-"+c.Variant) {
				return target{dir: filepath.Join(caseDir, entry.Name()), variantDir: entry.Name()}, nil
			}
		}
		return target{}, fmt.Errorf("locating %s: no *-%s directory in %s", c.FullName, c.Variant, caseDir)
	}

	dir := filepath.Join(e.DatasetRoot, c.FullName)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return target{dir: dir}, nil
	}
	if file := dir + ".py"; fileExists(file) {
		return target{dir: e.DatasetRoot, file: file}, nil
	}
	// Left to fail per finding with scope.ErrSourceNotFound.
	return target{dir: dir}, nil
}

// locationKey resolves a finding to the string compared with the ground
// truth locations.
func (e *Evaluator) locationKey(t target, c Case, f report.Finding) (string, error) {
	rel, abs, err := e.sourcePath(t, c, f.File)
	if err != nil {
		return "", err
	}

	scopePath, err := scope.Resolve(abs, f.Line)
	if err != nil {
		return "", fmt.Errorf("%s:%d (%s): %w", f.File, f.Line, f.Description, err)
	}

	if e.Kind != Realworld {
		return scopePath, nil
	}
	if scopePath == "" {
		return rel, nil
	}
	return rel + ":" + scopePath, nil
}

// sourcePath strips the tool's container prefix from a report path and
// returns it relative to the target and as a local path.
func (e *Evaluator) sourcePath(t target, c Case, file string) (string, string, error) {
	vars := config.Vars{"CASE": c.ID, "NAME": c.FullName, "VARIANT_DIR": t.variantDir}

	rel := ""
	stripped := false
	for _, tmpl := range e.Prefixes {
		prefix, err := config.Expand(tmpl, vars)
		if err != nil {
			return "", "", fmt.Errorf("expanding prefix %q: %w", tmpl, err)
		}
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(file, prefix) {
			rel = strings.TrimPrefix(file, prefix)
			stripped = true
			break
		}
		// A single-file target is reported as the container target itself.
		if file == strings.TrimSuffix(prefix, "/") {
			rel = "."
			stripped = true
			break
		}
	}
	if !stripped {
		if filepath.IsAbs(file) {
			return file, file, nil
		}
		rel = file
	}
	rel = filepath.ToSlash(filepath.Clean(strings.TrimPrefix(rel, "./")))

	if t.file != "" {
		if rel == "." || filepath.Base(rel) == filepath.Base(t.file) {
			return filepath.Base(t.file), t.file, nil
		}
		// The target was the case file alone; anything else was not scanned.
		return "", "", fmt.Errorf("%s: %w: not the scanned file %s", file, scope.ErrSourceNotFound, filepath.Base(t.file))
	}
	return rel, filepath.Join(t.dir, filepath.FromSlash(rel)), nil
}

func (e *Evaluator) logOutcome(o Outcome) {
	event := logger.Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Kind:      logger.KindEvaluate,
		Tool:      e.Parser.Name(),
		Case:      o.Case.FullName,
		Bucket:    string(o.Bucket),
		Findings:  o.Findings,
		Warnings:  o.Warnings,
	}
	if o.Match != nil {
		event.Matched = o.Match.Finding.Description
	}
	_ = e.Log.Log(event)
}

// Collect gathers the description of every finding in every report of
// reportDir and writes the de-duplicated set to out, one per line. It
// returns the number of distinct descriptions.
func Collect(p report.Parser, reportDir, out string) (int, error) {
	entries, err := os.ReadDir(reportDir)
	if err != nil {
		return 0, fmt.Errorf("reading report dir: %w", err)
	}

	set := map[string]struct{}{}
	for _, entry := range entries {
		if !report.IsReport(p, entry) {
			continue
		}
		descs, err := p.Descriptions(filepath.Join(reportDir, entry.Name()))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		for _, d := range descs {
			set[d] = struct{}{}
		}
	}

	if err := cwemap.WriteDescriptions(out, set); err != nil {
		return 0, err
	}
	return len(set), nil
}

// IsUnmapped reports whether err stopped an evaluation because of a
// description missing from the CWE mapping.
func IsUnmapped(err error) (*cwemap.UnmappedError, bool) {
	var unmapped *cwemap.UnmappedError
	if errors.As(err, &unmapped) {
		return unmapped, true
	}
	return nil, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
