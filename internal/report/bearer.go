package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// BearerParser reads `bearer scan --format json` output, an object keyed
// by severity ("critical", "high", ...) whose values are finding lists.
type BearerParser struct{}

type bearerFinding struct {
	ID           string `json:"id"`
	FullFilename string `json:"full_filename"`
	Filename     string `json:"filename"`
	LineNumber   int    `json:"line_number"`
}

func (p *BearerParser) Name() string { return "bearer" }
func (p *BearerParser) Ext() string  { return ".json" }

func (p *BearerParser) Descriptions(path string) ([]string, error) {
	findings, err := p.Findings(path)
	if err != nil {
		return nil, err
	}
	return descriptionsOf(findings), nil
}

// Findings keeps the severity groups in the order they appear in the file.
func (p *BearerParser) Findings(path string) ([]Finding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	if err := expectDelim(dec, '{'); err != nil {
		// bearer writes an empty file when nothing was found
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing bearer report %s: %w", path, err)
	}

	var findings []Finding
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("parsing bearer report %s: %w", path, err)
		}
		var group []bearerFinding
		if err := dec.Decode(&group); err != nil {
			return nil, fmt.Errorf("parsing bearer report %s: %w", path, err)
		}
		for _, f := range group {
			file := f.FullFilename
			if file == "" {
				file = f.Filename
			}
			findings = append(findings, Finding{
				Description: f.ID,
				File:        file,
				Line:        f.LineNumber,
			})
		}
	}
	return findings, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

var _ Parser = (*BearerParser)(nil)
