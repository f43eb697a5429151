package report

import (
	"fmt"
	"os"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

// DevSkimParser reads `devskim analyze -f sarif` output. Only results in
// Python sources are kept.
type DevSkimParser struct{}

func (p *DevSkimParser) Name() string { return "devskim" }
func (p *DevSkimParser) Ext() string  { return ".json" }

// read parses the report, retrying with the first JSON object in the file
// when console output surrounds the body.
func (p *DevSkimParser) read(path string) (*sarif.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	report, err := sarif.FromBytes(data)
	if err == nil {
		return report, nil
	}
	body, rerr := recoverJSON(data)
	if rerr == nil {
		report, rerr = sarif.FromBytes(body)
	}
	if rerr != nil {
		return nil, fmt.Errorf("parsing devskim report %s: %w", path, rerr)
	}
	return report, nil
}

func devskimDescription(result *sarif.Result) string {
	if text := resultMsgText(result); text != "" {
		return text
	}
	return resultRuleID(result)
}

func (p *DevSkimParser) Descriptions(path string) ([]string, error) {
	report, err := p.read(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, result := range firstRunResults(report) {
		out = append(out, devskimDescription(result))
	}
	return out, nil
}

func (p *DevSkimParser) Findings(path string) ([]Finding, error) {
	report, err := p.read(path)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, result := range firstRunResults(report) {
		location := firstLocation(result)
		if locationSourceLanguage(location) != "python" {
			continue
		}
		findings = append(findings, Finding{
			Description: devskimDescription(result),
			File:        locationFileName(location),
			Line:        locationStartLine(location),
		})
	}
	return findings, nil
}

var _ Parser = (*DevSkimParser)(nil)
