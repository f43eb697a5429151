package report

import "strings"

// SnykParser reads `snyk code test --sarif` output. Only Python rules
// (rule ids such as "python/Sqli") are kept; the markdown message is the
// description because rule ids are shared across languages.
type SnykParser struct{}

func (p *SnykParser) Name() string { return "snyk" }
func (p *SnykParser) Ext() string  { return ".json" }

func (p *SnykParser) Descriptions(path string) ([]string, error) {
	report, err := readSarif(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, result := range firstRunResults(report) {
		out = append(out, resultMsgMarkdown(result))
	}
	return out, nil
}

func (p *SnykParser) Findings(path string) ([]Finding, error) {
	report, err := readSarif(path)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, result := range firstRunResults(report) {
		if !strings.Contains(resultRuleID(result), "python") {
			continue
		}
		location := firstLocation(result)
		findings = append(findings, Finding{
			Description: resultMsgMarkdown(result),
			File:        locationFileName(location),
			Line:        locationStartLine(location),
		})
	}
	return findings, nil
}

var _ Parser = (*SnykParser)(nil)
