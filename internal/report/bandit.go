package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// BanditParser reads `bandit -f json` output.
type BanditParser struct{}

type banditOutput struct {
	Results []struct {
		TestName   string `json:"test_name"`
		Filename   string `json:"filename"`
		LineNumber int    `json:"line_number"`
	} `json:"results"`
}

func (p *BanditParser) Name() string { return "bandit" }
func (p *BanditParser) Ext() string  { return ".json" }

func (p *BanditParser) Descriptions(path string) ([]string, error) {
	findings, err := p.Findings(path)
	if err != nil {
		return nil, err
	}
	return descriptionsOf(findings), nil
}

func (p *BanditParser) Findings(path string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var output banditOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parsing bandit report %s: %w", path, err)
	}

	findings := make([]Finding, 0, len(output.Results))
	for _, r := range output.Results {
		findings = append(findings, Finding{
			Description: r.TestName,
			File:        r.Filename,
			Line:        r.LineNumber,
		})
	}
	return findings, nil
}

var _ Parser = (*BanditParser)(nil)
