package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SemgrepParser reads `semgrep --json` output. Only results whose rule
// metadata category is "security" are kept.
type SemgrepParser struct{}

type semgrepOutput struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Metadata struct {
				Category string `json:"category"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

func (p *SemgrepParser) Name() string { return "semgrep" }
func (p *SemgrepParser) Ext() string  { return ".json" }

func (p *SemgrepParser) read(path string) (*semgrepOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var output semgrepOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parsing semgrep report %s: %w", path, err)
	}
	return &output, nil
}

func (p *SemgrepParser) Descriptions(path string) ([]string, error) {
	output, err := p.read(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(output.Results))
	for _, r := range output.Results {
		out = append(out, semgrepRuleKey(r.CheckID))
	}
	return out, nil
}

func (p *SemgrepParser) Findings(path string) ([]Finding, error) {
	output, err := p.read(path)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, r := range output.Results {
		if r.Extra.Metadata.Category != "security" {
			continue
		}
		findings = append(findings, Finding{
			Description: semgrepRuleKey(r.CheckID),
			File:        r.Path,
			Line:        r.Start.Line,
		})
	}
	return findings, nil
}

// semgrepRuleKey keeps the last two dot segments of a check id:
// "python.flask.security.injection.tainted-sql-string.tainted-sql-string"
// → "tainted-sql-string.tainted-sql-string". Registry rule ids carry the
// ruleset path in front, which differs between semgrep releases.
func semgrepRuleKey(checkID string) string {
	parts := strings.Split(checkID, ".")
	if len(parts) <= 2 {
		return checkID
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

var _ Parser = (*SemgrepParser)(nil)
