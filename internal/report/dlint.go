package report

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// DlintParser reads flake8-style dlint output, one finding per line:
//
//	/target/app.py:14: DUO138 insecure "re" pattern
//	/target/app.py:14:9: DUO138 insecure "re" pattern
//
// The column, when present, is dropped.
type DlintParser struct{}

var dlintLine = regexp.MustCompile(`^(.+?):(\d+):(?:\d+:)?\s*(.*)$`)

func (p *DlintParser) Name() string { return "dlint" }
func (p *DlintParser) Ext() string  { return ".txt" }

func (p *DlintParser) Descriptions(path string) ([]string, error) {
	findings, err := p.Findings(path)
	if err != nil {
		return nil, err
	}
	return descriptionsOf(findings), nil
}

func (p *DlintParser) Findings(path string) ([]Finding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var findings []Finding
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		m := dlintLine.FindStringSubmatch(text)
		if m == nil {
			continue // summary or warning lines
		}
		line, _ := strconv.Atoi(m[2])
		findings = append(findings, Finding{
			Description: strings.TrimSpace(m[3]),
			File:        m[1],
			Line:        line,
		})
	}
	return findings, scanner.Err()
}

var _ Parser = (*DlintParser)(nil)
