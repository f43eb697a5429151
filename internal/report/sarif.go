package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

func readSarif(path string) (*sarif.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	report, err := sarif.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("can't read valid Sarif report from %s: %w", path, err)
	}
	return report, nil
}

// recoverJSON extracts the first JSON object of a report that carries
// console output around the body. It starts at the first line opening an
// object and ignores whatever follows that object.
func recoverJSON(data []byte) ([]byte, error) {
	start := -1
	for offset := 0; offset < len(data); {
		end := bytes.IndexByte(data[offset:], '\n')
		if end < 0 {
			end = len(data) - offset
		}
		if bytes.HasPrefix(bytes.TrimSpace(data[offset:offset+end]), []byte("{")) {
			start = offset
			break
		}
		offset += end + 1
	}
	if start < 0 {
		return nil, errors.New("no JSON object found")
	}

	var body json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(data[start:])).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func firstRunResults(report *sarif.Report) []*sarif.Result {
	if report == nil || len(report.Runs) == 0 || report.Runs[0] == nil {
		return nil
	}
	return report.Runs[0].Results
}

func resultRuleID(result *sarif.Result) string {
	if result.RuleID != nil {
		return *result.RuleID
	}
	return ""
}

func resultMsgText(result *sarif.Result) string {
	if result.Message.Text != nil {
		return *result.Message.Text
	}
	return ""
}

func resultMsgMarkdown(result *sarif.Result) string {
	if result.Message.Markdown != nil {
		return *result.Message.Markdown
	}
	return ""
}

func firstLocation(result *sarif.Result) *sarif.Location {
	if len(result.Locations) == 0 {
		return nil
	}
	return result.Locations[0]
}

func locationRegion(location *sarif.Location) *sarif.Region {
	if location != nil && location.PhysicalLocation != nil {
		return location.PhysicalLocation.Region
	}
	return nil
}

func locationFileName(location *sarif.Location) string {
	if location != nil && location.PhysicalLocation != nil && location.PhysicalLocation.ArtifactLocation != nil && location.PhysicalLocation.ArtifactLocation.URI != nil {
		return strings.TrimPrefix(*location.PhysicalLocation.ArtifactLocation.URI, "file://")
	}
	return ""
}

func locationStartLine(location *sarif.Location) int {
	region := locationRegion(location)
	if region != nil && region.StartLine != nil {
		return *region.StartLine
	}
	return 0
}

func locationSourceLanguage(location *sarif.Location) string {
	region := locationRegion(location)
	if region != nil && region.SourceLanguage != nil {
		return *region.SourceLanguage
	}
	return ""
}

// reverseTrace returns the locations of the result's first thread flow,
// last step first. Thread flows are ordered source to sink.
func reverseTrace(result *sarif.Result) []*sarif.Location {
	if len(result.CodeFlows) == 0 || result.CodeFlows[0] == nil || len(result.CodeFlows[0].ThreadFlows) == 0 {
		return nil
	}
	flow := result.CodeFlows[0].ThreadFlows[0]
	if flow == nil {
		return nil
	}
	var trace []*sarif.Location
	for i := len(flow.Locations) - 1; i >= 0; i-- {
		if step := flow.Locations[i]; step != nil && step.Location != nil {
			trace = append(trace, step.Location)
		}
	}
	return trace
}
