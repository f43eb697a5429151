package evaluate

import (
	"fmt"
	"io"
	"strings"
)

// WriteSummary prints the four case lists followed by the derived metrics.
func WriteSummary(w io.Writer, r *Result) error {
	lists := []struct {
		name  string
		cases []string
	}{
		{"TP", r.TP},
		{"TN", r.TN},
		{"FP", r.FP},
		{"FN", r.FN},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s (%d cases)\n", r.Tool, r.Total())
	for _, l := range lists {
		fmt.Fprintf(&b, "%s (%d): [%s]\n", l.name, len(l.cases), strings.Join(l.cases, ", "))
	}
	fmt.Fprintf(&b, "Precision: %.4f\n", r.Metrics.Precision)
	fmt.Fprintf(&b, "Recall:    %.4f\n", r.Metrics.Recall)
	fmt.Fprintf(&b, "F1:        %.4f\n", r.Metrics.F1)

	_, err := io.WriteString(w, b.String())
	return err
}
