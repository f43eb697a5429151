package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/logger"
)

var (
	logFilterTool string
	logFilterKind string
	logLast       int
	logSummary    bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the run log",
	Long: `View the sastbench run log: one entry per tool run and per evaluated case.

Examples:
  sastbench log                          # Show all entries
  sastbench log --last 20                # Show last 20 entries
  sastbench log --tool semgrep           # Only semgrep entries
  sastbench log --kind run --summary     # Run statistics`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterTool, "tool", "", "Filter by tool")
	logCmd.Flags().StringVar(&logFilterKind, "kind", "", "Filter by kind (run, evaluate)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := readRunLog(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No run log entries found.")
		return nil
	}

	filtered := filterEvents(events, logFilterTool, logFilterKind)

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(os.Stdout, filtered)
		return nil
	}

	printEvents(os.Stdout, filtered)
	return nil
}

func readRunLog(path string) ([]logger.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.Event, tool, kind string) []logger.Event {
	if tool == "" && kind == "" {
		return events
	}

	var filtered []logger.Event
	for _, e := range events {
		if tool != "" && !strings.EqualFold(e.Tool, tool) {
			continue
		}
		if kind != "" && !strings.EqualFold(e.Kind, kind) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.Event) {
	for _, e := range events {
		ts := formatTimestamp(e.Timestamp)

		switch e.Kind {
		case logger.KindRun:
			fmt.Fprintf(w, "%-8s %s %s %s [%s]", statusLabel(e.Status), ts, e.Tool, e.Case, e.Status)
			if e.Elapsed > 0 {
				fmt.Fprintf(w, " %.1fs", e.Elapsed)
			}
			fmt.Fprintln(w)
			if e.Target != "" {
				fmt.Fprintf(w, "     Target: %s\n", e.Target)
			}
		default:
			fmt.Fprintf(w, "%-8s %s %s %s (%d findings)\n", e.Bucket, ts, e.Tool, e.Case, e.Findings)
			if e.Matched != "" {
				fmt.Fprintf(w, "     Matched: %s\n", e.Matched)
			}
			for _, warn := range e.Warnings {
				fmt.Fprintf(w, "     Warning: %s\n", warn)
			}
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
	}
}

func printSummary(w io.Writer, events []logger.Event) {
	status := map[string]int{}
	buckets := map[string]int{}
	var runs, evals int
	var elapsed float64

	for _, e := range events {
		switch e.Kind {
		case logger.KindRun:
			runs++
			status[e.Status]++
			elapsed += e.Elapsed
		case logger.KindEvaluate:
			evals++
			buckets[e.Bucket]++
		}
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  sastbench Run Log Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Tool runs:       %d\n", runs)
	fmt.Fprintf(w, "    ok:            %d\n", status["ok"])
	fmt.Fprintf(w, "    skipped:       %d\n", status["skipped"])
	fmt.Fprintf(w, "    failed:        %d\n", status["failed"])
	fmt.Fprintf(w, "    timeout:       %d\n", status["timeout"])
	fmt.Fprintf(w, "    scan time:     %.1fs\n", elapsed)
	fmt.Fprintf(w, "  Evaluated cases: %d\n", evals)
	fmt.Fprintf(w, "    TP/TN/FP/FN:   %d/%d/%d/%d\n", buckets["TP"], buckets["TN"], buckets["FP"], buckets["FN"])
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	if len(events) > 0 {
		fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(events[0].Timestamp))
		fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(events[len(events)-1].Timestamp))
	}

	var failed []logger.Event
	for _, e := range events {
		if e.Kind == logger.KindRun && (e.Status == "failed" || e.Status == "timeout") {
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Failed runs:")
		limit := len(failed)
		if limit > 10 {
			limit = 10
		}
		for _, e := range failed[len(failed)-limit:] {
			fmt.Fprintf(w, "    %s %s %s (%s)\n", formatTimestamp(e.Timestamp), e.Tool, e.Case, e.Status)
		}
	}

	fmt.Fprintln(w)
}

func statusLabel(status string) string {
	switch status {
	case "ok":
		return "RUN"
	case "skipped":
		return "SKIP"
	case "timeout":
		return "TIMEOUT"
	default:
		return "FAIL"
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
