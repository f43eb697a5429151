package cli

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/cwemap"
	"github.com/Victor725/PySASTBench-sub000/internal/evaluate"
	"github.com/Victor725/PySASTBench-sub000/internal/logger"
	"github.com/Victor725/PySASTBench-sub000/internal/report"
	"github.com/Victor725/PySASTBench-sub000/internal/truth"
)

var (
	evalTool     string
	evalReports  string
	evalTruth    string
	evalMapping  string
	evalDataset  string
	evalKind     string
	evalPrefixes []string
	evalJSON     bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a directory of tool reports against the ground truth",
	Long: `Read every report of one tool, match each finding against the ground truth
of its case, and print the TP/TN/FP/FN lists with precision, recall and F1.

A finding description missing from the CWE mapping stops the evaluation:
curate the mapping (see 'sastbench collect') and run again.

Examples:
  sastbench evaluate --tool bandit --reports out/bandit --truth groundtruth.json \
    --mapping bandit_cwe.json --dataset Synthetic --kind synthetic
  sastbench evaluate --tool semgrep ... --kind realworld --json`,
	RunE: evaluateCommand,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalTool, "tool", "", "Tool whose reports are evaluated")
	evaluateCmd.Flags().StringVar(&evalReports, "reports", "", "Directory holding one report per case")
	evaluateCmd.Flags().StringVar(&evalTruth, "truth", "", "Ground truth file (JSON or YAML)")
	evaluateCmd.Flags().StringVar(&evalMapping, "mapping", "", "Description to CWE mapping (JSON or YAML)")
	evaluateCmd.Flags().StringVar(&evalDataset, "dataset", "", "Root of the scanned dataset")
	evaluateCmd.Flags().StringVar(&evalKind, "kind", string(evaluate.Synthetic), "Dataset kind: synthetic or realworld")
	evaluateCmd.Flags().StringSliceVar(&evalPrefixes, "prefix", nil, "Container path prefix to strip (overrides config; may repeat)")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Print the result as JSON")
	for _, name := range []string{"tool", "reports", "truth", "mapping", "dataset"} {
		_ = evaluateCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(evaluateCmd)
}

func evaluateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kind, err := evaluate.ParseKind(evalKind)
	if err != nil {
		return err
	}
	parser, err := report.Get(evalTool)
	if err != nil {
		return err
	}
	store, err := truth.Load(evalTruth)
	if err != nil {
		return fmt.Errorf("failed to load ground truth: %w", err)
	}
	mapping, err := cwemap.Load(evalMapping)
	if err != nil {
		return fmt.Errorf("failed to load CWE mapping: %w", err)
	}

	prefixes := evalPrefixes
	if len(prefixes) == 0 {
		if tc, ok := cfg.Tools[parser.Name()]; ok {
			prefixes = tc.Prefixes
		}
	}

	runLog, err := logger.New(cfg.LogPath)
	if err != nil {
		log.Warnf("run log unavailable: %v", err)
	}
	defer runLog.Close()

	e := &evaluate.Evaluator{
		Parser:      parser,
		Truth:       store,
		Mapping:     mapping,
		DatasetRoot: evalDataset,
		Kind:        kind,
		Prefixes:    prefixes,
		Log:         runLog,
	}

	result, evalErr := e.Evaluate(evalReports)
	if unmapped, ok := evaluate.IsUnmapped(evalErr); ok {
		log.WithField("description", unmapped.Description).Error("finding description has no CWE mapping; results below are partial")
	}

	for _, o := range result.Outcomes {
		for _, w := range o.Warnings {
			log.WithField("case", o.Case.FullName).Warn(w)
		}
	}

	if evalJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if err := evaluate.WriteSummary(os.Stdout, result); err != nil {
		return err
	}

	return evalErr
}
