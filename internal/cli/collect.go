package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/evaluate"
	"github.com/Victor725/PySASTBench-sub000/internal/report"
)

var (
	collectTool    string
	collectReports string
	collectOut     string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "List every distinct finding description in a report directory",
	Long: `Write the de-duplicated, sorted finding descriptions of one tool's reports,
one per line. The list is the starting point for curating the CWE mapping.

  sastbench collect --tool semgrep --reports out/semgrep --out semgrep_descriptions.txt`,
	RunE: collectCommand,
}

func init() {
	collectCmd.Flags().StringVar(&collectTool, "tool", "", "Tool whose reports are read")
	collectCmd.Flags().StringVar(&collectReports, "reports", "", "Directory holding the reports")
	collectCmd.Flags().StringVar(&collectOut, "out", "descriptions.txt", "Output file")
	_ = collectCmd.MarkFlagRequired("tool")
	_ = collectCmd.MarkFlagRequired("reports")
	rootCmd.AddCommand(collectCmd)
}

func collectCommand(cmd *cobra.Command, args []string) error {
	parser, err := report.Get(collectTool)
	if err != nil {
		return err
	}

	n, err := evaluate.Collect(parser, collectReports, collectOut)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d descriptions to %s\n", n, collectOut)
	return nil
}
