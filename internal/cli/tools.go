package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/report"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List supported tools and their configured images",
	RunE:  toolsCommand,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func toolsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tREPORT\tIMAGE")
	for _, name := range report.Names() {
		parser, _ := report.Get(name)
		ext := parser.Ext()
		if ext == "" {
			ext = "<dir>/"
		}
		image := "(not configured)"
		if tc, ok := cfg.Tools[name]; ok && tc.Image != "" {
			image = tc.Image
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, ext, image)
	}
	return w.Flush()
}
