package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/batch"
	"github.com/Victor725/PySASTBench-sub000/internal/evaluate"
	"github.com/Victor725/PySASTBench-sub000/internal/logger"
	"github.com/Victor725/PySASTBench-sub000/internal/report"
	"github.com/Victor725/PySASTBench-sub000/internal/runner"
)

var (
	runTool           string
	runDataset        string
	runKind           string
	runOut            string
	runArchive        string
	runWithDependency bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan every target of a dataset with one tool",
	Long: `Run one SAST tool in Docker over every case of a dataset, one target at a
time, writing one report per case. Targets whose report already exists are
skipped; a failed or timed-out target is logged and the batch continues.

Examples:
  sastbench run --tool bandit --dataset Synthetic --out out/bandit
  sastbench run --tool snyk --kind realworld --archive CVECollection.zip \
    --dataset work/CVECollection --out out/snyk --with-dependency`,
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringVar(&runTool, "tool", "", "Tool to run")
	runCmd.Flags().StringVar(&runDataset, "dataset", "", "Dataset root (extraction target when --archive is set)")
	runCmd.Flags().StringVar(&runKind, "kind", string(evaluate.Synthetic), "Dataset kind: synthetic or realworld")
	runCmd.Flags().StringVar(&runOut, "out", "", "Report output directory (default: out/<tool>)")
	runCmd.Flags().StringVar(&runArchive, "archive", "", "Zip archive to extract into --dataset first")
	runCmd.Flags().BoolVar(&runWithDependency, "with-dependency", false, "Install target dependencies before scanning")
	_ = runCmd.MarkFlagRequired("tool")
	_ = runCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kind, err := evaluate.ParseKind(runKind)
	if err != nil {
		return err
	}
	parser, err := report.Get(runTool)
	if err != nil {
		return err
	}

	if runArchive != "" {
		n, err := batch.Extract(runArchive, runDataset)
		if err != nil {
			return err
		}
		log.WithField("archive", runArchive).Infof("extracted %d files", n)
	}

	targets, err := batch.Targets(runDataset, kind)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no %s targets found in %s", kind, runDataset)
	}

	out := runOut
	if out == "" {
		out = filepath.Join("out", parser.Name())
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}

	runLog, err := logger.New(cfg.LogPath)
	if err != nil {
		log.Warnf("run log unavailable: %v", err)
	}
	defer runLog.Close()

	session, err := runner.NewSession(cfg, parser.Name(), runLog)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithFields(log.Fields{"tool": parser.Name(), "targets": len(targets)}).Info("starting batch")
	summary, err := batch.Run(ctx, session, targets, batch.Options{
		OutDir:         out,
		Ext:            parser.Ext(),
		WithDependency: runWithDependency,
	})

	fmt.Printf("Done: %d  Skipped: %d  Failed: %d\n", summary.Done, summary.Skipped, summary.Failed)
	return err
}
