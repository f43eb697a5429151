// Package batch prepares a dataset and scans every target in it with one
// tool, strictly one after another.
package batch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Victor725/PySASTBench-sub000/internal/evaluate"
	"github.com/Victor725/PySASTBench-sub000/internal/runner"
)

// Extract unpacks a zip archive into dest. Entries that would land outside
// dest are rejected.
func Extract(archive, dest string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return 0, err
	}

	count := 0
	for _, f := range r.File {
		path := filepath.Join(root, filepath.FromSlash(f.Name))
		if path != root && !strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return count, fmt.Errorf("archive entry %q escapes %s", f.Name, dest)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0755); err != nil {
				return count, err
			}
			continue
		}
		if err := extractFile(f, path); err != nil {
			return count, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		count++
	}
	return count, nil
}

func extractFile(f *zip.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Targets lists the scan targets under root, sorted by name.
//
// Synthetic datasets hold one entry per case, either a directory or a
// single .py file, named <case>_<vul|fix>. Real-world datasets hold one
// directory per CVE with a *-vul and a *-fix snapshot inside.
func Targets(root string, kind evaluate.Kind) ([]runner.Target, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	var targets []runner.Target
	for _, entry := range entries {
		if kind == evaluate.Realworld {
			if !entry.IsDir() {
				continue
			}
			found, err := realworldTargets(root, entry.Name())
			if err != nil {
				return nil, err
			}
			targets = append(targets, found...)
			continue
		}

		name := entry.Name()
		if !entry.IsDir() {
			if filepath.Ext(name) != ".py" {
				continue
			}
			name = strings.TrimSuffix(name, ".py")
		}
		c, err := evaluate.ParseCase(name)
		if err != nil {
			continue
		}
		targets = append(targets, runner.Target{
			Path: filepath.Join(root, entry.Name()),
			Name: c.FullName,
			Case: c.ID,
		})
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets, nil
}

func realworldTargets(root, cve string) ([]runner.Target, error) {
	entries, err := os.ReadDir(filepath.Join(root, cve))
	if err != nil {
		return nil, err
	}

	var targets []runner.Target
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, variant := range []string{evaluate.VariantVul, evaluate.VariantFix} {
			if strings.HasSuffix(entry.Name(), "-"+variant) {
				targets = append(targets, runner.Target{
					Path:       filepath.Join(root, cve, entry.Name()),
					Name:       cve + "_" + variant,
					Case:       cve,
					VariantDir: entry.Name(),
				})
			}
		}
	}
	return targets, nil
}

// Scanner is the part of a runner session the batch needs.
type Scanner interface {
	Run(ctx context.Context, t runner.Target) (runner.Outcome, error)
}

// Options control a batch run.
type Options struct {
	// OutDir receives one report per target, named <name><ext>.
	OutDir string
	// Ext is the report extension of the tool, "" for directory reports.
	Ext            string
	WithDependency bool
}

// Summary counts what a batch did.
type Summary struct {
	Done    int
	Skipped int
	Failed  int
}

// Run scans every target in order. A failed or timed-out target is logged
// and skipped; only cancellation of ctx stops the batch early.
func Run(ctx context.Context, s Scanner, targets []runner.Target, opts Options) (Summary, error) {
	var summary Summary

	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		t.Output = filepath.Join(opts.OutDir, t.Name+opts.Ext)
		t.WithDependency = opts.WithDependency

		entry := log.WithFields(log.Fields{
			"target":   t.Name,
			"progress": fmt.Sprintf("%d/%d", i+1, len(targets)),
		})

		outcome, err := s.Run(ctx, t)
		switch {
		case errors.Is(err, runner.ErrAlreadyDone):
			summary.Skipped++
			entry.Debug("report exists, skipping")
		case err != nil:
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			entry.WithError(err).Error("scan failed")
		default:
			summary.Done++
			entry.WithField("seconds", fmt.Sprintf("%.1f", outcome.Seconds())).Info("scanned")
		}
	}

	return summary, nil
}
