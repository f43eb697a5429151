// Package runner drives one SAST tool inside a throwaway Docker container:
// copy the target in, run the tool, copy the report out, remove the
// container. All docker invocations go through a Commander so the
// lifecycle can be exercised without a daemon.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"mvdan.cc/sh/v3/syntax"

	"github.com/Victor725/PySASTBench-sub000/internal/config"
	"github.com/Victor725/PySASTBench-sub000/internal/logger"
)

var (
	// ErrAlreadyDone means the target's report already exists; nothing ran.
	ErrAlreadyDone = errors.New("report already exists")

	// ErrTimeout means the tool exceeded the configured wall-clock limit
	// and its container was force-removed.
	ErrTimeout = errors.New("tool timed out")
)

// Commander runs one external command and returns its combined output.
type Commander interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// ExecCommander runs commands on the host.
type ExecCommander struct{}

func (ExecCommander) Run(ctx context.Context, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = 10 * time.Second
	return cmd.CombinedOutput()
}

// Target is one directory or file to scan.
type Target struct {
	// Path is the local directory or file copied into the container.
	Path string
	// Output is where the report is written locally.
	Output string
	// Name is the case name the report is stored under, e.g.
	// "CWE-89_DS-1_vul".
	Name string
	// Case and VariantDir are exposed to templates as $CASE and
	// $VARIANT_DIR.
	Case       string
	VariantDir string

	WithDependency bool
}

// Outcome describes a finished tool run.
type Outcome struct {
	Elapsed time.Duration
	Command []string
	// ToolErr is the tool's own exit error. Most tools exit non-zero when
	// they report findings, so it does not fail the run.
	ToolErr error
}

func (o Outcome) Seconds() float64 {
	return o.Elapsed.Seconds()
}

// CommandLine renders the tool command as a copy-pasteable shell line.
func (o Outcome) CommandLine() string {
	words := make([]string, 0, len(o.Command))
	for _, w := range o.Command {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			q = w
		}
		words = append(words, q)
	}
	return strings.Join(words, " ")
}

// Session runs one configured tool. It is not safe for concurrent use:
// targets are scanned one container at a time.
type Session struct {
	Tool      string
	Commander Commander

	cfg     config.ToolConfig
	docker  string
	timeout time.Duration
	log     *logger.RunLogger
	now     func() time.Time
}

// NewSession prepares a session for the named tool. runLog may be nil.
func NewSession(cfg *config.Config, tool string, runLog *logger.RunLogger) (*Session, error) {
	tc, err := cfg.Tool(tool)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	docker := cfg.DockerBinary
	if docker == "" {
		docker = "docker"
	}

	return &Session{
		Tool:      tool,
		Commander: ExecCommander{},
		cfg:       tc,
		docker:    docker,
		timeout:   timeout,
		log:       runLog,
		now:       time.Now,
	}, nil
}

// Run scans one target. It returns ErrAlreadyDone when the report exists
// and ErrTimeout when the tool outlives the configured timeout; any other
// error means the report could not be produced.
func (s *Session) Run(ctx context.Context, t Target) (Outcome, error) {
	if _, err := os.Stat(t.Output); err == nil {
		s.logRun(t, Outcome{}, "skipped", nil)
		return Outcome{}, ErrAlreadyDone
	}

	start := s.now()
	outcome, err := s.run(ctx, t)
	outcome.Elapsed = s.now().Sub(start)

	status := "ok"
	switch {
	case errors.Is(err, ErrTimeout):
		status = "timeout"
	case err != nil:
		status = "failed"
	}
	s.logRun(t, outcome, status, err)
	return outcome, err
}

func (s *Session) run(parent context.Context, t Target) (Outcome, error) {
	var outcome Outcome

	vars, err := s.vars(t)
	if err != nil {
		return outcome, err
	}
	toolArgv, err := config.Fields(s.cfg.Command, vars)
	if err != nil {
		return outcome, fmt.Errorf("expanding command: %w", err)
	}
	if len(toolArgv) == 0 {
		return outcome, fmt.Errorf("tool %s has an empty command", s.Tool)
	}

	container := containerName(s.Tool, t.Name)
	outcome.Command = append(s.execPrefix(container), toolArgv...)

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	// Removal must still happen after the deadline has passed.
	defer s.remove(container)

	runArgs := []string{s.docker, "run", "-d", "--name", container, "--entrypoint", "sleep"}
	runArgs = append(runArgs, s.envFlags()...)
	runArgs = append(runArgs, s.cfg.Image, "infinity")
	if err := s.step(ctx, "starting container", runArgs); err != nil {
		return outcome, err
	}

	if err := s.step(ctx, "copying target", []string{s.docker, "cp", t.Path, container + ":" + config.ContainerTarget}); err != nil {
		return outcome, err
	}

	if t.WithDependency && s.cfg.DependencySetup != "" {
		setup, err := config.Fields(s.cfg.DependencySetup, vars)
		if err != nil {
			return outcome, fmt.Errorf("expanding dependency setup: %w", err)
		}
		if err := s.step(ctx, "installing dependencies", append(s.execPrefix(container), setup...)); err != nil {
			if errors.Is(err, ErrTimeout) {
				return outcome, err
			}
			log.WithField("target", t.Name).Warnf("dependency setup failed, scanning anyway: %v", err)
		}
	}

	if err := s.step(ctx, "running "+s.Tool, outcome.Command); err != nil {
		if errors.Is(err, ErrTimeout) || parent.Err() != nil {
			return outcome, err
		}
		outcome.ToolErr = err
	}

	if err := os.MkdirAll(filepath.Dir(t.Output), 0755); err != nil {
		return outcome, fmt.Errorf("creating output dir: %w", err)
	}
	if err := s.step(ctx, "copying report", []string{s.docker, "cp", container + ":" + vars["REPORT"], t.Output}); err != nil {
		if outcome.ToolErr != nil && !errors.Is(err, ErrTimeout) {
			return outcome, fmt.Errorf("%w (tool: %v)", err, outcome.ToolErr)
		}
		return outcome, err
	}

	return outcome, nil
}

func (s *Session) step(ctx context.Context, what string, args []string) error {
	out, err := s.Commander.Run(ctx, args)
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s while %s", ErrTimeout, s.timeout, what)
		}
		return ctx.Err()
	}
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("%s: %w", what, err)
		}
		return fmt.Errorf("%s: %w: %s", what, err, msg)
	}
	return nil
}

func (s *Session) remove(container string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if out, err := s.Commander.Run(ctx, []string{s.docker, "rm", "-f", container}); err != nil {
		log.WithField("container", container).Warnf("removing container: %v: %s", err, strings.TrimSpace(string(out)))
	}
}

func (s *Session) execPrefix(container string) []string {
	args := []string{s.docker, "exec"}
	args = append(args, s.envFlags()...)
	return append(args, container)
}

// envFlags forwards configured variables by name so their values never
// appear on the command line.
func (s *Session) envFlags() []string {
	var flags []string
	for _, name := range s.cfg.Env {
		flags = append(flags, "-e", name)
	}
	return flags
}

func (s *Session) vars(t Target) (config.Vars, error) {
	vars := config.Vars{
		"TARGET":      config.ContainerTarget,
		"NAME":        t.Name,
		"CASE":        t.Case,
		"VARIANT_DIR": t.VariantDir,
	}
	reportPath, err := config.Expand(s.cfg.Report, vars)
	if err != nil {
		return nil, fmt.Errorf("expanding report path: %w", err)
	}
	vars["REPORT"] = reportPath
	return vars, nil
}

func (s *Session) logRun(t Target, o Outcome, status string, err error) {
	event := logger.Event{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Kind:      logger.KindRun,
		Tool:      s.Tool,
		Case:      t.Name,
		Target:    t.Path,
		Command:   o.Command,
		Status:    status,
		Elapsed:   o.Seconds(),
	}
	if err != nil {
		event.Error = err.Error()
	} else if o.ToolErr != nil {
		event.Error = o.ToolErr.Error()
	}
	if logErr := s.log.Log(event); logErr != nil {
		log.Warnf("writing run log: %v", logErr)
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func containerName(tool, name string) string {
	return "sastbench-" + tool + "-" + strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "-"), "-.")
}
