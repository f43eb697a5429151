package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"
)

const (
	DefaultConfigDir  = ".sastbench"
	DefaultConfigFile = "config.yaml"
	DefaultLogFile    = "runs.jsonl"

	// DefaultTimeout bounds a single tool invocation.
	DefaultTimeout = time.Hour

	// ContainerTarget is where the scanned target is copied inside the
	// tool container.
	ContainerTarget = "/target"
)

type Config struct {
	ConfigPath   string
	LogPath      string
	ConfigDir    string
	DockerBinary string
	Timeout      time.Duration
	Tools        map[string]ToolConfig
}

// ToolConfig describes how one SAST tool is run and how it writes paths.
// Command, Report, DependencySetup and Prefixes are shell-word templates;
// see Expand for the variables they can use.
type ToolConfig struct {
	Image           string   `yaml:"image"`
	Command         string   `yaml:"command"`
	Report          string   `yaml:"report"`
	DependencySetup string   `yaml:"dependency_setup,omitempty"`
	Env             []string `yaml:"env,omitempty"`
	Prefixes        []string `yaml:"prefixes,omitempty"`
}

type fileConfig struct {
	Docker  string                `yaml:"docker"`
	Timeout time.Duration         `yaml:"timeout"`
	Tools   map[string]ToolConfig `yaml:"tools"`
}

var defaultPrefixes = []string{
	ContainerTarget + "/",
	"/workdir/CVECollection/$CASE/$VARIANT_DIR/",
}

// DefaultTools returns the built-in tool table. Images are expected to be
// built locally with the tool preinstalled.
func DefaultTools() map[string]ToolConfig {
	return map[string]ToolConfig{
		"bandit": {
			Image:           "sastbench/bandit:latest",
			Command:         "bandit -r $TARGET -f json -o $REPORT",
			Report:          "/tmp/report.json",
			DependencySetup: "pip install -r $TARGET/requirements.txt",
			Prefixes:        defaultPrefixes,
		},
		"bearer": {
			Image:    "bearer/bearer:latest",
			Command:  "bearer scan $TARGET --format json --output $REPORT --quiet",
			Report:   "/tmp/report.json",
			Prefixes: defaultPrefixes,
		},
		"codeql": {
			Image:           "sastbench/codeql:latest",
			Command:         `sh -c "codeql database create /tmp/db --language=python --source-root $TARGET && codeql database analyze /tmp/db codeql/python-queries --format=csv --output=$REPORT"`,
			Report:          "/tmp/report.csv",
			DependencySetup: "pip install -r $TARGET/requirements.txt",
		},
		"devskim": {
			Image:    "sastbench/devskim:latest",
			Command:  "devskim analyze -I $TARGET -O $REPORT -f sarif",
			Report:   "/tmp/report.json",
			Prefixes: defaultPrefixes,
		},
		"dlint": {
			Image:    "sastbench/dlint:latest",
			Command:  `sh -c "python -m flake8 --select=DUO $TARGET > $REPORT"`,
			Report:   "/tmp/report.txt",
			Prefixes: defaultPrefixes,
		},
		"pysa": {
			Image:           "sastbench/pysa:latest",
			Command:         `sh -c "mkdir -p $REPORT && cd $TARGET && pyre init --non-interactive >/dev/null; pyre --output=json analyze > $REPORT/errors.json; pyre --output=sarif analyze > $REPORT/result.sarif"`,
			Report:          "/tmp/report",
			DependencySetup: "pip install -r $TARGET/requirements.txt",
			Prefixes:        defaultPrefixes,
		},
		"semgrep": {
			Image:    "semgrep/semgrep:latest",
			Command:  "semgrep scan --config auto --json --output $REPORT $TARGET",
			Report:   "/tmp/report.json",
			Prefixes: defaultPrefixes,
		},
		"snyk": {
			Image:           "snyk/snyk:python",
			Command:         "snyk code test $TARGET --sarif-file-output=$REPORT",
			Report:          "/tmp/report.json",
			DependencySetup: "pip install -r $TARGET/requirements.txt",
			Env:             []string{"SNYK_TOKEN"},
		},
	}
}

// Default returns a configuration rooted at configDir with the built-in
// tool table.
func Default(configDir string) *Config {
	return &Config{
		ConfigDir:    configDir,
		ConfigPath:   filepath.Join(configDir, DefaultConfigFile),
		LogPath:      filepath.Join(configDir, DefaultLogFile),
		DockerBinary: "docker",
		Timeout:      DefaultTimeout,
		Tools:        DefaultTools(),
	}
}

// Load resolves the configuration. A missing config file is not an error:
// the built-in defaults are used. Tools named in the file replace the
// non-empty fields of the built-in entry.
func Load(configPath, logPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := Default(configDir)
	if configPath != "" {
		cfg.ConfigPath = configPath
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cfg.ConfigPath, err)
	}
	if fc.Docker != "" {
		cfg.DockerBinary = fc.Docker
	}
	if fc.Timeout > 0 {
		cfg.Timeout = fc.Timeout
	}
	for name, tc := range fc.Tools {
		cfg.Tools[name] = merge(cfg.Tools[name], tc)
	}
	return cfg, nil
}

// Tool returns the configuration of a named tool.
func (c *Config) Tool(name string) (ToolConfig, error) {
	tc, ok := c.Tools[name]
	if !ok {
		return ToolConfig{}, fmt.Errorf("tool %q is not configured", name)
	}
	if tc.Image == "" || tc.Command == "" || tc.Report == "" {
		return ToolConfig{}, fmt.Errorf("tool %q: image, command and report are required", name)
	}
	return tc, nil
}

// ToolNames lists the configured tools, sorted.
func (c *Config) ToolNames() []string {
	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func merge(base, override ToolConfig) ToolConfig {
	if override.Image != "" {
		base.Image = override.Image
	}
	if override.Command != "" {
		base.Command = override.Command
	}
	if override.Report != "" {
		base.Report = override.Report
	}
	if override.DependencySetup != "" {
		base.DependencySetup = override.DependencySetup
	}
	if override.Env != nil {
		base.Env = override.Env
	}
	if override.Prefixes != nil {
		base.Prefixes = override.Prefixes
	}
	return base
}

// Vars are the values available to tool templates: $TARGET, $REPORT,
// $NAME, $CASE and $VARIANT_DIR.
type Vars map[string]string

func (v Vars) lookup(name string) string {
	if val, ok := v[name]; ok {
		return val
	}
	return os.Getenv(name)
}

// Expand expands a template into a single string.
func Expand(template string, vars Vars) (string, error) {
	return shell.Expand(template, vars.lookup)
}

// Fields expands a template and splits it into argv words.
func Fields(template string, vars Vars) ([]string, error) {
	return shell.Fields(template, vars.lookup)
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
