package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunLogger_Log(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test_runs.jsonl")

	logger, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Close()
	}()

	event := Event{
		Timestamp: "2026-02-02T12:00:00Z",
		Kind:      KindEvaluate,
		Tool:      "bandit",
		Case:      "CWE-89_DS-1_vul",
		Bucket:    "TP",
		Matched:   "hardcoded_sql_expressions",
	}

	if err := logger.Log(event); err != nil {
		t.Fatalf("failed to log event: %v", err)
	}

	_ = logger.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var parsed Event
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to parse log line as JSON: %v", err)
	}

	if parsed.Case != "CWE-89_DS-1_vul" {
		t.Errorf("expected case 'CWE-89_DS-1_vul', got '%s'", parsed.Case)
	}

	if parsed.Bucket != "TP" {
		t.Errorf("expected bucket 'TP', got '%s'", parsed.Bucket)
	}
}

func TestRunLogger_RedactsCommandTokens(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "runs.jsonl")

	logger, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	event := Event{
		Kind:    KindRun,
		Tool:    "snyk",
		Command: []string{"docker", "run", "-e", "SNYK_TOKEN=0123456789abcdef0123456789abcdef", "snyk/snyk:python"},
		Error:   "exit status 2: SNYK_TOKEN=0123456789abcdef0123456789abcdef rejected",
	}
	if err := logger.Log(event); err != nil {
		t.Fatalf("failed to log event: %v", err)
	}
	_ = logger.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "0123456789abcdef") {
		t.Errorf("token leaked into run log: %s", data)
	}
}

func TestRunLogger_NilDiscards(t *testing.T) {
	var logger *RunLogger
	if err := logger.Log(Event{Kind: KindRun}); err != nil {
		t.Errorf("nil logger should discard, got %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("nil logger close should be a no-op, got %v", err)
	}
}

func TestRunLogger_Rotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "runs.jsonl")

	// Pre-create the log file already at the rotation limit.
	big := make([]byte, defaultMaxLogBytes)
	if err := os.WriteFile(logPath, big, 0600); err != nil {
		t.Fatalf("failed to seed large log file: %v", err)
	}

	lg, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = lg.Close() }()

	event := Event{
		Timestamp: "2026-03-01T00:00:00Z",
		Kind:      KindRun,
		Tool:      "semgrep",
		Case:      "CWE-22_DS-4_fix",
		Status:    "done",
	}
	if err := lg.Log(event); err != nil {
		t.Fatalf("Log after rotation failed: %v", err)
	}

	// .1 backup must exist
	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("expected rotated file %s.1 to exist: %v", logPath, err)
	}

	// Fresh log must be small (just the one new line)
	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("fresh log file missing: %v", err)
	}
	if info.Size() >= defaultMaxLogBytes {
		t.Errorf("fresh log file is still %d bytes; expected < %d", info.Size(), defaultMaxLogBytes)
	}
}

func TestRunLogger_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "secure_runs.jsonl")

	logger, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	_ = logger.Close()

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("failed to stat log file: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("expected file permissions 0600, got %04o", perm)
	}
}
