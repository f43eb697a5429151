package logger

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/Victor725/PySASTBench-sub000/internal/redact"
)

const (
	KindRun      = "run"
	KindEvaluate = "evaluate"
)

// defaultMaxLogBytes is the size at which New moves the log aside to
// <path>.1 and starts a fresh one.
const defaultMaxLogBytes = 10 * 1024 * 1024

// Event is one line of the run log: either a tool invocation or the
// classification of one evaluated case.
type Event struct {
	Timestamp string   `json:"timestamp"`
	Kind      string   `json:"kind"`
	Tool      string   `json:"tool"`
	Case      string   `json:"case"`
	Target    string   `json:"target,omitempty"`
	Command   []string `json:"command,omitempty"`
	Status    string   `json:"status,omitempty"`
	Elapsed   float64  `json:"elapsed_seconds,omitempty"`
	Bucket    string   `json:"bucket,omitempty"`
	Matched   string   `json:"matched,omitempty"`
	Findings  int      `json:"findings,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type RunLogger struct {
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*RunLogger, error) {
	if info, err := os.Stat(path); err == nil && info.Size() >= defaultMaxLogBytes {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &RunLogger{file: file}, nil
}

// Log appends an event. A nil logger discards it.
func (l *RunLogger) Log(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Tool commands carry API tokens in their environment flags
	event.Command = redact.RedactArgs(event.Command)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *RunLogger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}
