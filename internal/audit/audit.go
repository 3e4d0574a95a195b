// Package audit appends one durable record per violation, and one per run,
// to a CSV log that survives the process.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sevigo/autoreviewbot/internal/core"
)

var violationHeader = []string{
	"timestamp", "run_id", "file", "line", "rule", "severity",
	"explanation", "suggestion", "code_fix",
}

// Log is an append-only CSV audit log. Records are flushed per append so a
// crashed run still leaves everything it saw on disk.
type Log struct {
	path string
	now  func() time.Time
}

// NewLog creates the log file with its header row if it does not exist yet.
func NewLog(path string) (*Log, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit log %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(violationHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write audit log header: %w", err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close audit log: %w", err)
		}
	}
	return &Log{path: path, now: time.Now}, nil
}

// AppendViolation records a single validated violation.
func (l *Log) AppendViolation(runID string, v core.Violation) error {
	return l.append([]string{
		l.now().UTC().Format(time.RFC3339),
		runID,
		v.File,
		strconv.Itoa(v.Line),
		v.Rule,
		string(v.Severity),
		v.Explanation,
		v.Suggestion,
		v.CodeFix,
	})
}

// AppendRun records the aggregate outcome of a run. The row reuses the
// violation columns: the rule column carries the marker, the line column the
// violation count, and the explanation column the elapsed time.
func (l *Log) AppendRun(result *core.RunResult) error {
	return l.append([]string{
		l.now().UTC().Format(time.RFC3339),
		result.ID,
		"",
		strconv.Itoa(result.TotalViolations),
		"run-summary",
		string(result.HighestSeverity),
		result.Elapsed.String(),
		"",
		"",
	})
}

func (l *Log) append(record []string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	w.Flush()
	return w.Error()
}
