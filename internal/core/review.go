package core

import "time"

// ChangedFile holds the path and zero-context diff text for a single file
// that differs from the base reference. Captured once per run, never mutated.
type ChangedFile struct {
	Path string
	Diff string
}

// ReviewBatch is an ordered group of changed files whose combined diff size
// fits under the oracle payload ceiling. Each batch is consumed exactly once.
type ReviewBatch struct {
	Files []ChangedFile
	Size  int
}

// Paths returns the set of file paths in the batch, used to re-attribute
// oracle output to its owning file.
func (b *ReviewBatch) Paths() map[string]struct{} {
	paths := make(map[string]struct{}, len(b.Files))
	for _, f := range b.Files {
		paths[f.Path] = struct{}{}
	}
	return paths
}

// DiffText concatenates the batch's diffs in order, separated by a newline
// so file boundaries stay visible to the oracle.
func (b *ReviewBatch) DiffText() string {
	var out string
	for i, f := range b.Files {
		if i > 0 {
			out += "\n"
		}
		out += f.Diff
	}
	return out
}

// RunResult is the aggregate outcome of one review run. It drives the final
// commit status and the per-run audit record.
type RunResult struct {
	ID              string
	StartedAt       time.Time
	Elapsed         time.Duration
	FilesReviewed   int
	TotalViolations int
	HighestSeverity Severity
	Skipped         bool
}

// Conclusion maps the run outcome onto the commit status state: failure if
// any error-severity violation was observed, success otherwise.
func (r *RunResult) Conclusion() string {
	if r.HighestSeverity == SeverityError {
		return "failure"
	}
	return "success"
}

// Description is the human-readable text attached to the final status.
func (r *RunResult) Description() string {
	switch {
	case r.Skipped:
		return "Review skipped by maintainer override."
	case r.HighestSeverity == SeverityError:
		return "Critical rule violations found"
	default:
		return "All checks passed"
	}
}
