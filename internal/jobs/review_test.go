package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoreviewbot/internal/audit"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/oracle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type statusCall struct {
	state       string
	description string
}

// fakeGitHub records every publication the pipeline attempts.
type fakeGitHub struct {
	mu sync.Mutex

	labels    []string
	labelsErr error
	patches   []github.ChangedPatch
	listErr   error

	inline   []github.InlineComment
	comments []string
	statuses []statusCall
}

func (f *fakeGitHub) ListChangedFiles(context.Context, string, string, int) ([]github.ChangedPatch, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.patches, nil
}

func (f *fakeGitHub) ListLabels(context.Context, string, string, int) ([]string, error) {
	if f.labelsErr != nil {
		return nil, f.labelsErr
	}
	return f.labels, nil
}

func (f *fakeGitHub) CreateInlineComment(_ context.Context, _, _ string, _ int, comment github.InlineComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inline = append(f.inline, comment)
	return nil
}

func (f *fakeGitHub) CreateIssueComment(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeGitHub) CreateStatus(_ context.Context, _, _, _, state, description, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusCall{state, description})
	return nil
}

// fakeSource returns a canned set of changed files.
type fakeSource struct {
	files []core.ChangedFile
	err   error
}

func (f *fakeSource) ChangedFiles(context.Context, *core.ReviewEvent) ([]core.ChangedFile, error) {
	return f.files, f.err
}

// fakeReviewer records the diff text of every batch it sees and answers from
// a canned script, one entry per call.
type fakeReviewer struct {
	batches    []string
	candidates [][]oracle.Candidate
	errs       []error
}

func (f *fakeReviewer) Review(_ context.Context, diffText string, _ *core.RuleSet) ([]oracle.Candidate, error) {
	call := len(f.batches)
	f.batches = append(f.batches, diffText)
	var err error
	if call < len(f.errs) {
		err = f.errs[call]
	}
	var out []oracle.Candidate
	if call < len(f.candidates) {
		out = f.candidates[call]
	}
	return out, err
}

func testEvent() *core.ReviewEvent {
	return &core.ReviewEvent{
		RepoOwner:    "acme",
		RepoName:     "widgets",
		RepoFullName: "acme/widgets",
		PRNumber:     42,
		HeadSHA:      "abc123",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		OverrideLabel: "override-autoreview",
		MaxBatchChars: 12000,
		MaxFindings:   40,
	}
}

func jobRuleSet(t *testing.T) *core.RuleSet {
	t.Helper()
	rs, err := core.NewRuleSet([]core.RuleSpec{
		{ID: "NO-PANIC", Severity: core.SeverityError, Hint: "no panics in library code"},
		{ID: "MAGIC-NUM", Severity: core.SeverityWarning, Hint: "no magic numbers"},
	})
	require.NoError(t, err)
	return rs
}

func newTestJob(t *testing.T, cfg *config.Config, gh *fakeGitHub, source *fakeSource, reviewer *fakeReviewer) core.Job {
	t.Helper()
	logger := discardLogger()
	auditLog, err := audit.NewLog(filepath.Join(t.TempDir(), "audit.csv"))
	require.NoError(t, err)
	publisher := github.NewPublisher(gh, logger)
	return NewReviewJob(cfg, jobRuleSet(t), source, reviewer, gh, publisher, auditLog, nil, logger)
}

func TestRunSingleViolationWithPosition(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" line1",
		"+added line",
		" line2",
	}, "\n")

	gh := &fakeGitHub{patches: []github.ChangedPatch{{Filename: "main.go", Patch: patch}}}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: patch}}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{{
		{Rule: "MAGIC-NUM", File: "main.go", Line: 2, Explanation: "magic number", Suggestion: "name it", Severity: "warning"},
	}}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalViolations)
	assert.Equal(t, core.SeverityWarning, result.HighestSeverity)

	// Line 2 is the added line; its position counts the hunk header and the
	// leading context line, so it resolves to 3.
	require.Len(t, gh.inline, 1)
	assert.Equal(t, "main.go", gh.inline[0].Path)
	assert.Equal(t, 3, gh.inline[0].Position)
	assert.Equal(t, "abc123", gh.inline[0].CommitID)
	assert.Contains(t, gh.inline[0].Body, "**MAGIC-NUM**")

	require.Len(t, gh.comments, 1)
	assert.Contains(t, gh.comments[0], "### 🧠 AutoReviewBot Summary")

	require.Len(t, gh.statuses, 1)
	assert.Equal(t, statusCall{"success", "All checks passed"}, gh.statuses[0])
}

func TestRunUnresolvableLineFallsBackToSummary(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" line1",
		"+added line",
		" line2",
	}, "\n")

	gh := &fakeGitHub{patches: []github.ChangedPatch{{Filename: "main.go", Patch: patch}}}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: patch}}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{{
		// Line 1 is a context line in the patch; it has no diff position.
		{Rule: "MAGIC-NUM", File: "main.go", Line: 1, Explanation: "magic number", Suggestion: "name it", Severity: "warning"},
	}}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalViolations)
	assert.Empty(t, gh.inline, "no inline comment without a resolvable position")
	require.Len(t, gh.comments, 1)
	assert.Contains(t, gh.comments[0], "MAGIC-NUM")
}

func TestRunErrorSeverityFailsTheGate(t *testing.T) {
	gh := &fakeGitHub{}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: "+panic(\"boom\")"}}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{{
		{Rule: "NO-PANIC", File: "main.go", Line: 1, Explanation: "panic in library", Suggestion: "return error", Severity: "error"},
		{Rule: "MAGIC-NUM", File: "main.go", Line: 2, Explanation: "magic number", Suggestion: "name it", Severity: "warning"},
	}}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalViolations)
	assert.Equal(t, core.SeverityError, result.HighestSeverity)
	require.Len(t, gh.statuses, 1)
	assert.Equal(t, statusCall{"failure", "Critical rule violations found"}, gh.statuses[0])
}

func TestRunOverrideLabelSkipsReview(t *testing.T) {
	gh := &fakeGitHub{labels: []string{"bug", "override-autoreview"}}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: "+x := 1"}}}
	reviewer := &fakeReviewer{}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Empty(t, reviewer.batches, "the oracle is never consulted under override")
	assert.Empty(t, gh.inline)
	assert.Empty(t, gh.comments)
	require.Len(t, gh.statuses, 1)
	assert.Equal(t, statusCall{"success", "Review skipped by maintainer override."}, gh.statuses[0])
}

func TestRunLabelLookupFailureStillReviews(t *testing.T) {
	gh := &fakeGitHub{labelsErr: errors.New("api down")}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: "+x := 1"}}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{nil}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Len(t, reviewer.batches, 1, "review proceeds when the label check fails")
}

func TestRunDiffCollectionFailure(t *testing.T) {
	gh := &fakeGitHub{}
	source := &fakeSource{err: errors.New("git unavailable")}
	reviewer := &fakeReviewer{}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	_, err := job.Run(context.Background(), testEvent())
	require.Error(t, err)

	require.Len(t, gh.statuses, 1)
	assert.Equal(t, statusCall{"failure", "Review pipeline error"}, gh.statuses[0])
}

func TestRunOracleExhaustionDegradesToClean(t *testing.T) {
	gh := &fakeGitHub{}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: "+x := 1"}}}
	reviewer := &fakeReviewer{errs: []error{errors.New("oracle retries exhausted after 3 attempts")}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err, "an exhausted batch never fails the run")

	assert.Equal(t, 0, result.TotalViolations)
	assert.Empty(t, gh.comments)
	require.Len(t, gh.statuses, 1)
	assert.Equal(t, statusCall{"success", "All checks passed"}, gh.statuses[0])
}

func TestRunSplitsOversizedChangesIntoBatches(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBatchChars = 100
	bigDiff := "+" + strings.Repeat("a", 80)

	gh := &fakeGitHub{}
	source := &fakeSource{files: []core.ChangedFile{
		{Path: "a.go", Diff: bigDiff},
		{Path: "b.go", Diff: bigDiff},
	}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{
		{{Rule: "MAGIC-NUM", File: "a.go", Line: 1, Explanation: "x", Suggestion: "y", Severity: "warning"}},
		{{Rule: "MAGIC-NUM", File: "b.go", Line: 1, Explanation: "x", Suggestion: "y", Severity: "warning"}},
	}}

	job := newTestJob(t, cfg, gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	require.Len(t, reviewer.batches, 2, "each oversized file becomes its own batch")
	assert.Contains(t, reviewer.batches[0], "a")
	assert.Equal(t, 2, result.TotalViolations)
	require.Len(t, gh.comments, 1)
	assert.Contains(t, gh.comments[0], "`a.go`")
	assert.Contains(t, gh.comments[0], "`b.go`")
}

func TestRunDropsCandidateOutsideBatch(t *testing.T) {
	gh := &fakeGitHub{}
	source := &fakeSource{files: []core.ChangedFile{{Path: "main.go", Diff: "+x := 1"}}}
	reviewer := &fakeReviewer{candidates: [][]oracle.Candidate{{
		{Rule: "MAGIC-NUM", File: "invented.go", Line: 1, Explanation: "x", Suggestion: "y", Severity: "warning"},
	}}}

	job := newTestJob(t, testConfig(), gh, source, reviewer)
	result, err := job.Run(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalViolations)
	assert.Empty(t, gh.comments)
}

func TestRunInvalidEvent(t *testing.T) {
	gh := &fakeGitHub{}
	job := newTestJob(t, testConfig(), gh, &fakeSource{}, &fakeReviewer{})

	_, err := job.Run(context.Background(), &core.ReviewEvent{})
	require.Error(t, err)
	assert.Empty(t, gh.statuses, "no remote call before validation passes")
}

func TestViolationFromCandidate(t *testing.T) {
	rules := jobRuleSet(t)
	batch := &core.ReviewBatch{Files: []core.ChangedFile{{Path: "main.go", Diff: "+x"}}}
	multiBatch := &core.ReviewBatch{Files: []core.ChangedFile{
		{Path: "a.go", Diff: "+x"},
		{Path: "b.go", Diff: "+y"},
	}}
	changed := map[string]struct{}{"main.go": {}, "a.go": {}, "b.go": {}}

	t.Run("missing file resolves in single-file batch", func(t *testing.T) {
		v, err := ViolationFromCandidate(oracle.Candidate{
			Rule: "MAGIC-NUM", Line: 3, Explanation: "x", Suggestion: "y", Severity: "warning",
		}, batch, changed, rules)
		require.NoError(t, err)
		assert.Equal(t, "main.go", v.File)
	})

	t.Run("missing file is malformed in multi-file batch", func(t *testing.T) {
		_, err := ViolationFromCandidate(oracle.Candidate{
			Rule: "MAGIC-NUM", Line: 3, Explanation: "x", Suggestion: "y", Severity: "warning",
		}, multiBatch, changed, rules)
		require.ErrorIs(t, err, core.ErrMalformedViolation)
	})

	t.Run("file outside batch is malformed", func(t *testing.T) {
		_, err := ViolationFromCandidate(oracle.Candidate{
			Rule: "MAGIC-NUM", File: "b.go", Line: 3, Explanation: "x", Suggestion: "y", Severity: "warning",
		}, batch, changed, rules)
		require.ErrorIs(t, err, core.ErrMalformedViolation)
	})

	t.Run("unknown rule id is rejected", func(t *testing.T) {
		_, err := ViolationFromCandidate(oracle.Candidate{
			Rule: "NOT-A-RULE", File: "main.go", Line: 3, Explanation: "x", Suggestion: "y", Severity: "warning",
		}, batch, changed, rules)
		require.Error(t, err)
	})

	t.Run("unknown severity is rejected", func(t *testing.T) {
		_, err := ViolationFromCandidate(oracle.Candidate{
			Rule: "MAGIC-NUM", File: "main.go", Line: 3, Explanation: "x", Suggestion: "y", Severity: "catastrophic",
		}, batch, changed, rules)
		require.ErrorIs(t, err, core.ErrMalformedViolation)
	})
}
