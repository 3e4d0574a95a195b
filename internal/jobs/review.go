// Package jobs defines background tasks such as automated code reviews.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/autoreviewbot/internal/audit"
	"github.com/sevigo/autoreviewbot/internal/batch"
	"github.com/sevigo/autoreviewbot/internal/config"
	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/diffsource"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/oracle"
	"github.com/sevigo/autoreviewbot/internal/storage"
)

// ReviewJob runs one full review: override gate, diff collection, batching,
// oracle calls, position resolution, publication, and the terminal status.
// The pipeline is sequential; the only shared state is the append-only
// violation list scoped to a single run.
type ReviewJob struct {
	cfg       *config.Config
	ruleSet   *core.RuleSet
	source    diffsource.Source
	reviewer  oracle.Reviewer
	ghClient  github.Client
	publisher *github.Publisher
	auditLog  *audit.Log
	store     storage.Store // optional, may be nil
	logger    *slog.Logger
}

// NewReviewJob wires a review job from its collaborators. The store is
// optional; everything else is required.
func NewReviewJob(
	cfg *config.Config,
	ruleSet *core.RuleSet,
	source diffsource.Source,
	reviewer oracle.Reviewer,
	ghClient github.Client,
	publisher *github.Publisher,
	auditLog *audit.Log,
	store storage.Store,
	logger *slog.Logger,
) core.Job {
	if cfg == nil || ruleSet == nil || source == nil || reviewer == nil ||
		ghClient == nil || publisher == nil || auditLog == nil || logger == nil {
		panic("review job dependencies cannot be nil")
	}
	return &ReviewJob{
		cfg:       cfg,
		ruleSet:   ruleSet,
		source:    source,
		reviewer:  reviewer,
		ghClient:  ghClient,
		publisher: publisher,
		auditLog:  auditLog,
		store:     store,
		logger:    logger,
	}
}

// Run executes the review pipeline for one pull request. It always drives
// the run to a terminal commit status; only an invalid event returns before
// any remote call.
func (j *ReviewJob) Run(ctx context.Context, event *core.ReviewEvent) (*core.RunResult, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}

	result := &core.RunResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	j.logger.Info("starting review run", "run_id", result.ID, "repo", event.RepoFullName, "pr", event.PRNumber)

	if j.overridePresent(ctx, event) {
		result.Skipped = true
		result.Elapsed = time.Since(result.StartedAt)
		j.logger.Info("maintainer override detected, skipping review", "run_id", result.ID)
		_ = j.publisher.PublishStatus(ctx, event, "success", result.Description())
		return result, nil
	}

	files, err := j.source.ChangedFiles(ctx, event)
	if err != nil {
		_ = j.publisher.PublishStatus(ctx, event, "failure", "Review pipeline error")
		return nil, fmt.Errorf("failed to collect changed files: %w", err)
	}
	result.FilesReviewed = len(files)

	violations := j.collectViolations(ctx, files, result.ID)

	j.publish(ctx, event, violations)

	for _, v := range violations {
		result.TotalViolations++
		result.HighestSeverity = result.HighestSeverity.Max(v.Severity)
	}
	result.Elapsed = time.Since(result.StartedAt)

	_ = j.publisher.PublishStatus(ctx, event, result.Conclusion(), result.Description())

	if err := j.auditLog.AppendRun(result); err != nil {
		j.logger.Warn("failed to append run audit record", "error", err)
	}
	if j.store != nil {
		if err := j.store.SaveRun(ctx, event, result, violations); err != nil {
			j.logger.Warn("failed to persist run", "run_id", result.ID, "error", err)
		}
	}

	j.logger.Info("review run completed",
		"run_id", result.ID,
		"violations", result.TotalViolations,
		"conclusion", result.Conclusion(),
		"elapsed", result.Elapsed)
	return result, nil
}

// overridePresent checks the pull request labels for the maintainer override
// marker. A label lookup failure is treated as "no override" so the review
// still runs.
func (j *ReviewJob) overridePresent(ctx context.Context, event *core.ReviewEvent) bool {
	labels, err := j.ghClient.ListLabels(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		j.logger.Warn("failed to check override label, proceeding with review", "error", err)
		return false
	}
	return slices.Contains(labels, j.cfg.OverrideLabel)
}

// collectViolations batches the changed files, consults the oracle per
// batch, and validates every candidate record before it can reach the
// publisher. Malformed records are logged and excluded, never guessed at.
func (j *ReviewJob) collectViolations(ctx context.Context, files []core.ChangedFile, runID string) []core.Violation {
	changedSet := make(map[string]struct{}, len(files))
	for _, f := range files {
		changedSet[f.Path] = struct{}{}
	}

	var violations []core.Violation
	for i, b := range batch.Pack(files, j.cfg.MaxBatchChars) {
		candidates, err := j.reviewer.Review(ctx, b.DiffText(), j.ruleSet)
		if err != nil {
			j.logger.Warn("oracle gave up on batch, no violations reported for it",
				"batch", i, "files", len(b.Files), "error", err)
			continue
		}

		for _, c := range candidates {
			v, err := ViolationFromCandidate(c, &b, changedSet, j.ruleSet)
			if err != nil {
				j.logger.Warn("dropping malformed violation",
					"batch", i, "rule", c.Rule, "file", c.File, "line", c.Line, "error", err)
				continue
			}

			violations = append(violations, v)
			if err := j.auditLog.AppendViolation(runID, v); err != nil {
				j.logger.Warn("failed to append violation audit record", "error", err)
			}
		}
	}
	return violations
}

// ViolationFromCandidate turns an untrusted oracle record into a validated
// Violation. A missing file field is resolved only for single-file batches;
// a file outside the reviewed batch is malformed, never reassigned.
func ViolationFromCandidate(c oracle.Candidate, b *core.ReviewBatch, changedSet map[string]struct{}, ruleSet *core.RuleSet) (core.Violation, error) {
	file := c.File
	if file == "" {
		if len(b.Files) != 1 {
			return core.Violation{}, fmt.Errorf("%w: no file attribution in multi-file batch", core.ErrMalformedViolation)
		}
		file = b.Files[0].Path
	}
	if _, ok := b.Paths()[file]; !ok {
		return core.Violation{}, fmt.Errorf("%w: file %q not part of the reviewed batch", core.ErrMalformedViolation, file)
	}

	severity, err := core.ParseSeverity(c.Severity)
	if err != nil {
		return core.Violation{}, fmt.Errorf("%w: %v", core.ErrMalformedViolation, err)
	}

	v := core.Violation{
		Rule:        c.Rule,
		File:        file,
		Line:        c.Line,
		Explanation: c.Explanation,
		Suggestion:  c.Suggestion,
		Severity:    severity,
		CodeFix:     c.CodeFix,
	}
	if err := v.Validate(ruleSet, changedSet); err != nil {
		return core.Violation{}, err
	}
	return v, nil
}

// publish resolves diff positions per file and emits inline comments plus
// the aggregate summary. Position data comes from the GitHub patch for each
// file; when it cannot be fetched every violation degrades to summary-only.
func (j *ReviewJob) publish(ctx context.Context, event *core.ReviewEvent, violations []core.Violation) {
	if len(violations) == 0 {
		return
	}

	patches := make(map[string]string)
	changed, err := j.ghClient.ListChangedFiles(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		j.logger.Warn("failed to fetch pull request patches, inline comments unavailable", "error", err)
	} else {
		for _, p := range changed {
			patches[p.Filename] = p.Patch
		}
	}

	positionCache := make(map[string]map[int]int)
	for _, v := range violations {
		positions, ok := positionCache[v.File]
		if !ok {
			patch, found := patches[v.File]
			if !found || patch == "" {
				j.logger.Warn("no patch metadata for file", "file", v.File)
			}
			positions = github.BuildPositionMap(patch, j.logger)
			positionCache[v.File] = positions
		}
		j.publisher.PublishInline(ctx, event, v, positions)
	}

	if err := j.publisher.PublishSummary(ctx, event, violations); err != nil {
		j.logger.Warn("summary publication failed", "error", err)
	}
}
