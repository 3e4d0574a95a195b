// Package storage persists run history and violations for later inspection.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/autoreviewbot/internal/core"
)

// Store defines the database operations the pipeline uses. It is optional:
// when no database is configured the pipeline runs with a nil Store and the
// CSV audit log remains the only durable record.
type Store interface {
	// SaveRun persists one run and its violations atomically.
	SaveRun(ctx context.Context, event *core.ReviewEvent, result *core.RunResult, violations []core.Violation) error
	// LatestRunForPR returns the most recent run record for a pull request.
	LatestRunForPR(ctx context.Context, repoFullName string, prNumber int) (*RunRecord, error)
}

// RunRecord is one persisted review run, as stored and as served by the run
// history endpoint.
type RunRecord struct {
	ID             string    `db:"id" json:"id"`
	RepoFullName   string    `db:"repo_full_name" json:"repo_full_name"`
	PRNumber       int       `db:"pr_number" json:"pr_number"`
	HeadSHA        string    `db:"head_sha" json:"head_sha"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	ElapsedMs      int64     `db:"elapsed_ms" json:"elapsed_ms"`
	ViolationCount int       `db:"violation_count" json:"violation_count"`
	Conclusion     string    `db:"conclusion" json:"conclusion"`
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) SaveRun(ctx context.Context, event *core.ReviewEvent, result *core.RunResult, violations []core.Violation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, repo_full_name, pr_number, head_sha, started_at, elapsed_ms, violation_count, conclusion)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, event.RepoFullName, event.PRNumber, event.HeadSHA,
		result.StartedAt, result.Elapsed.Milliseconds(), result.TotalViolations, result.Conclusion())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, v := range violations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO violations (run_id, file, line, rule, severity, explanation, suggestion, code_fix)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.ID, v.File, v.Line, v.Rule, v.Severity, v.Explanation, v.Suggestion, v.CodeFix)
		if err != nil {
			return fmt.Errorf("failed to insert violation: %w", err)
		}
	}

	return tx.Commit()
}

func (s *postgresStore) LatestRunForPR(ctx context.Context, repoFullName string, prNumber int) (*RunRecord, error) {
	var record RunRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT id, repo_full_name, pr_number, head_sha, started_at, elapsed_ms, violation_count, conclusion
		 FROM runs
		 WHERE repo_full_name = $1 AND pr_number = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		repoFullName, prNumber)
	if err != nil {
		return nil, fmt.Errorf("no run found for PR %s#%d: %w", repoFullName, prNumber, err)
	}
	return &record, nil
}
