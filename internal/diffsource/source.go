// Package diffsource produces the set of changed files for a review run.
// Every diff is redacted here, before the text can reach any network
// boundary.
package diffsource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/github"
	"github.com/sevigo/autoreviewbot/internal/gitutil"
	"github.com/sevigo/autoreviewbot/internal/redact"
)

// Source enumerates the files differing from the base reference, with
// redacted diff text.
type Source interface {
	ChangedFiles(ctx context.Context, event *core.ReviewEvent) ([]core.ChangedFile, error)
}

// GitSource reads zero-context diffs from the local CI checkout.
type GitSource struct {
	git     *gitutil.Client
	baseRef string
	logger  *slog.Logger
}

// NewGitSource builds a Source over a local repository checkout.
func NewGitSource(git *gitutil.Client, baseRef string, logger *slog.Logger) *GitSource {
	return &GitSource{git: git, baseRef: baseRef, logger: logger}
}

// ChangedFiles lists changed paths and captures each file's redacted
// zero-context diff. A diff retrieval failure aborts the run for that file
// with a reported error instead of silently producing an empty diff.
func (s *GitSource) ChangedFiles(ctx context.Context, _ *core.ReviewEvent) ([]core.ChangedFile, error) {
	paths, err := s.git.ChangedFiles(ctx, s.baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate changed files: %w", err)
	}

	files := make([]core.ChangedFile, 0, len(paths))
	for _, path := range paths {
		diff, err := s.git.FileDiff(ctx, s.baseRef, path)
		if err != nil {
			return nil, fmt.Errorf("failed to capture diff for %s: %w", path, err)
		}
		if diff == "" {
			s.logger.Debug("file has no textual diff, skipping", "path", path)
			continue
		}
		files = append(files, core.ChangedFile{Path: path, Diff: redact.Secrets(diff)})
	}
	return files, nil
}

// APISource reads per-file patches from the GitHub API, for server mode
// where no local checkout exists.
type APISource struct {
	client github.Client
	logger *slog.Logger
}

// NewAPISource builds a Source over the GitHub pull request files API.
func NewAPISource(client github.Client, logger *slog.Logger) *APISource {
	return &APISource{client: client, logger: logger}
}

// ChangedFiles lists the pull request's files and redacts each patch.
func (s *APISource) ChangedFiles(ctx context.Context, event *core.ReviewEvent) ([]core.ChangedFile, error) {
	patches, err := s.client.ListChangedFiles(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull request files: %w", err)
	}

	files := make([]core.ChangedFile, 0, len(patches))
	for _, p := range patches {
		if p.Patch == "" {
			s.logger.Debug("file has no patch data, skipping", "path", p.Filename)
			continue
		}
		files = append(files, core.ChangedFile{Path: p.Filename, Diff: redact.Secrets(p.Patch)})
	}
	return files, nil
}
