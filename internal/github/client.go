// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// ChangedPatch holds the filename and patch data for a single file included
// in a pull request, as GitHub reports it. The patch is the source of truth
// for position resolution.
type ChangedPatch struct {
	Filename string
	Patch    string
}

// InlineComment is a review comment anchored to a diff position. Position is
// the opaque counter GitHub uses to address patch lines; it is not a line
// number.
type InlineComment struct {
	Body     string
	CommitID string
	Path     string
	Position int
}

// Client defines the set of GitHub operations the review pipeline needs:
// pull request files, labels, comments, and commit statuses.
type Client interface {
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedPatch, error)
	ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error)
	CreateInlineComment(ctx context.Context, owner, repo string, number int, comment InlineComment) error
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
	CreateStatus(ctx context.Context, owner, repo, sha, state, description, statusContext string) error
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// NewPATClient creates a GitHub client authenticated with a Personal Access
// Token. This is the normal mode for CI runs, where the workflow provides a
// token through the environment.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	return &gitHubClient{client: client, logger: logger}
}

// ListChangedFiles retrieves the list of files modified in a pull request.
// It handles pagination automatically; GitHub returns at most 100 files per
// page.
func (g *gitHubClient) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedPatch, error) {
	var allFiles []ChangedPatch
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list files for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, file := range files {
			patch := ""
			if file.Patch != nil {
				patch = *file.Patch
			}
			allFiles = append(allFiles, ChangedPatch{
				Filename: file.GetFilename(),
				Patch:    patch,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// ListLabels returns the names of the labels attached to a pull request.
func (g *gitHubClient) ListLabels(ctx context.Context, owner, repo string, number int) ([]string, error) {
	labels, _, err := g.client.Issues.ListLabelsByIssue(ctx, owner, repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		g.logger.Error("failed to list labels", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}

	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.GetName())
	}
	return names, nil
}

// CreateInlineComment posts a review comment at a diff position.
func (g *gitHubClient) CreateInlineComment(ctx context.Context, owner, repo string, number int, comment InlineComment) error {
	prComment := &github.PullRequestComment{
		Body:     github.Ptr(comment.Body),
		CommitID: github.Ptr(comment.CommitID),
		Path:     github.Ptr(comment.Path),
		Position: github.Ptr(comment.Position),
	}
	_, _, err := g.client.PullRequests.CreateComment(ctx, owner, repo, number, prComment)
	if err != nil {
		g.logger.Error("failed to create inline comment", "owner", owner, "repo", repo, "pr", number, "path", comment.Path, "position", comment.Position, "error", err)
	}
	return err
}

// CreateIssueComment posts a general comment on the pull request.
func (g *gitHubClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create comment", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// CreateStatus sets a commit status against the head commit of the pull
// request under review.
func (g *gitHubClient) CreateStatus(ctx context.Context, owner, repo, sha, state, description, statusContext string) error {
	status := &github.RepoStatus{
		State:       github.Ptr(state),
		Description: github.Ptr(description),
		Context:     github.Ptr(statusContext),
	}
	_, _, err := g.client.Repositories.CreateStatus(ctx, owner, repo, sha, status)
	if err != nil {
		g.logger.Error("failed to create commit status", "owner", owner, "repo", repo, "sha", sha, "state", state, "error", err)
	}
	return err
}
