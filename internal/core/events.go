package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

// ReviewEvent represents a simplified, internal view of a pull request under
// review. In CI mode it is assembled from environment configuration; in
// server mode it is derived from a webhook payload.
type ReviewEvent struct {
	RepoOwner    string
	RepoName     string
	RepoFullName string

	PRNumber int
	HeadSHA  string

	InstallationID int64
}

// Validate ensures the event carries everything the pipeline needs before
// any remote call is made.
func (e *ReviewEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if e.RepoOwner == "" {
		return fmt.Errorf("repository owner cannot be empty")
	}
	if e.RepoName == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if e.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got: %d", e.PRNumber)
	}
	if e.HeadSHA == "" {
		return fmt.Errorf("head SHA cannot be empty")
	}
	return nil
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the
// application's internal representation. It acts as an anti-corruption
// layer: only "opened" and "synchronize" actions with complete repository
// and head information produce an event.
func EventFromPullRequest(event *github.PullRequestEvent) (*ReviewEvent, error) {
	action := event.GetAction()
	if action != "opened" && action != "synchronize" && action != "reopened" {
		return nil, fmt.Errorf("pull request action %q does not trigger a review", action)
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	pr := event.GetPullRequest()
	if pr == nil || pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("pull request information is missing from the event")
	}
	if pr.GetHead() == nil || pr.GetHead().GetSHA() == "" {
		return nil, fmt.Errorf("pull request %d has no valid head SHA", pr.GetNumber())
	}

	if event.GetInstallation() == nil || event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	return &ReviewEvent{
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   repo.GetFullName(),
		PRNumber:       pr.GetNumber(),
		HeadSHA:        pr.GetHead().GetSHA(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}
