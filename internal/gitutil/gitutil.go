// Package gitutil reads change information from the local Git checkout the
// CI pipeline runs in.
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
)

const commandTimeout = 30 * time.Second

// Client reads diffs from a local repository checkout.
type Client struct {
	repoPath string
	logger   *slog.Logger
}

// NewClient verifies that path is a Git repository and returns a client
// bound to it. A checkout that go-git cannot open is a bootstrap failure.
func NewClient(path string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true}); err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return &Client{repoPath: path, logger: logger}, nil
}

// ChangedFiles lists the paths that differ from the base reference.
func (c *Client) ChangedFiles(ctx context.Context, baseRef string) ([]string, error) {
	out, err := c.run(ctx, "diff", "--name-only", baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files against %s: %w", baseRef, err)
	}

	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// FileDiff returns the zero-context unified diff for one file against the
// base reference: only changed lines and their hunk headers. A retrieval
// failure is reported, never converted into an empty diff.
func (c *Client) FileDiff(ctx context.Context, baseRef, path string) (string, error) {
	out, err := c.run(ctx, "diff", "--unified=0", baseRef, "--", path)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s against %s: %w", path, baseRef, err)
	}
	return out, nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.logger.Error("git command failed", "args", args, "stderr", stderr.String())
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
