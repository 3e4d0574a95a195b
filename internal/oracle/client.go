// Package oracle packages redacted diffs into requests to the reasoning
// backend and turns its untrusted output into typed candidate records.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/retry"
)

// maxResponseBytes caps how much oracle output the parser will accept.
// Anything larger is treated as a transport failure.
const maxResponseBytes = 64 * 1024

// Reviewer asks the reasoning backend to classify rule violations in a
// batch of diff text.
type Reviewer interface {
	// Review returns candidate violation records for the batch. When the
	// retry budget is exhausted it returns an empty slice and the last
	// error; callers degrade to "no violations for this batch" rather than
	// aborting the run.
	Review(ctx context.Context, diffText string, rules *core.RuleSet) ([]Candidate, error)
}

// callFunc is the minimal LLM surface the client depends on.
type callFunc func(ctx context.Context, prompt string) (string, error)

// Client is the goframe-backed Reviewer.
type Client struct {
	call        callFunc
	prompts     *promptManager
	policy      retry.Policy
	timeout     time.Duration
	maxFindings int
	logger      *slog.Logger
}

// NewClient builds a Reviewer on top of an LLM model with a bounded retry
// policy: 3 attempts with linearly increasing delay.
func NewClient(model llms.Model, timeout time.Duration, maxFindings int, logger *slog.Logger) (*Client, error) {
	call := func(ctx context.Context, prompt string) (string, error) {
		return model.Call(ctx, prompt)
	}
	return newClient(call, retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Linear(2 * time.Second),
	}, timeout, maxFindings, logger)
}

func newClient(call callFunc, policy retry.Policy, timeout time.Duration, maxFindings int, logger *slog.Logger) (*Client, error) {
	prompts, err := newPromptManager()
	if err != nil {
		return nil, err
	}
	return &Client{
		call:        call,
		prompts:     prompts,
		policy:      policy,
		timeout:     timeout,
		maxFindings: maxFindings,
		logger:      logger,
	}, nil
}

// Review implements Reviewer. One call moves through
// Pending -> (Success | Retrying -> Pending | Exhausted); Exhausted is
// terminal and yields an empty result, not a run-fatal error.
func (c *Client) Review(ctx context.Context, diffText string, rules *core.RuleSet) ([]Candidate, error) {
	prompt, err := c.prompts.renderReview(diffText, rules, c.maxFindings)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	attempt := 0
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		attempt++

		response, callErr := c.callWithTimeout(ctx, prompt)
		if callErr != nil {
			c.logger.Warn("oracle call failed", "attempt", attempt, "error", callErr)
			return callErr
		}
		if len(response) > maxResponseBytes {
			c.logger.Warn("oracle response exceeds size cap", "attempt", attempt, "bytes", len(response))
			return fmt.Errorf("oracle response of %d bytes exceeds cap of %d", len(response), maxResponseBytes)
		}

		parsed, parseErr := parseCandidates(response, c.maxFindings, c.logger)
		if parseErr != nil {
			c.logger.Warn("oracle response failed to parse", "attempt", attempt, "error", parseErr)
			return parseErr
		}

		candidates = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("oracle retries exhausted after %d attempts: %w", attempt, err)
	}
	return candidates, nil
}

// callWithTimeout wraps LLM generation with a hard timeout, in case the
// underlying provider ignores context cancellation.
func (c *Client) callWithTimeout(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := c.call(ctx, prompt)
		select {
		case resultCh <- result{resp, err}:
		case <-ctx.Done():
		}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
