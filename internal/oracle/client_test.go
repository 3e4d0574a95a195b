package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/retry"
)

func testRuleSet(t *testing.T) *core.RuleSet {
	t.Helper()
	rs, err := core.NewRuleSet([]core.RuleSpec{
		{ID: "R1", Severity: core.SeverityWarning, Hint: "no magic numbers"},
		{ID: "R2", Severity: core.SeverityError, Hint: "check errors"},
	})
	require.NoError(t, err)
	return rs
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Backoff: retry.Linear(0)}
}

func TestClientReviewSuccess(t *testing.T) {
	var gotPrompt string
	call := func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return `[{"rule":"R1","file":"a.go","line":2,"explanation":"x","suggestion":"y","severity":"warning","code_fix":""}]`, nil
	}

	client, err := newClient(call, fastPolicy(), time.Second, 40, discardLogger())
	require.NoError(t, err)

	got, err := client.Review(context.Background(), "+some diff", testRuleSet(t))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R1", got[0].Rule)

	// The prompt embeds the rule set, the diff, and the result cap.
	assert.Contains(t, gotPrompt, "id: R1 | severity: warning | hint: no magic numbers")
	assert.Contains(t, gotPrompt, "+some diff")
	assert.Contains(t, gotPrompt, "at most 40 elements")
	assert.Contains(t, gotPrompt, "severity (error|warning|info)")
}

func TestClientReviewRetriesOnParseFailure(t *testing.T) {
	calls := 0
	call := func(context.Context, string) (string, error) {
		calls++
		if calls < 3 {
			return "I could not find any problems, great work!", nil
		}
		return `[]`, nil
	}

	client, err := newClient(call, fastPolicy(), time.Second, 40, discardLogger())
	require.NoError(t, err)

	got, err := client.Review(context.Background(), "diff", testRuleSet(t))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3, calls)
}

func TestClientReviewExhaustion(t *testing.T) {
	calls := 0
	call := func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("backend unreachable")
	}

	client, err := newClient(call, fastPolicy(), time.Second, 40, discardLogger())
	require.NoError(t, err)

	got, err := client.Review(context.Background(), "diff", testRuleSet(t))
	require.Error(t, err)
	assert.Empty(t, got, "exhaustion degrades to an empty result")
	assert.Equal(t, 3, calls, "exactly three attempts before giving up")
}

func TestClientReviewResponseSizeCap(t *testing.T) {
	huge := make([]byte, maxResponseBytes+1)
	for i := range huge {
		huge[i] = 'x'
	}
	call := func(context.Context, string) (string, error) {
		return string(huge), nil
	}

	client, err := newClient(call, fastPolicy(), time.Second, 40, discardLogger())
	require.NoError(t, err)

	_, err = client.Review(context.Background(), "diff", testRuleSet(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds cap")
}

func TestClientReviewTimeout(t *testing.T) {
	call := func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	client, err := newClient(call, retry.Policy{MaxAttempts: 1}, 10*time.Millisecond, 40, discardLogger())
	require.NoError(t, err)

	_, err = client.Review(context.Background(), "diff", testRuleSet(t))
	require.Error(t, err)
}
