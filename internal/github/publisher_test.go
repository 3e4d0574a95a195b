package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoreviewbot/internal/core"
)

type recordingClient struct {
	inline    []InlineComment
	inlineErr error
	comments  []string
	statuses  []string
}

func (r *recordingClient) ListChangedFiles(context.Context, string, string, int) ([]ChangedPatch, error) {
	return nil, nil
}

func (r *recordingClient) ListLabels(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}

func (r *recordingClient) CreateInlineComment(_ context.Context, _, _ string, _ int, comment InlineComment) error {
	r.inline = append(r.inline, comment)
	return r.inlineErr
}

func (r *recordingClient) CreateIssueComment(_ context.Context, _, _ string, _ int, body string) error {
	r.comments = append(r.comments, body)
	return nil
}

func (r *recordingClient) CreateStatus(_ context.Context, _, _, _, state, _, statusContext string) error {
	r.statuses = append(r.statuses, state+"/"+statusContext)
	return nil
}

func publisherEvent() *core.ReviewEvent {
	return &core.ReviewEvent{RepoOwner: "acme", RepoName: "widgets", PRNumber: 7, HeadSHA: "deadbeef"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishInline(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, testLogger())

	v := core.Violation{
		Rule: "NO-MAGIC-NUMBERS", File: "main.go", Line: 5,
		Explanation: "magic number", Suggestion: "name it",
		Severity: core.SeverityError, CodeFix: "const x = 5",
	}

	posted := p.PublishInline(context.Background(), publisherEvent(), v, map[int]int{5: 12})
	assert.True(t, posted)
	require.Len(t, client.inline, 1)
	assert.Equal(t, 12, client.inline[0].Position)
	assert.Equal(t, "main.go", client.inline[0].Path)
	assert.Equal(t, "deadbeef", client.inline[0].CommitID)
	assert.Contains(t, client.inline[0].Body, "🔴 **NO-MAGIC-NUMBERS**")
	assert.Contains(t, client.inline[0].Body, "💡 name it")
	assert.Contains(t, client.inline[0].Body, "const x = 5")
}

func TestPublishInlineNoPosition(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, testLogger())

	v := core.Violation{Rule: "R1", File: "main.go", Line: 99, Severity: core.SeverityInfo}
	posted := p.PublishInline(context.Background(), publisherEvent(), v, map[int]int{5: 12})
	assert.False(t, posted)
	assert.Empty(t, client.inline)
}

func TestPublishInlineAPIFailureIsNonFatal(t *testing.T) {
	client := &recordingClient{inlineErr: errors.New("422 unprocessable")}
	p := NewPublisher(client, testLogger())

	v := core.Violation{Rule: "R1", File: "main.go", Line: 5, Severity: core.SeverityInfo}
	posted := p.PublishInline(context.Background(), publisherEvent(), v, map[int]int{5: 12})
	assert.True(t, posted, "the attempt counts even when the API rejects it")
}

func TestPublishSummary(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, testLogger())

	violations := []core.Violation{
		{Rule: "A", File: "a.go", Line: 1, Explanation: "first", Suggestion: "s1", Severity: core.SeverityWarning},
		{Rule: "B", File: "b.go", Line: 2, Explanation: "second", Suggestion: "s2", Severity: core.SeverityInfo, CodeFix: "fix()"},
	}
	require.NoError(t, p.PublishSummary(context.Background(), publisherEvent(), violations))

	require.Len(t, client.comments, 1)
	body := client.comments[0]
	assert.Contains(t, body, "### 🧠 AutoReviewBot Summary")
	assert.Contains(t, body, "🔍 **A** in `a.go` (line 1)")
	assert.Contains(t, body, "🔍 **B** in `b.go` (line 2)")
	assert.Contains(t, body, noFixPlaceholder, "a missing fix gets the placeholder")
	assert.Less(t, strings.Index(body, "**A**"), strings.Index(body, "**B**"), "discovery order is preserved")
}

func TestPublishSummaryEmpty(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, testLogger())

	require.NoError(t, p.PublishSummary(context.Background(), publisherEvent(), nil))
	assert.Empty(t, client.comments, "no summary comment for a clean run")
}

func TestPublishStatus(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, testLogger())

	require.NoError(t, p.PublishStatus(context.Background(), publisherEvent(), "failure", "Critical rule violations found"))
	require.Len(t, client.statuses, 1)
	assert.Equal(t, "failure/"+StatusContext, client.statuses[0])
}
