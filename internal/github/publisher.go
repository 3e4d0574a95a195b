package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/autoreviewbot/internal/core"
)

// StatusContext is the fixed context label for the gating commit status.
const StatusContext = "AutoReviewBot"

const noFixPlaceholder = "// no fix provided"

// Publisher turns validated violations into inline comments, a run summary,
// and the final commit status. Publication failures are logged and skipped;
// they never abort the run.
type Publisher struct {
	client Client
	logger *slog.Logger
}

// NewPublisher creates a Publisher on top of a GitHub client.
func NewPublisher(client Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// PublishInline posts one inline comment for a violation if its line has a
// resolvable diff position. It reports whether an inline comment was
// attempted; a violation without a position is left for the summary only.
func (p *Publisher) PublishInline(ctx context.Context, event *core.ReviewEvent, v core.Violation, positions map[int]int) bool {
	position, ok := positions[v.Line]
	if !ok {
		p.logger.Warn("no position found for violation, summary only",
			"file", v.File, "line", v.Line, "rule", v.Rule)
		return false
	}

	comment := InlineComment{
		Body:     formatInlineComment(v),
		CommitID: event.HeadSHA,
		Path:     v.File,
		Position: position,
	}
	if err := p.client.CreateInlineComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, comment); err != nil {
		p.logger.Warn("failed to post inline comment, continuing",
			"file", v.File, "line", v.Line, "error", err)
	}
	return true
}

// PublishSummary posts one aggregate comment enumerating every violation in
// discovery order, grouped by file and line. Called only when the run found
// at least one violation.
func (p *Publisher) PublishSummary(ctx context.Context, event *core.ReviewEvent, violations []core.Violation) error {
	if len(violations) == 0 {
		return nil
	}

	body := FormatSummary(violations)
	if err := p.client.CreateIssueComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body); err != nil {
		p.logger.Warn("failed to post summary comment, continuing", "error", err)
		return err
	}
	return nil
}

// PublishStatus sets the terminal commit status for the run.
func (p *Publisher) PublishStatus(ctx context.Context, event *core.ReviewEvent, state, description string) error {
	err := p.client.CreateStatus(ctx, event.RepoOwner, event.RepoName, event.HeadSHA, state, description, StatusContext)
	if err != nil {
		p.logger.Error("failed to publish commit status", "state", state, "error", err)
	}
	return err
}

// formatInlineComment renders a single violation as an inline review comment.
func formatInlineComment(v core.Violation) string {
	fix := v.CodeFix
	if fix == "" {
		fix = noFixPlaceholder
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s **%s**\n\n", severityEmoji(v.Severity), v.Rule)
	sb.WriteString(v.Explanation)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "💡 %s\n\n", v.Suggestion)
	fmt.Fprintf(&sb, "```\n%s\n```", fix)
	return sb.String()
}

// FormatSummary renders the aggregate summary comment body.
func FormatSummary(violations []core.Violation) string {
	var sb strings.Builder
	sb.WriteString("### 🧠 AutoReviewBot Summary\n\n")

	entries := make([]string, 0, len(violations))
	for _, v := range violations {
		fix := v.CodeFix
		if fix == "" {
			fix = noFixPlaceholder
		}
		entries = append(entries, fmt.Sprintf(
			"🔍 **%s** in `%s` (line %d):\n%s\n💡 %s\n```\n%s\n```",
			v.Rule, v.File, v.Line, v.Explanation, v.Suggestion, fix))
	}
	sb.WriteString(strings.Join(entries, "\n\n"))
	return sb.String()
}

// severityEmoji returns the marker used in inline comment headers.
func severityEmoji(severity core.Severity) string {
	switch severity {
	case core.SeverityError:
		return "🔴"
	case core.SeverityWarning:
		return "🟡"
	case core.SeverityInfo:
		return "🟢"
	default:
		return "⚪"
	}
}
