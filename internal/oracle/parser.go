package oracle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/autoreviewbot/internal/core"
)

// Candidate is one untrusted violation record as the oracle reported it.
// It becomes a core.Violation only after validation against the active rule
// set and the run's changed-file set.
type Candidate struct {
	Rule        string `json:"rule"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
	CodeFix     string `json:"code_fix"`
}

// parseCandidates parses the oracle's textual response as a JSON array of
// candidate records. A response that is not a JSON array is a parse failure
// and triggers a retry upstream. Individual elements missing required fields
// are dropped with a warning, not propagated; over-long text fields are
// clipped to their schema bounds.
func parseCandidates(response string, maxFindings int, logger *slog.Logger) ([]Candidate, error) {
	cleaned := stripJSONFence(response)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elements); err != nil {
		return nil, fmt.Errorf("oracle response is not a JSON array: %w", err)
	}

	candidates := make([]Candidate, 0, len(elements))
	for i, raw := range elements {
		var c Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			logger.Warn("dropping unparsable oracle element", "index", i, "error", err)
			continue
		}
		if c.Rule == "" || c.Line == 0 || c.Explanation == "" || c.Severity == "" {
			logger.Warn("dropping oracle element with missing required field",
				"index", i, "rule", c.Rule, "line", c.Line)
			continue
		}
		c.Explanation = clip(c.Explanation, core.MaxExplanationLen)
		c.Suggestion = clip(c.Suggestion, core.MaxSuggestionLen)
		candidates = append(candidates, c)

		if len(candidates) == maxFindings {
			if len(elements) > maxFindings {
				logger.Warn("oracle exceeded result cap, truncating",
					"cap", maxFindings, "reported", len(elements))
			}
			break
		}
	}

	return candidates, nil
}

// stripJSONFence removes a ```json ... ``` wrapping that some models add
// despite being told not to.
func stripJSONFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return trimmed
	}
	inner := trimmed[idx+1:]
	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
