package oracle

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/sevigo/autoreviewbot/internal/core"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// promptData is the type-safe input for the review prompt template.
type promptData struct {
	Rules       string
	Diff        string
	MaxFindings int
}

// promptManager holds the parsed prompt templates embedded in the binary.
type promptManager struct {
	review *template.Template
}

func newPromptManager() (*promptManager, error) {
	tmpl, err := template.ParseFS(promptFiles, "prompts/review_default.prompt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded review prompt: %w", err)
	}
	return &promptManager{review: tmpl}, nil
}

// renderReview builds the full oracle prompt: the serialized rule set, the
// output schema, the diff text, and the result cap.
func (pm *promptManager) renderReview(diffText string, rules *core.RuleSet, maxFindings int) (string, error) {
	var buf bytes.Buffer
	data := promptData{
		Rules:       rules.PromptBlock(),
		Diff:        diffText,
		MaxFindings: maxFindings,
	}
	if err := pm.review.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render review prompt: %w", err)
	}
	return buf.String(), nil
}
