package core

import (
	"errors"
	"fmt"
)

// Bounds enforced on oracle-produced text fields. Anything longer is
// truncated at parse time, so a record that reaches validation is already
// within bounds unless it was constructed by hand.
const (
	MaxExplanationLen = 200
	MaxSuggestionLen  = 100
)

// Violation is a single validated rule violation reported by the oracle.
// It is immutable once created; every Violation that reaches the publisher
// has passed Validate.
type Violation struct {
	Rule        string
	File        string
	Line        int
	Explanation string
	Suggestion  string
	Severity    Severity
	CodeFix     string
}

// ErrMalformedViolation marks records that failed invariant checks. Such
// records are logged and excluded from publication, never guessed at.
var ErrMalformedViolation = errors.New("malformed violation")

// Validate enforces the run invariant: the rule must exist in the active
// rule set, the file must be part of the current run's changed-file set,
// and the line number must be 1-based.
func (v *Violation) Validate(rules *RuleSet, changedFiles map[string]struct{}) error {
	if v.Rule == "" {
		return fmt.Errorf("%w: empty rule id", ErrMalformedViolation)
	}
	if _, ok := rules.ByID(v.Rule); !ok {
		return fmt.Errorf("%w: unknown rule id %q", ErrMalformedViolation, v.Rule)
	}
	if v.File == "" {
		return fmt.Errorf("%w: empty file", ErrMalformedViolation)
	}
	if _, ok := changedFiles[v.File]; !ok {
		return fmt.Errorf("%w: file %q not part of this run", ErrMalformedViolation, v.File)
	}
	if v.Line < 1 {
		return fmt.Errorf("%w: line %d out of range", ErrMalformedViolation, v.Line)
	}
	if v.Explanation == "" {
		return fmt.Errorf("%w: empty explanation", ErrMalformedViolation)
	}
	if len(v.Explanation) > MaxExplanationLen {
		return fmt.Errorf("%w: explanation exceeds %d chars", ErrMalformedViolation, MaxExplanationLen)
	}
	if len(v.Suggestion) > MaxSuggestionLen {
		return fmt.Errorf("%w: suggestion exceeds %d chars", ErrMalformedViolation, MaxSuggestionLen)
	}
	if _, err := ParseSeverity(string(v.Severity)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedViolation, err)
	}
	return nil
}
