package core

import (
	"fmt"
	"strings"
)

// RuleSpec describes a single review rule given to the oracle. Rules are
// loaded once at startup and are immutable for the lifetime of a run.
type RuleSpec struct {
	ID       string   `yaml:"id"`
	Severity Severity `yaml:"severity"`
	Hint     string   `yaml:"hint"`
	Weight   float64  `yaml:"weight,omitempty"`
}

// RuleSet is the full set of active rules, keyed by rule ID.
type RuleSet struct {
	rules []RuleSpec
	byID  map[string]RuleSpec
}

// NewRuleSet builds a RuleSet from an ordered list of specs. Duplicate IDs
// and empty IDs are rejected so a Violation can always be traced back to
// exactly one rule.
func NewRuleSet(specs []RuleSpec) (*RuleSet, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("rule set is empty")
	}
	byID := make(map[string]RuleSpec, len(specs))
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("rule with empty id")
		}
		if _, dup := byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", spec.ID)
		}
		if _, err := ParseSeverity(string(spec.Severity)); err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.ID, err)
		}
		byID[spec.ID] = spec
	}
	return &RuleSet{rules: specs, byID: byID}, nil
}

// ByID looks up a rule by its identifier.
func (rs *RuleSet) ByID(id string) (RuleSpec, bool) {
	spec, ok := rs.byID[id]
	return spec, ok
}

// Rules returns the rules in their configured order.
func (rs *RuleSet) Rules() []RuleSpec {
	return rs.rules
}

// Len returns the number of active rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// PromptBlock serializes the rule set as id/severity/hint triples for
// embedding in the oracle prompt.
func (rs *RuleSet) PromptBlock() string {
	var sb strings.Builder
	for _, r := range rs.rules {
		fmt.Fprintf(&sb, "- id: %s | severity: %s | hint: %s", r.ID, r.Severity, r.Hint)
		if r.Weight > 0 {
			fmt.Fprintf(&sb, " | weight: %g", r.Weight)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
