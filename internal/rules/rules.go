// Package rules loads the active review rule set from configuration.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/autoreviewbot/internal/core"
)

// ruleFile is the on-disk shape of a rule set.
type ruleFile struct {
	Rules []core.RuleSpec `yaml:"rules"`
}

// Load reads and validates the rule file at path. Any problem here is a
// bootstrap failure: the run must abort before a single remote call.
func Load(path string) (*core.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	ruleSet, err := core.NewRuleSet(file.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid rule set in %s: %w", path, err)
	}
	return ruleSet, nil
}
