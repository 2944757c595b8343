package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bowerhall/reconmem/pkg/reconmem"
)

type rulesFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Kind   string `yaml:"kind"`
	Value  string `yaml:"value"`
	Scoped *bool  `yaml:"scoped"`
}

// LoadRules reads autoscope rules from a YAML file. A rule without an
// explicit scoped field puts its matches in scope.
func LoadRules(path string) ([]reconmem.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}

	rules := make([]reconmem.Rule, 0, len(f.Rules))
	for i, entry := range f.Rules {
		kind, err := reconmem.ParseRuleKind(entry.Kind)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if entry.Value == "" {
			return nil, fmt.Errorf("rule %d: value is required", i+1)
		}

		scoped := true
		if entry.Scoped != nil {
			scoped = *entry.Scoped
		}

		rules = append(rules, reconmem.Rule{Kind: kind, Value: entry.Value, Scoped: scoped})
	}

	return rules, nil
}
