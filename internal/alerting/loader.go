package alerting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/blazewatch/internal/models"
)

// RulesConfig represents the top-level rules YAML document.
type RulesConfig struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is a rule as written in YAML. Enabled defaults to true.
type RuleSpec struct {
	ID          string        `yaml:"id,omitempty"`
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	Condition   string        `yaml:"condition"`
	Threshold   float64       `yaml:"threshold,omitempty"`
	Enabled     *bool         `yaml:"enabled,omitempty"`
	Severity    string        `yaml:"severity,omitempty"`
	Description string        `yaml:"description,omitempty"`
	Cooldown    time.Duration `yaml:"cooldown,omitempty"`
}

// Rule converts the YAML entry to an AlertRule.
func (s RuleSpec) Rule() models.AlertRule {
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	return models.AlertRule{
		ID:          s.ID,
		Name:        s.Name,
		Type:        models.AlertType(s.Type),
		Condition:   s.Condition,
		Threshold:   s.Threshold,
		Enabled:     enabled,
		Severity:    models.Severity(s.Severity),
		Description: s.Description,
		Cooldown:    s.Cooldown,
	}
}

// LoadRulesFromFile loads alert rules from a YAML file.
func LoadRulesFromFile(path string) ([]models.AlertRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f)
}

// LoadRules loads and validates alert rules from a reader. An empty document
// yields no rules. Rules without an id are identified by their name, so
// names must be unique among them.
func LoadRules(r io.Reader) ([]models.AlertRule, error) {
	var config RulesConfig
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	rules := make([]models.AlertRule, 0, len(config.Rules))
	ids := make(map[string]bool, len(config.Rules))
	for i, rs := range config.Rules {
		rule := rs.Rule()
		if err := ValidateRule(rule); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		id := rule.ID
		if id == "" {
			id = StableRuleID(rule.Name)
		}
		if ids[id] {
			return nil, fmt.Errorf("invalid rule at index %d: duplicate id %q, give each rule a unique name or id", i, id)
		}
		ids[id] = true
		rules = append(rules, rule)
	}
	return rules, nil
}
