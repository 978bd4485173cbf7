package ards

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// TextRule is one deterministic pattern applied to radiology free text.
// Negation rules veto a report that would otherwise qualify, keeping the
// evidence rule auditable without any scoring or judgment call.
type TextRule struct {
	Name     string `yaml:"name" json:"name"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	Negation bool   `yaml:"negation" json:"negation"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []TextRule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return RulesConfig{}, err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}

	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no radiology evidence rules configured")
	}

	return cfg, nil
}

// DefaultRules covers the phrasing both source systems use for ARDS-
// compatible imaging. Patterns are matched case-insensitively.
func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []TextRule{
		{Name: "ARDS", Pattern: `\bards\b|acute respiratory distress`, Enabled: true},
		{Name: "BilateralInfiltrates", Pattern: `bilateral[a-z\s,]*(infiltrat|opacit|consolidat)`, Enabled: true},
		{Name: "DiffuseAlveolarDamage", Pattern: `diffuse alveolar damage`, Enabled: true},
		{Name: "PulmonaryEdemaNonCardiogenic", Pattern: `non[- ]?cardiogenic (pulmonary )?edema`, Enabled: true},
		{Name: "NoEvidence", Pattern: `no (radiographic )?evidence of|negative for|without evidence of`, Negation: true, Enabled: true},
		{Name: "Resolved", Pattern: `\bresolved\b|\bresolving\b|interval improvement`, Negation: true, Enabled: true},
	}}
}

type compiledRule struct {
	rule TextRule
	re   *regexp.Regexp
}

// Matcher evaluates the evidence rule set against a single report. It is a
// pure text -> bool function so it can be tested without database access.
type Matcher struct {
	positive []compiledRule
	negation []compiledRule
}

func NewMatcher(cfg RulesConfig) (*Matcher, error) {
	m := &Matcher{}
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(`(?i)` + rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled := compiledRule{rule: rule, re: re}
		if rule.Negation {
			m.negation = append(m.negation, compiled)
		} else {
			m.positive = append(m.positive, compiled)
		}
	}
	if len(m.positive) == 0 {
		return nil, errors.New("rule set has no enabled positive rules")
	}
	return m, nil
}

// Match reports whether the text carries ARDS evidence: at least one
// positive rule fires and no negation rule does.
func (m *Matcher) Match(text string) bool {
	fired := false
	for _, rule := range m.positive {
		if rule.re.MatchString(text) {
			fired = true
			break
		}
	}
	if !fired {
		return false
	}
	for _, rule := range m.negation {
		if rule.re.MatchString(text) {
			return false
		}
	}
	return true
}
