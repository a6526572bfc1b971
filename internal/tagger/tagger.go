// Package tagger assigns a first-pass category to a transaction description
// using an ordered list of regular-expression rules.
package tagger

import (
	"fmt"
	"os"
	"regexp"

	"github.com/dvloznov/ledgr/internal/domain"
	"gopkg.in/yaml.v3"
)

// Rule maps a description pattern to a category value.
type Rule struct {
	Category string
	Pattern  *regexp.Regexp
}

// Tagger holds rules in priority order. The first matching rule wins.
// A Tagger is immutable and safe for concurrent use.
type Tagger struct {
	rules []Rule
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "streaming_services", Pattern: regexp.MustCompile(`(?i)netflix`)},
		{Category: "food_delivery", Pattern: regexp.MustCompile(`(?i)swiggy`)},
		{Category: "rent", Pattern: regexp.MustCompile(`(?i)rent`)},
	}
}

// New creates a tagger over rules. Order is preserved.
func New(rules []Rule) *Tagger {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Tagger{rules: cp}
}

// Default creates a tagger with DefaultRules.
func Default() *Tagger {
	return New(DefaultRules())
}

// Categorize returns the category of the first rule matching description,
// or domain.Untagged when none does.
func (t *Tagger) Categorize(description string) string {
	for _, r := range t.rules {
		if r.Pattern.MatchString(description) {
			return r.Category
		}
	}
	return domain.Untagged
}

// Rules returns a copy of the rules in priority order.
func (t *Tagger) Rules() []Rule {
	cp := make([]Rule, len(t.rules))
	copy(cp, t.rules)
	return cp
}

// ruleFile is the on-disk YAML layout:
//
//	rules:
//	  - category: streaming_services
//	    pattern: netflix|hotstar
type ruleFile struct {
	Rules []struct {
		Category string `yaml:"category"`
		Pattern  string `yaml:"pattern"`
	} `yaml:"rules"`
}

// ParseRules decodes YAML rules. Patterns are matched case-insensitively.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseRules: decode yaml: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Category == "" || r.Pattern == "" {
			return nil, fmt.Errorf("ParseRules: rule %d: category and pattern are required", i+1)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("ParseRules: rule %d (%s): %w", i+1, r.Category, err)
		}
		rules = append(rules, Rule{Category: r.Category, Pattern: re})
	}
	return rules, nil
}

// LoadRules reads YAML rules from path.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: read %s: %w", path, err)
	}
	return ParseRules(data)
}

// FromFile builds a tagger from path, or the default tagger when path is empty.
func FromFile(path string) (*Tagger, error) {
	if path == "" {
		return Default(), nil
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return New(rules), nil
}
