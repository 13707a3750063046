package page

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed conditions.yaml
var defaultConditions []byte

// ConditionRule maps a set of keywords to the icon and copy shown for a condition.
type ConditionRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Icon     string   `yaml:"icon"`
	Text     string   `yaml:"text"`
	Message  string   `yaml:"message"`

	tmpl *template.Template
}

// MessageData is the data available to a rule's message template.
type MessageData struct {
	Location  string
	Temp      string
	FeelsLike string
	Condition string
}

// Matches reports whether any keyword is contained in the lower-cased condition text.
func (r ConditionRule) Matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Render executes the message template. A rule that fails to render falls back to its text.
func (r ConditionRule) Render(data MessageData) string {
	if r.tmpl == nil {
		return r.Message
	}
	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return r.Text
	}
	return b.String()
}

// ConditionTable is an ordered list of rules plus a fallback. Declaration order is the match
// priority.
type ConditionTable struct {
	rules    []ConditionRule
	fallback ConditionRule
}

type conditionFile struct {
	Default ConditionRule   `yaml:"default"`
	Rules   []ConditionRule `yaml:"rules"`
}

// LoadConditionTable parses a YAML condition table.
func LoadConditionTable(data []byte) (*ConditionTable, error) {
	var file conditionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse condition table: %w", err)
	}
	return NewConditionTable(file.Default, file.Rules...)
}

// NewConditionTable validates the rules, lower-cases their keywords and compiles templates.
func NewConditionTable(fallback ConditionRule, rules ...ConditionRule) (*ConditionTable, error) {
	if len(rules) == 0 {
		return nil, errors.New("condition table has no rules")
	}

	t := &ConditionTable{rules: make([]ConditionRule, 0, len(rules))}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", r.Name)
		}
		seen[r.Name] = true
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %q: no keywords", r.Name)
		}
		compiled, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		t.rules = append(t.rules, compiled)
	}

	if fallback.Name == "" {
		fallback.Name = "default"
	}
	fb, err := compileRule(fallback)
	if err != nil {
		return nil, err
	}
	t.fallback = fb
	return t, nil
}

func compileRule(r ConditionRule) (ConditionRule, error) {
	keywords := make([]string, 0, len(r.Keywords))
	for _, kw := range r.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return r, fmt.Errorf("rule %q: empty keyword", r.Name)
		}
		keywords = append(keywords, kw)
	}
	r.Keywords = keywords

	if r.Message != "" {
		tmpl, err := template.New(r.Name).Option("missingkey=error").Parse(r.Message)
		if err != nil {
			return r, fmt.Errorf("rule %q: invalid message template: %w", r.Name, err)
		}
		r.tmpl = tmpl
	}
	return r, nil
}

// Match returns the first rule matching the condition text, or the fallback.
func (t *ConditionTable) Match(condition string) ConditionRule {
	lowered := strings.ToLower(condition)
	for _, r := range t.rules {
		if r.Matches(lowered) {
			return r
		}
	}
	return t.fallback
}

// Rules returns the rules in match order.
func (t *ConditionTable) Rules() []ConditionRule {
	out := make([]ConditionRule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Fallback returns the rule used when nothing matches.
func (t *ConditionTable) Fallback() ConditionRule {
	return t.fallback
}

var (
	defaultTable     *ConditionTable
	defaultTableOnce sync.Once
)

// DefaultConditionTable returns the embedded condition table.
func DefaultConditionTable() *ConditionTable {
	defaultTableOnce.Do(func() {
		t, err := LoadConditionTable(defaultConditions)
		if err != nil {
			panic(fmt.Sprintf("embedded condition table is invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}
