package domain

import (
	"regexp"
	"strconv"

	"go.trai.ch/zerr"
)

// RuleMatch is what a RuleFactory receives when a name matches its pattern.
type RuleMatch struct {
	// Name is the requested target name.
	Name string
	// Groups holds named capture groups.
	Groups map[string]string
	// Submatches holds all captures by index; Submatches[0] is the whole match.
	Submatches []string
	// Vars is the graph's variable table.
	Vars Variables
}

// Scope returns the captures as template bindings: named groups by name and every
// capture by its index.
func (m RuleMatch) Scope() map[string]string {
	scope := make(map[string]string, len(m.Groups)+len(m.Submatches))
	for i, s := range m.Submatches {
		scope[strconv.Itoa(i)] = s
	}
	for k, v := range m.Groups {
		scope[k] = v
	}
	return scope
}

// Expand expands template with the captures shadowing the variable table.
func (m RuleMatch) Expand(template string) (string, error) {
	return m.Vars.Expand(template, m.Scope())
}

// RuleFactory synthesizes the target for a matched name.
type RuleFactory func(m RuleMatch) (*Target, error)

// Rule is a pattern that synthesizes targets on demand.
type Rule struct {
	Pattern *regexp.Regexp
	Factory RuleFactory
}

// NewRule compiles pattern into a Rule.
func NewRule(pattern string, factory RuleFactory) (*Rule, error) {
	if factory == nil {
		return nil, zerr.With(zerr.Wrap(ErrInvalidRule, "rule has no factory"), "pattern", pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrInvalidRule, err.Error()), "pattern", pattern)
	}
	return &Rule{Pattern: re, Factory: factory}, nil
}

// Match reports whether name matches the rule and returns its captures. The
// match must start at the beginning of name; the end is anchored only when the
// pattern says so.
func (r *Rule) Match(name string) (RuleMatch, bool) {
	loc := r.Pattern.FindStringSubmatchIndex(name)
	if loc == nil || loc[0] != 0 {
		return RuleMatch{}, false
	}
	sub := make([]string, len(loc)/2)
	for i := range sub {
		if loc[2*i] >= 0 {
			sub[i] = name[loc[2*i]:loc[2*i+1]]
		}
	}
	groups := make(map[string]string)
	for i, g := range r.Pattern.SubexpNames() {
		if g != "" {
			groups[g] = sub[i]
		}
	}
	return RuleMatch{Name: name, Groups: groups, Submatches: sub}, true
}
