// Package domain contains the core domain models of the build graph: targets,
// pattern rules, variables, plans and build reports.
package domain

import (
	"iter"

	"go.trai.ch/zerr"
)

// SourceProbe reports the state of a file on disk. Resolve uses it to turn an
// existing path that no target or rule claims into a source target.
type SourceProbe func(path string) ArtifactState

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithSourceProbe sets the probe used for the source-file fallback.
func WithSourceProbe(probe SourceProbe) GraphOption {
	return func(g *Graph) {
		g.probe = probe
	}
}

// Graph is the registry of static targets and pattern rules. Targets synthesized by
// rules or for source files are memoized by name, so a name resolves to one instance
// for the graph's lifetime. A Graph is not safe for concurrent use.
type Graph struct {
	targets map[InternedString]*Target
	order   []InternedString
	rules   []*Rule
	memo    map[InternedString]*Target
	vars    Variables
	probe   SourceProbe
}

// NewGraph creates an empty graph bound to a frozen variable table.
func NewGraph(vars Variables, opts ...GraphOption) *Graph {
	g := &Graph{
		targets: make(map[InternedString]*Target),
		memo:    make(map[InternedString]*Target),
		vars:    vars,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Variables returns the graph's variable table.
func (g *Graph) Variables() Variables {
	return g.vars
}

// Register adds a static target.
// It returns an error if a target with the same name already exists.
func (g *Graph) Register(t *Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := g.targets[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTargetAlreadyExists, "duplicate target"), "target", t.Name.String())
	}
	if _, exists := g.memo[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTargetAlreadyExists, "target already resolved"), "target", t.Name.String())
	}
	g.targets[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// RegisterRule appends a pattern rule. Rules are tried in registration order.
// A pattern matches names from their first character, like a prefix match; add
// \z to require the whole name to match.
func (g *Graph) RegisterRule(pattern string, factory RuleFactory) error {
	rule, err := NewRule(pattern, factory)
	if err != nil {
		return err
	}
	g.rules = append(g.rules, rule)
	return nil
}

// Resolve returns the target for name, trying static targets, previously
// synthesized targets, pattern rules and finally existing source files.
func (g *Graph) Resolve(name string) (*Target, error) {
	key := NewInternedString(name)
	if t, ok := g.targets[key]; ok {
		return t, nil
	}
	if t, ok := g.memo[key]; ok {
		return t, nil
	}

	for _, rule := range g.rules {
		m, ok := rule.Match(name)
		if !ok {
			continue
		}
		m.Vars = g.vars
		t, err := g.synthesize(rule, m)
		if err != nil {
			return nil, err
		}
		g.memo[key] = t
		return t, nil
	}

	if g.probe != nil {
		if state := g.probe(name); state.Exists {
			t := NewSourceTarget(name, state)
			g.memo[key] = t
			return t, nil
		}
	}

	return nil, zerr.With(zerr.Wrap(ErrMissingDependency, "no target, rule or file matches"), "target", name)
}

func (g *Graph) synthesize(rule *Rule, m RuleMatch) (*Target, error) {
	t, err := rule.Factory(m)
	if err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(err, "rule factory failed"), "pattern", rule.Pattern.String()), "target", m.Name)
	}
	if t == nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidRule, "rule factory returned no target"), "pattern", rule.Pattern.String()), "target", m.Name)
	}
	if t.Name.IsZero() {
		t.Name = NewInternedString(m.Name)
	}
	if t.Name.String() != m.Name {
		return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidRule, "rule factory renamed the target"), "pattern", rule.Pattern.String()), "target", m.Name)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Targets yields the static targets in registration order.
func (g *Graph) Targets() iter.Seq[*Target] {
	return func(yield func(*Target) bool) {
		for _, name := range g.order {
			if !yield(g.targets[name]) {
				return
			}
		}
	}
}

// Rules returns the registered rules in match order.
func (g *Graph) Rules() []*Rule {
	return g.rules
}

// Len returns the number of static targets.
func (g *Graph) Len() int {
	return len(g.order)
}
