package domain

import (
	"iter"

	"go.trai.ch/zerr"
)

// Plan is the ordered set of targets required by one build request. Every target
// appears after all of its dependencies.
type Plan struct {
	targets []*Target
	index   map[InternedString]int
}

// Len returns the number of planned targets.
func (p *Plan) Len() int {
	return len(p.targets)
}

// Get returns the planned target with the given name.
func (p *Plan) Get(name InternedString) (*Target, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.targets[i], true
}

// Walk returns an iterator that yields targets in execution order.
func (p *Plan) Walk() iter.Seq[*Target] {
	return func(yield func(*Target) bool) {
		for _, t := range p.targets {
			if !yield(t) {
				return
			}
		}
	}
}

const (
	unvisited = iota
	visiting
	visited
)

// Plan resolves roots and everything they transitively depend on, returning the
// targets in dependency order. Traversal is depth-first in root order and then in
// declared dependency order, so unrelated targets keep their first-discovery order.
func (g *Graph) Plan(roots []string) (*Plan, error) {
	if len(roots) == 0 {
		return nil, ErrNoTargetsSpecified
	}

	p := &Plan{index: make(map[InternedString]int)}
	state := make(map[InternedString]int)
	var path []InternedString

	var visit func(name InternedString, requiredBy string) error
	visit = func(name InternedString, requiredBy string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return cycleFrom(path, name)
		}

		t, err := g.Resolve(name.String())
		if err != nil {
			if requiredBy != "" {
				return zerr.With(err, "required_by", requiredBy)
			}
			return err
		}

		state[name] = visiting
		path = append(path, name)
		for _, dep := range t.Dependencies {
			if err := visit(dep, name.String()); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited

		p.index[name] = len(p.targets)
		p.targets = append(p.targets, t)
		return nil
	}

	seen := make(map[InternedString]bool, len(roots))
	for _, r := range roots {
		name := NewInternedString(r)
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func cycleFrom(path []InternedString, repeated InternedString) error {
	start := 0
	for i, n := range path {
		if n == repeated {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(path)-start)
	for _, n := range path[start:] {
		cycle = append(cycle, n.String())
	}
	return &CycleError{Cycle: cycle}
}
