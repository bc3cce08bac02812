// Package staleness decides which planned targets need to be rebuilt.
package staleness

import (
	"go.trai.ch/pake/internal/core/domain"
)

// Decision is the outcome of a staleness check.
type Decision struct {
	Stale  bool
	Reason string
	// Dependency names the dependency that made the target stale, if any.
	Dependency string
}

// String returns the reason, followed by the blamed dependency in parentheses.
func (d Decision) String() string {
	if d.Dependency == "" {
		return d.Reason
	}
	return d.Reason + " (" + d.Dependency + ")"
}

// Reasons reported by Check.
const (
	ReasonPhony           = "phony target"
	ReasonMissingArtifact = "artifact missing"
	ReasonStaleDependency = "dependency is stale"
	ReasonNewerDependency = "dependency is newer"
	ReasonUpToDate        = "up to date"
)

// Lookup returns the planned target with the given name.
type Lookup func(name domain.InternedString) (*domain.Target, bool)

// Checker evaluates staleness for one build invocation. Results are cached, so
// every target is decided once. Checker is not safe for concurrent use.
type Checker struct {
	lookup  Lookup
	results map[domain.InternedString]Decision
}

// NewChecker creates a Checker that resolves dependencies through plan.
func NewChecker(plan *domain.Plan) *Checker {
	return NewCheckerWithLookup(plan.Get)
}

// NewCheckerWithLookup creates a Checker that resolves dependencies through lookup.
func NewCheckerWithLookup(lookup Lookup) *Checker {
	return &Checker{
		lookup:  lookup,
		results: make(map[domain.InternedString]Decision),
	}
}

// Check decides whether t is stale, using the artifact state recorded on t and
// on its dependencies:
//
//   - phony targets are always stale;
//   - fetch-once targets are stale only when their artifact is absent;
//   - virtual targets are stale when any dependency is stale;
//   - file targets are stale when their artifact is absent, a dependency is
//     stale, or a dependency's artifact is at least as recent as their own.
func (c *Checker) Check(t *domain.Target) Decision {
	if d, ok := c.results[t.Name]; ok {
		return d
	}
	d := c.decide(t)
	c.results[t.Name] = d
	return d
}

func (c *Checker) decide(t *domain.Target) Decision {
	switch t.Kind {
	case domain.KindPhony:
		return Decision{Stale: true, Reason: ReasonPhony}
	case domain.KindFetchOnce:
		if !t.Artifact.Exists {
			return Decision{Stale: true, Reason: ReasonMissingArtifact}
		}
		return Decision{Reason: ReasonUpToDate}
	case domain.KindFile:
		if !t.Artifact.Exists {
			return Decision{Stale: true, Reason: ReasonMissingArtifact}
		}
	}

	for _, name := range t.Dependencies {
		dep, ok := c.lookup(name)
		if !ok {
			continue
		}
		if c.Check(dep).Stale {
			return Decision{Stale: true, Reason: ReasonStaleDependency, Dependency: name.String()}
		}
		if t.Kind == domain.KindFile && dep.Kind.HasArtifact() && dep.Artifact.Exists &&
			!dep.Artifact.ModTime.Before(t.Artifact.ModTime) {
			return Decision{Stale: true, Reason: ReasonNewerDependency, Dependency: name.String()}
		}
	}
	return Decision{Reason: ReasonUpToDate}
}
