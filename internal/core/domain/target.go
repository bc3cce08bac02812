package domain

import (
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Kind classifies how a target relates to the filesystem and how its staleness is decided.
type Kind int

const (
	// KindFile is a target backed by an artifact at the path equal to its name.
	KindFile Kind = iota
	// KindVirtual is an alias grouping other targets. It has no artifact and no action.
	KindVirtual
	// KindPhony always runs its action when requested and has no artifact.
	KindPhony
	// KindFetchOnce is a file target that is built only when its artifact is absent.
	KindFetchOnce
)

// String returns the configuration spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindVirtual:
		return "virtual"
	case KindPhony:
		return "phony"
	case KindFetchOnce:
		return "fetch-once"
	default:
		return "unknown"
	}
}

// HasArtifact reports whether targets of this kind own a filesystem artifact.
func (k Kind) HasArtifact() bool {
	return k == KindFile || k == KindFetchOnce
}

// ParseKind converts a configuration spelling into a Kind. The empty string is KindFile.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "file":
		return KindFile, nil
	case "virtual":
		return KindVirtual, nil
	case "phony":
		return KindPhony, nil
	case "fetch-once", "fetchonce", "fetch_once":
		return KindFetchOnce, nil
	default:
		return KindFile, zerr.With(zerr.Wrap(ErrInvalidTarget, "unknown target kind"), "kind", s)
	}
}

// ArtifactState is the last observed state of a target's artifact.
type ArtifactState struct {
	Exists  bool
	ModTime time.Time
	Size    int64
}

// Target is a named node in the build graph.
type Target struct {
	Name         InternedString
	Kind         Kind
	Dependencies []InternedString
	Action       Action
	Artifact     ArtifactState

	// Clean marks the artifact for removal by the clean command.
	Clean bool
	// Source is set on targets synthesized for existing files that nothing builds.
	Source bool
}

// NewTarget creates a target of the given kind. File targets are cleanable by default.
func NewTarget(name string, kind Kind, deps []string, action Action) *Target {
	return &Target{
		Name:         NewInternedString(name),
		Kind:         kind,
		Dependencies: NewInternedStrings(deps),
		Action:       action,
		Clean:        kind == KindFile,
	}
}

// NewSourceTarget creates the synthetic target standing for an existing file on disk.
func NewSourceTarget(name string, state ArtifactState) *Target {
	return &Target{
		Name:     NewInternedString(name),
		Kind:     KindFile,
		Artifact: state,
		Source:   true,
	}
}

// Path returns the artifact path of the target, or the empty string when it has none.
func (t *Target) Path() string {
	if !t.Kind.HasArtifact() {
		return ""
	}
	return t.Name.String()
}

// DependencyNames returns the dependency names as plain strings.
func (t *Target) DependencyNames() []string {
	names := make([]string, len(t.Dependencies))
	for i, d := range t.Dependencies {
		names[i] = d.String()
	}
	return names
}

// Validate checks the structural invariants of a single target.
func (t *Target) Validate() error {
	if t.Name.IsZero() || t.Name.String() == "" {
		return zerr.Wrap(ErrInvalidTarget, "target name is empty")
	}
	if t.Kind == KindVirtual && t.Action != nil {
		return zerr.With(zerr.Wrap(ErrInvalidTarget, "virtual targets cannot have actions"), "target", t.Name.String())
	}
	for _, dep := range t.Dependencies {
		if dep.IsZero() || dep.String() == "" {
			return zerr.With(zerr.Wrap(ErrInvalidTarget, "empty dependency name"), "target", t.Name.String())
		}
	}
	return nil
}
