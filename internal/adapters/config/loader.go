// Package config provides the pakefile loader for pake.
package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// supportedVersion is the only pakefile format version understood by the loader.
const supportedVersion = "1"

// targetVariable is bound to the target name while expanding its deps and actions.
const targetVariable = "TARGET"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader for pakefile.yaml.
type Loader struct {
	logger   ports.Logger
	runner   ports.CommandRunner
	resolver ports.InputResolver
	fs       ports.FileSystem
}

// NewLoader creates a new Loader.
func NewLoader(
	logger ports.Logger,
	runner ports.CommandRunner,
	resolver ports.InputResolver,
	fs ports.FileSystem,
) *Loader {
	return &Loader{
		logger:   logger,
		runner:   runner,
		resolver: resolver,
		fs:       fs,
	}
}

// Load reads the pakefile at path and builds the target graph. Dependency globs
// are resolved relative to the directory containing the pakefile.
func (l *Loader) Load(ctx context.Context, path string, overrides map[string]string) (*domain.Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", path)
	}

	var pakefile Pakefile
	if err := yaml.Unmarshal(data, &pakefile); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", path)
	}

	if pakefile.Version != "" && pakefile.Version != supportedVersion {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedVersion, "expected version "+supportedVersion),
			"version", pakefile.Version)
	}

	root := filepath.Dir(path)

	vars, err := l.variables(ctx, &pakefile, root, overrides)
	if err != nil {
		return nil, err
	}

	g := domain.NewGraph(vars, domain.WithSourceProbe(l.probe))

	targets, err := decodeTargets(&pakefile.Targets)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	for _, entry := range targets {
		name, err := vars.Expand(entry.name, nil)
		if err != nil {
			return nil, zerr.With(err, "target", entry.name)
		}
		t, err := l.buildTarget(name, &entry.dto, vars, map[string]string{targetVariable: name}, root)
		if err != nil {
			return nil, err
		}
		if err := g.Register(t); err != nil {
			return nil, err
		}
	}

	for i := range pakefile.Rules {
		rule := pakefile.Rules[i]
		if rule.Pattern == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidRule, "rule has no pattern"), "rule_index", i)
		}
		factory := func(m domain.RuleMatch) (*domain.Target, error) {
			scope := m.Scope()
			scope[targetVariable] = m.Name
			return l.buildTarget(m.Name, &rule.TargetDTO, m.Vars, scope, root)
		}
		if err := g.RegisterRule(rule.Pattern, factory); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// probe reports the state of a file nothing builds.
func (l *Loader) probe(path string) domain.ArtifactState {
	state, err := l.fs.Stat(path)
	if err != nil {
		l.logger.Warn(fmt.Sprintf("cannot stat %s: %v", path, err))
		return domain.ArtifactState{}
	}
	return state
}

// variables assembles the frozen variable table. Overrides win over command
// variables, which win over static ones. Overridden commands are not run.
func (l *Loader) variables(
	ctx context.Context,
	pakefile *Pakefile,
	root string,
	overrides map[string]string,
) (domain.Variables, error) {
	static := domain.NewVariables(pakefile.Variables).With(overrides)

	names := make([]string, 0, len(pakefile.Commands))
	for name := range pakefile.Commands {
		if _, overridden := overrides[name]; overridden {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(names))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			argv, err := static.ExpandAll(pakefile.Commands[name], nil)
			if err != nil {
				return zerr.With(err, "variable", name)
			}
			outcome, err := l.runner.Execute(gctx, argv, domain.CommandOptions{Dir: root})
			if err != nil {
				return zerr.With(errors.Join(domain.ErrVariableCommandFailed, err), "variable", name)
			}
			mu.Lock()
			results[name] = strings.TrimSpace(string(outcome.Stdout))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Variables{}, err
	}

	merged := maps.Clone(pakefile.Variables)
	if merged == nil {
		merged = make(map[string]string, len(results)+len(overrides))
	}
	maps.Copy(merged, results)
	return domain.NewVariables(merged).With(overrides), nil
}

type targetEntry struct {
	name string
	dto  TargetDTO
}

// decodeTargets decodes the targets mapping in declaration order.
func decodeTargets(node *yaml.Node) ([]targetEntry, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "targets must be a mapping"), "line", node.Line)
	}

	entries := make([]targetEntry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var dto TargetDTO
		// A null value declares a file target with no deps and no action.
		if value.Tag != "!!null" {
			if err := value.Decode(&dto); err != nil {
				return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "target", key.Value)
			}
		}
		entries = append(entries, targetEntry{name: key.Value, dto: dto})
	}
	return entries, nil
}

// buildTarget turns a definition into a domain target named name. scope shadows
// the variable table during expansion.
func (l *Loader) buildTarget(
	name string,
	dto *TargetDTO,
	vars domain.Variables,
	scope map[string]string,
	root string,
) (*domain.Target, error) {
	kind, err := domain.ParseKind(dto.Kind)
	if err != nil {
		return nil, zerr.With(err, "target", name)
	}

	patterns, err := vars.ExpandAll(dto.Deps, scope)
	if err != nil {
		return nil, zerr.With(err, "target", name)
	}
	deps, err := l.resolver.ResolveInputs(patterns, root)
	if err != nil {
		return nil, zerr.With(err, "target", name)
	}

	action, err := buildAction(dto.Actions, vars, scope)
	if err != nil {
		return nil, zerr.With(err, "target", name)
	}

	t := domain.NewTarget(name, kind, deps, action)
	if dto.Clean != nil {
		t.Clean = *dto.Clean
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
