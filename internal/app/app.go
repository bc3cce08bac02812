// Package app implements the application layer for pake.
package app

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/pake/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// DefaultTarget is built when no target is named.
const DefaultTarget = "all"

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	reporter     ports.Reporter
	store        ports.BuildInfoStore
	fs           ports.FileSystem
	logger       ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	reporter ports.Reporter,
	store ports.BuildInfoStore,
	fs ports.FileSystem,
	logger ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		reporter:     reporter,
		store:        store,
		fs:           fs,
		logger:       logger,
	}
}

// LoadOptions selects and parameterizes the pakefile.
type LoadOptions struct {
	// File is the path of the pakefile.
	File string
	// Overrides replace variables defined in the pakefile.
	Overrides map[string]string
}

// BuildOptions configures a build.
type BuildOptions struct {
	LoadOptions

	DryRun    bool
	Jobs      int
	KeepGoing bool
	Timeout   time.Duration
	// Telemetry, when set, records this build instead of the default recorder.
	Telemetry ports.Telemetry
}

// Build loads the pakefile, plans the requested targets and runs them. The report
// is rendered through the reporter once the run is over. Configuration and cycle
// errors are returned before any action runs, with a nil report.
func (a *App) Build(ctx context.Context, targets []string, opts BuildOptions) (*domain.Report, error) {
	graph, err := a.load(ctx, opts.LoadOptions)
	if err != nil {
		return nil, err
	}

	if len(targets) == 0 {
		targets = []string{DefaultTarget}
	}

	plan, err := graph.Plan(targets)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to plan build")
	}

	report, err := a.scheduler.Run(ctx, plan, scheduler.Options{
		DryRun:    opts.DryRun,
		Jobs:      opts.Jobs,
		KeepGoing: opts.KeepGoing,
		Timeout:   opts.Timeout,
		Telemetry: opts.Telemetry,
	})

	if rerr := a.reporter.Report(report); rerr != nil {
		a.logger.Warn(fmt.Sprintf("failed to render report: %v", rerr))
	}
	return report, err
}

// Clean removes the artifacts of cleanable file targets and drops the build info
// store. It returns the removed paths in declaration order.
func (a *App) Clean(ctx context.Context, opts LoadOptions) ([]string, error) {
	graph, err := a.load(ctx, opts)
	if err != nil {
		return nil, err
	}

	var removed []string
	for t := range graph.Targets() {
		if !t.Clean || t.Kind != domain.KindFile {
			continue
		}
		state, err := a.fs.Stat(t.Path())
		if err != nil {
			return removed, err
		}
		if !state.Exists {
			continue
		}
		if err := a.fs.Remove(t.Path()); err != nil {
			return removed, err
		}
		a.logger.Info("removed " + t.Path())
		removed = append(removed, t.Path())
	}

	if err := a.store.Reset(); err != nil {
		return removed, err
	}
	return removed, nil
}

// TargetSummary describes a declared target.
type TargetSummary struct {
	Name         string
	Kind         domain.Kind
	Dependencies []string
	Clean        bool
	// LastBuild is the recorded build of the artifact, nil when there is none.
	LastBuild *domain.BuildInfo
}

// Listing is the content of a pakefile as seen by the engine.
type Listing struct {
	Targets []TargetSummary
	// Rules holds the rule patterns in match order.
	Rules []string
}

// Targets lists the declared targets and rule patterns.
func (a *App) Targets(ctx context.Context, opts LoadOptions) (*Listing, error) {
	graph, err := a.load(ctx, opts)
	if err != nil {
		return nil, err
	}

	listing := &Listing{}
	for t := range graph.Targets() {
		summary := TargetSummary{
			Name:         t.Name.String(),
			Kind:         t.Kind,
			Dependencies: t.DependencyNames(),
			Clean:        t.Clean,
		}
		if t.Kind.HasArtifact() {
			info, err := a.store.Get(summary.Name)
			if err != nil {
				a.logger.Warn("cannot read build info for " + summary.Name + ": " + err.Error())
			}
			summary.LastBuild = info
		}
		listing.Targets = append(listing.Targets, summary)
	}
	for _, r := range graph.Rules() {
		listing.Rules = append(listing.Rules, r.Pattern.String())
	}
	return listing, nil
}

func (a *App) load(ctx context.Context, opts LoadOptions) (*domain.Graph, error) {
	graph, err := a.configLoader.Load(ctx, opts.File, opts.Overrides)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return graph, nil
}
