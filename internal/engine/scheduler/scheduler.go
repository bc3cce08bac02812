// Package scheduler implements the target execution scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/pake/internal/engine/staleness"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Options configures a single build run.
type Options struct {
	// DryRun evaluates staleness only. Stale targets are reported as pending.
	DryRun bool
	// Jobs bounds the number of concurrently running actions. Zero means one per CPU.
	Jobs int
	// KeepGoing builds every branch not depending on a failed target.
	KeepGoing bool
	// Timeout is the default limit for each command without its own timeout.
	Timeout time.Duration
	// Telemetry replaces the scheduler's recorder for this run.
	Telemetry ports.Telemetry
}

// Scheduler executes the targets of a plan in dependency order.
type Scheduler struct {
	runner    ports.CommandRunner
	fs        ports.FileSystem
	hasher    ports.Hasher
	verifier  ports.Verifier
	store     ports.BuildInfoStore
	telemetry ports.Telemetry
	logger    ports.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	runner ports.CommandRunner,
	fs ports.FileSystem,
	hasher ports.Hasher,
	verifier ports.Verifier,
	store ports.BuildInfoStore,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		runner:    runner,
		fs:        fs,
		hasher:    hasher,
		verifier:  verifier,
		store:     store,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Run builds every stale target of plan. A target is dispatched once all of its
// dependencies reached a terminal state, and at most once per run.
//
// The returned report always lists every planned target. The error is non-nil
// when a target failed or was skipped, or when ctx was cancelled.
func (s *Scheduler) Run(ctx context.Context, plan *domain.Plan, opts Options) (*domain.Report, error) {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = s.telemetry
	}

	start := time.Now()
	state := s.newRunState(ctx, plan, opts)

	for {
		state.schedule()
		if state.active == 0 {
			break
		}
		state.handleResult(<-state.resultsCh)
	}
	_ = state.group.Wait()

	report := state.report(time.Since(start))
	err := report.Err()
	if ctx.Err() != nil {
		err = errors.Join(err, ctx.Err())
	}
	return report, err
}

type result struct {
	name    domain.InternedString
	err     error
	output  []byte
	elapsed time.Duration
}

type schedulerRunState struct {
	s    *Scheduler
	ctx  context.Context
	opts Options
	plan *domain.Plan

	checker    *staleness.Checker
	inDegree   map[domain.InternedString]int
	dependents map[domain.InternedString][]domain.InternedString
	results    map[domain.InternedString]*domain.TargetResult
	// culprit names the failed target a skipped target is blamed on.
	culprit map[domain.InternedString]domain.InternedString

	ready     []domain.InternedString
	active    int
	aborted   bool
	resultsCh chan result
	group     errgroup.Group
}

func (s *Scheduler) newRunState(ctx context.Context, plan *domain.Plan, opts Options) *schedulerRunState {
	state := &schedulerRunState{
		s:          s,
		ctx:        ctx,
		opts:       opts,
		plan:       plan,
		checker:    staleness.NewChecker(plan),
		inDegree:   make(map[domain.InternedString]int, plan.Len()),
		dependents: make(map[domain.InternedString][]domain.InternedString, plan.Len()),
		results:    make(map[domain.InternedString]*domain.TargetResult, plan.Len()),
		culprit:    make(map[domain.InternedString]domain.InternedString),
		resultsCh:  make(chan result, opts.Jobs),
	}

	for t := range plan.Walk() {
		state.results[t.Name] = &domain.TargetResult{Name: t.Name.String(), Kind: t.Kind, State: domain.StateUnbuilt}
		seen := make(map[domain.InternedString]bool, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			state.inDegree[t.Name]++
			state.dependents[dep] = append(state.dependents[dep], t.Name)
		}
		if state.inDegree[t.Name] == 0 {
			state.ready = append(state.ready, t.Name)
		}
	}
	return state
}

// schedule dispatches ready targets until the worker limit is reached. Targets
// that need no work complete inline.
func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.opts.Jobs {
		if state.ctx.Err() != nil {
			state.aborted = true
		}
		if state.aborted {
			return
		}

		name := state.ready[0]
		state.ready = state.ready[1:]
		t, _ := state.plan.Get(name)
		state.dispatch(t)
	}
}

func (state *schedulerRunState) dispatch(t *domain.Target) {
	res := state.results[t.Name]

	if dep, ok := state.failedDependency(t); ok {
		state.culprit[t.Name] = dep
		res.State = domain.StateSkipped
		res.Err = zerr.With(fmt.Errorf("%w: %s", domain.ErrDependencyFailed, dep), "dependency", dep.String())
		state.complete(t.Name)
		return
	}

	if err := state.s.refresh(t); err != nil {
		res.State = domain.StateFailed
		res.Err = err
		state.fail(t.Name)
		return
	}

	decision := state.checker.Check(t)
	res.Reason = decision.String()
	if !decision.Stale {
		_, vertex := state.opts.Telemetry.Record(state.ctx, t.Name.String())
		vertex.Cached()
		vertex.Complete(nil)
		res.State = domain.StateNotNeeded
		state.complete(t.Name)
		return
	}

	if state.opts.DryRun {
		res.State = domain.StatePending
		state.complete(t.Name)
		return
	}

	res.State = domain.StateBuilding
	state.active++
	state.group.Go(func() error {
		state.resultsCh <- state.s.build(state.ctx, t, state.opts)
		return nil
	})
}

// failedDependency returns the target blamed for a failure upstream of t.
func (state *schedulerRunState) failedDependency(t *domain.Target) (domain.InternedString, bool) {
	for _, dep := range t.Dependencies {
		switch state.results[dep].State {
		case domain.StateFailed:
			return dep, true
		case domain.StateSkipped:
			if culprit, ok := state.culprit[dep]; ok {
				return culprit, true
			}
			return dep, true
		}
	}
	return domain.InternedString{}, false
}

func (state *schedulerRunState) handleResult(r result) {
	state.active--
	res := state.results[r.name]
	res.Output = r.output
	res.Elapsed = r.elapsed

	if r.err != nil {
		res.State = domain.StateFailed
		res.Err = r.err
		state.fail(r.name)
		return
	}

	t, _ := state.plan.Get(r.name)
	if err := state.s.verify(t); err != nil {
		res.State = domain.StateFailed
		res.Err = err
		state.fail(r.name)
		return
	}
	if err := state.s.refresh(t); err != nil {
		state.s.logger.Warn(err.Error())
	}
	state.s.record(t)
	res.State = domain.StateBuilt
	state.complete(r.name)
}

func (state *schedulerRunState) fail(name domain.InternedString) {
	if !state.opts.KeepGoing {
		state.aborted = true
	}
	state.complete(name)
}

// complete releases the dependents of name.
func (state *schedulerRunState) complete(name domain.InternedString) {
	for _, dependent := range state.dependents[name] {
		state.inDegree[dependent]--
		if state.inDegree[dependent] == 0 {
			state.ready = append(state.ready, dependent)
		}
	}
}

func (state *schedulerRunState) report(elapsed time.Duration) *domain.Report {
	report := &domain.Report{DryRun: state.opts.DryRun, Elapsed: elapsed}
	for t := range state.plan.Walk() {
		res := state.results[t.Name]
		if !res.State.IsTerminal() && res.State != domain.StatePending {
			res.State = domain.StateSkipped
			res.Err = domain.ErrBuildAborted
		}
		report.Results = append(report.Results, *res)
	}
	return report
}

// refresh re-reads the artifact state of t.
func (s *Scheduler) refresh(t *domain.Target) error {
	if !t.Kind.HasArtifact() {
		return nil
	}
	st, err := s.fs.Stat(t.Path())
	if err != nil {
		return err
	}
	t.Artifact = st
	return nil
}

// verify fails a target whose artifact is still absent after its action ran.
func (s *Scheduler) verify(t *domain.Target) error {
	if !t.Kind.HasArtifact() {
		return nil
	}
	ok, err := s.verifier.VerifyOutputs("", []string{t.Path()})
	if err != nil {
		return &domain.FilesystemError{Op: "verify", Path: t.Path(), Err: err}
	}
	if !ok {
		return &domain.FilesystemError{Op: "verify", Path: t.Path(), Err: errArtifactNotProduced}
	}
	return nil
}

// record stores the build info of a freshly built artifact. Failures are logged only.
func (s *Scheduler) record(t *domain.Target) {
	if !t.Kind.HasArtifact() || !t.Artifact.Exists {
		return
	}
	hash, err := s.hasher.HashFile(t.Path())
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cannot hash %s: %v", t.Name, err))
		return
	}
	info := domain.BuildInfo{Target: t.Name.String(), ContentHash: hash, Timestamp: t.Artifact.ModTime}
	if err := s.store.Put(info); err != nil {
		s.logger.Warn(fmt.Sprintf("cannot record build info for %s: %v", t.Name, err))
	}
}

// build runs the action of t under a fresh build context.
func (s *Scheduler) build(ctx context.Context, t *domain.Target, opts Options) (r result) {
	start := time.Now()
	vctx, vertex := opts.Telemetry.Record(ctx, t.Name.String())
	bc := newBuildContext(vctx, t, s, vertex, opts.Timeout)

	defer func() {
		if p := recover(); p != nil {
			r.err = zerr.With(zerr.New(fmt.Sprintf("action panicked: %v", p)), "target", t.Name.String())
		}
		bc.flush()
		vertex.Complete(r.err)
		r.name = t.Name
		r.output = bc.captured()
		r.elapsed = time.Since(start)
	}()

	if t.Action != nil {
		r.err = t.Action.Execute(bc)
	}
	return r
}
