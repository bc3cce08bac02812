package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports/mocks"
	"go.trai.ch/pake/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

func TestScheduler_Run_BuildsInDependencyOrder(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	writeFile(t, "src/app.js", "console.log(1)", -time.Hour)

	var mu sync.Mutex
	var order []string
	track := func(name string, next domain.Action) domain.Action {
		return domain.ActionFunc(func(bc domain.BuildContext) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return next.Execute(bc)
		})
	}

	f.add(t,
		domain.NewTarget("build/app.min.js", domain.KindFile, []string{"src/app.js"},
			track("build/app.min.js", domain.OutputAction{Argv: []string{"minify", "src/app.js"}})),
		domain.NewTarget("build/app.json", domain.KindFile, []string{"build/app.min.js"},
			track("build/app.json", domain.WriteAction{Content: `{"ok":true}`})),
		domain.NewTarget("all", domain.KindVirtual, []string{"build/app.json"}, nil),
	)

	f.runner.EXPECT().
		Execute(gomock.Any(), []string{"minify", "src/app.js"}, gomock.Any()).
		Return(domain.CommandOutcome{Stdout: []byte("minified"), Output: []byte("minified")}, nil)

	var recorded []string
	f.store.EXPECT().Put(gomock.Any()).DoAndReturn(func(info domain.BuildInfo) error {
		assert.NotEmpty(t, info.ContentHash)
		assert.False(t, info.Timestamp.IsZero())
		recorded = append(recorded, info.Target)
		return nil
	}).Times(2)

	report, err := f.run(t, scheduler.Options{Jobs: 4}, "all")
	require.NoError(t, err)

	assert.Equal(t, []string{"build/app.min.js", "build/app.json"}, order)
	assert.Equal(t, []string{"build/app.min.js", "build/app.json"}, recorded)
	assert.Equal(t, "minified", readFile(t, "build/app.min.js"))
	assert.JSONEq(t, `{"ok":true}`, readFile(t, "build/app.json"))
	assert.Equal(t, map[string]domain.TargetState{
		"src/app.js":       domain.StateNotNeeded,
		"build/app.min.js": domain.StateBuilt,
		"build/app.json":   domain.StateBuilt,
		"all":              domain.StateBuilt,
	}, states(report))
	assert.True(t, report.OK())
}

func TestScheduler_Run_SecondRunOnlyPhony(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "in.txt", "input", -2*time.Hour)

	var runs sync.Map
	counting := func(name string, next domain.Action) domain.Action {
		return domain.ActionFunc(func(bc domain.BuildContext) error {
			n, _ := runs.LoadOrStore(name, new(int))
			*n.(*int)++
			return next.Execute(bc)
		})
	}
	define := func(f *fixture) {
		f.add(t,
			domain.NewTarget("out.txt", domain.KindFile, []string{"in.txt"},
				counting("out.txt", domain.WriteAction{Content: "out"})),
			domain.NewTarget("bin/tool", domain.KindFetchOnce, nil,
				counting("bin/tool", domain.WriteAction{Content: "tool"})),
			phony("deploy", counting("deploy", domain.InfoAction{Message: "deploying"}), "out.txt", "bin/tool"),
		)
	}

	first := newFixture(t)
	first.store.EXPECT().Put(gomock.Any()).Return(nil).Times(2)
	define(first)
	report, err := first.run(t, scheduler.Options{}, "deploy")
	require.NoError(t, err)
	assert.Len(t, report.Filter(domain.StateBuilt), 3)

	setAge(t, "out.txt", -time.Hour)

	second := newFixture(t)
	define(second)
	report, err = second.run(t, scheduler.Options{}, "deploy")
	require.NoError(t, err)

	assert.Equal(t, map[string]domain.TargetState{
		"in.txt":   domain.StateNotNeeded,
		"out.txt":  domain.StateNotNeeded,
		"bin/tool": domain.StateNotNeeded,
		"deploy":   domain.StateBuilt,
	}, states(report))

	count := func(name string) int {
		n, ok := runs.Load(name)
		if !ok {
			return 0
		}
		return *n.(*int)
	}
	assert.Equal(t, 1, count("out.txt"))
	assert.Equal(t, 1, count("bin/tool"))
	assert.Equal(t, 2, count("deploy"))
}

func TestScheduler_Run_TouchKeepsContent(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	f.store.EXPECT().Put(gomock.Any()).Return(nil).AnyTimes()

	writeFile(t, "src.txt", "src", -time.Hour)
	writeFile(t, "stamp", "old bytes", -2*time.Hour)
	f.add(t, domain.NewTarget("stamp", domain.KindFile, []string{"src.txt"}, domain.TouchAction{}))

	report, err := f.run(t, scheduler.Options{}, "stamp")
	require.NoError(t, err)
	assert.Equal(t, domain.StateBuilt, report.Results[1].State)
	assert.Equal(t, "old bytes", readFile(t, "stamp"))

	// The second run finds the touched artifact newer than its source.
	again := newFixture(t)
	again.add(t, domain.NewTarget("stamp", domain.KindFile, []string{"src.txt"}, domain.TouchAction{}))
	report, err = again.run(t, scheduler.Options{}, "stamp")
	require.NoError(t, err)
	assert.Equal(t, domain.StateNotNeeded, report.Results[1].State)
}

func TestScheduler_Run_FailFast(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		errB := errors.New("B failed")
		cStarted := make(chan struct{})

		f.add(t,
			phony("D", domain.InfoAction{Message: "d"}),
			phony("B", domain.ActionFunc(func(domain.BuildContext) error {
				<-cStarted
				return errB
			}), "D"),
			phony("C", domain.ActionFunc(func(domain.BuildContext) error {
				close(cStarted)
				time.Sleep(time.Second)
				return nil
			}), "D"),
			phony("A", domain.InfoAction{Message: "a"}, "B", "C"),
		)

		report, err := f.run(t, scheduler.Options{Jobs: 2}, "A")
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		require.ErrorIs(t, err, errB)

		assert.Equal(t, map[string]domain.TargetState{
			"D": domain.StateBuilt,
			"B": domain.StateFailed,
			"C": domain.StateBuilt,
			"A": domain.StateSkipped,
		}, states(report))

		a, ok := report.Result("A")
		require.True(t, ok)
		require.ErrorIs(t, a.Err, domain.ErrBuildAborted)
	})
}

func TestScheduler_Run_FailFastStopsUnrelatedBranches(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		phony("broken", domain.ActionFunc(func(domain.BuildContext) error { return errors.New("boom") })),
		phony("unrelated", domain.InfoAction{Message: "never"}),
	)

	report, err := f.run(t, scheduler.Options{Jobs: 1}, "broken", "unrelated")
	require.Error(t, err)

	unrelated, ok := report.Result("unrelated")
	require.True(t, ok)
	assert.Equal(t, domain.StateSkipped, unrelated.State)
	require.ErrorIs(t, unrelated.Err, domain.ErrBuildAborted)
}

func TestScheduler_Run_KeepGoing(t *testing.T) {
	f := newFixture(t)
	f.add(t,
		phony("lint", domain.ActionFunc(func(domain.BuildContext) error { return errors.New("lint errors") })),
		phony("test", domain.InfoAction{Message: "tests"}, "lint"),
		phony("precommit", domain.InfoAction{Message: "ok"}, "test"),
		phony("docs", domain.InfoAction{Message: "docs"}),
	)

	report, err := f.run(t, scheduler.Options{Jobs: 1, KeepGoing: true}, "precommit", "docs")
	require.ErrorIs(t, err, domain.ErrBuildFailed)

	assert.Equal(t, map[string]domain.TargetState{
		"lint":      domain.StateFailed,
		"test":      domain.StateSkipped,
		"precommit": domain.StateSkipped,
		"docs":      domain.StateBuilt,
	}, states(report))

	for _, name := range []string{"test", "precommit"} {
		res, ok := report.Result(name)
		require.True(t, ok)
		require.ErrorIs(t, res.Err, domain.ErrDependencyFailed)
		assert.Contains(t, res.Err.Error(), "lint")
	}
}

func TestScheduler_Run_DryRun(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	writeFile(t, "in.txt", "in", -2*time.Hour)
	writeFile(t, "fresh.txt", "fresh", -time.Hour)

	never := domain.ActionFunc(func(domain.BuildContext) error {
		t.Error("action executed during dry run")
		return nil
	})
	f.add(t,
		domain.NewTarget("fresh.txt", domain.KindFile, []string{"in.txt"}, never),
		domain.NewTarget("missing.txt", domain.KindFile, []string{"in.txt"}, never),
		domain.NewTarget("final.txt", domain.KindFile, []string{"missing.txt"}, never),
		domain.NewTarget("all", domain.KindVirtual, []string{"fresh.txt", "final.txt"}, nil),
	)

	report, err := f.run(t, scheduler.Options{DryRun: true}, "all")
	require.NoError(t, err)
	assert.True(t, report.DryRun)

	assert.Equal(t, map[string]domain.TargetState{
		"in.txt":      domain.StateNotNeeded,
		"fresh.txt":   domain.StateNotNeeded,
		"missing.txt": domain.StatePending,
		"final.txt":   domain.StatePending,
		"all":         domain.StatePending,
	}, states(report))

	final, _ := report.Result("final.txt")
	assert.Equal(t, "would build", final.Outcome())
	assert.Equal(t, "artifact missing", final.Reason)
	all, _ := report.Result("all")
	assert.Equal(t, "dependency is stale (final.txt)", all.Reason)
	fresh, _ := report.Result("fresh.txt")
	assert.Equal(t, "up to date", fresh.Reason)
	assert.NoFileExists(t, "missing.txt")
}

func TestScheduler_Run_MissingInputFails(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)

	ran := false
	f.add(t,
		domain.NewTarget("input.txt", domain.KindFile, nil, nil),
		phony("use", domain.ActionFunc(func(domain.BuildContext) error {
			ran = true
			return nil
		}), "input.txt"),
	)

	report, err := f.run(t, scheduler.Options{KeepGoing: true}, "use")
	require.ErrorIs(t, err, domain.ErrFilesystem)
	assert.False(t, ran)

	assert.Equal(t, map[string]domain.TargetState{
		"input.txt": domain.StateFailed,
		"use":       domain.StateSkipped,
	}, states(report))

	res, _ := report.Result("input.txt")
	var fsErr *domain.FilesystemError
	require.ErrorAs(t, res.Err, &fsErr)
	assert.Equal(t, "input.txt", fsErr.Path)
	assert.Contains(t, fsErr.Error(), "artifact was not produced")
}

func TestScheduler_Run_ActionWithoutArtifactFails(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	f.add(t, domain.NewTarget("bin/tool", domain.KindFetchOnce, nil, domain.InfoAction{Message: "fetching"}))

	report, err := f.run(t, scheduler.Options{}, "bin/tool")
	require.ErrorIs(t, err, domain.ErrFilesystem)
	assert.Equal(t, domain.StateFailed, report.Results[0].State)
}

func TestScheduler_Run_NeverOverlapsDependencies(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)

		var mu sync.Mutex
		running := make(map[string]bool)
		done := make(map[string]bool)
		maxActive, active := 0, 0

		work := func(name string, deps ...string) domain.Action {
			return domain.ActionFunc(func(domain.BuildContext) error {
				mu.Lock()
				for _, d := range deps {
					assert.False(t, running[d], "%s started while %s was running", name, d)
					assert.True(t, done[d], "%s started before %s finished", name, d)
				}
				running[name] = true
				active++
				maxActive = max(maxActive, active)
				mu.Unlock()

				time.Sleep(time.Duration(len(name)) * time.Second)

				mu.Lock()
				running[name] = false
				done[name] = true
				active--
				mu.Unlock()
				return nil
			})
		}

		var roots []string
		for i := range 6 {
			leaf := fmt.Sprintf("leaf%d", i)
			mid := fmt.Sprintf("mid%d", i)
			f.add(t, phony(leaf, work(leaf)), phony(mid, work(mid, leaf), leaf))
			roots = append(roots, mid)
		}
		f.add(t, phony("top", work("top", roots...), roots...))

		report, err := f.run(t, scheduler.Options{Jobs: 3}, "top")
		require.NoError(t, err)
		assert.Len(t, report.Filter(domain.StateBuilt), 13)
		assert.LessOrEqual(t, maxActive, 3)
		assert.Equal(t, 3, maxActive)
	})
}

func TestScheduler_Run_CommandFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	f.add(t, domain.NewTarget("out.txt", domain.KindFile, nil, domain.OutputAction{Argv: []string{"gen"}}))

	cmdErr := &domain.CommandError{Argv: []string{"gen"}, ExitCode: 3}
	f.runner.EXPECT().
		Execute(gomock.Any(), []string{"gen"}, gomock.Any()).
		Return(domain.CommandOutcome{ExitCode: 3, Output: []byte("gen: bad input\n")}, cmdErr)

	report, err := f.run(t, scheduler.Options{}, "out.txt")
	require.ErrorIs(t, err, domain.ErrCommandFailed)

	res, ok := report.Result("out.txt")
	require.True(t, ok)
	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, "gen: bad input\n", string(res.Output))
	assert.NoFileExists(t, "out.txt")
	assert.Equal(t, 1, domain.ExitCode(err))
}

func TestScheduler_Run_StreamsRunOutput(t *testing.T) {
	f := newFixture(t)
	f.add(t, phony("greet", domain.Steps{
		domain.RunAction{Argv: []string{"greet"}},
		domain.InfoAction{Message: "greeted"},
	}))

	f.runner.EXPECT().
		Execute(gomock.Any(), []string{"greet"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, opts domain.CommandOptions) (domain.CommandOutcome, error) {
			assert.Equal(t, 90*time.Second, opts.Timeout)
			_, _ = opts.Stream.Write([]byte("hello\nwor"))
			_, _ = opts.Stream.Write([]byte("ld"))
			return domain.CommandOutcome{Output: []byte("hello\nworld")}, nil
		})

	report, err := f.run(t, scheduler.Options{Timeout: 90 * time.Second}, "greet")
	require.NoError(t, err)

	assert.Equal(t, []string{"[greet] hello", "[greet] world", "[greet] greeted"}, f.logged())
	res, _ := report.Result("greet")
	assert.Equal(t, "hello\nworld", string(res.Output))
}

func TestScheduler_Run_StepTimeoutWins(t *testing.T) {
	f := newFixture(t)
	f.add(t, phony("slow", domain.RunAction{Argv: []string{"slow"}, Timeout: time.Second}))

	f.runner.EXPECT().
		Execute(gomock.Any(), []string{"slow"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, argv []string, opts domain.CommandOptions) (domain.CommandOutcome, error) {
			assert.Equal(t, time.Second, opts.Timeout)
			return domain.CommandOutcome{ExitCode: -1}, &domain.CommandError{Argv: argv, ExitCode: -1, Timeout: true}
		})

	report, err := f.run(t, scheduler.Options{Timeout: time.Hour}, "slow")
	require.ErrorIs(t, err, domain.ErrCommandTimeout)
	assert.Equal(t, domain.StateFailed, report.Results[0].State)
}

func TestScheduler_Run_ArtifactlessWrite(t *testing.T) {
	f := newFixture(t)
	f.add(t, phony("notes", domain.WriteAction{Content: "x"}))

	report, err := f.run(t, scheduler.Options{}, "notes")
	require.ErrorIs(t, err, domain.ErrFilesystem)

	var fsErr *domain.FilesystemError
	require.ErrorAs(t, report.Results[0].Err, &fsErr)
	assert.Equal(t, "notes", fsErr.Path)
}

func TestScheduler_Run_Copy(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	writeFile(t, "a.css", "a", -time.Hour)
	writeFile(t, "b.css", "b", -time.Hour)
	writeFile(t, "logo.png", "png", -time.Hour)

	f.add(t, phony("dist", domain.Steps{
		domain.MakeDirsAction{Path: "dist/img"},
		domain.CopyAction{Sources: []string{"a.css", "b.css"}, Destination: "dist/css"},
		domain.CopyAction{Sources: []string{"logo.png"}, Destination: "dist/img"},
		domain.CopyAction{Sources: []string{"logo.png"}, Destination: "dist/favicon.png"},
	}))

	_, err := f.run(t, scheduler.Options{}, "dist")
	require.NoError(t, err)

	assert.Equal(t, "a", readFile(t, "dist/css/a.css"))
	assert.Equal(t, "b", readFile(t, "dist/css/b.css"))
	assert.Equal(t, "png", readFile(t, "dist/img/logo.png"))
	assert.Equal(t, "png", readFile(t, "dist/favicon.png"))
}

func TestScheduler_Run_ActionPanic(t *testing.T) {
	f := newFixture(t)
	f.add(t, phony("bad", domain.ActionFunc(func(domain.BuildContext) error { panic("kaboom") })))

	report, err := f.run(t, scheduler.Options{}, "bad")
	require.Error(t, err)
	assert.Contains(t, report.Results[0].Err.Error(), "kaboom")
}

func TestScheduler_Run_StoreFailureIsLogged(t *testing.T) {
	t.Chdir(t.TempDir())
	f := newFixture(t)
	f.add(t, domain.NewTarget("out.txt", domain.KindFile, nil, domain.WriteAction{Content: "ok"}))
	f.store.EXPECT().Put(gomock.Any()).Return(domain.ErrStoreWriteFailed)

	report, err := f.run(t, scheduler.Options{}, "out.txt")
	require.NoError(t, err)
	assert.Equal(t, domain.StateBuilt, report.Results[0].State)
}

func TestScheduler_Run_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.add(t, phony("a", domain.InfoAction{Message: "a"}), phony("b", domain.InfoAction{Message: "b"}, "a"))

	plan, err := f.graph.Plan([]string{"b"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.sched.Run(ctx, plan, scheduler.Options{})
	require.ErrorIs(t, err, context.Canceled)
	for _, res := range report.Results {
		assert.Equal(t, domain.StateSkipped, res.State)
		require.ErrorIs(t, res.Err, domain.ErrBuildAborted)
	}
}

func TestScheduler_Run_UsesRunTelemetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newFixture(t)
	f.add(t, phony("job", domain.InfoAction{Message: "working"}))

	tel := mocks.NewMockTelemetry(ctrl)
	vertex := mocks.NewMockVertex(ctrl)
	tel.EXPECT().Record(gomock.Any(), "job").Return(context.Background(), vertex)
	vertex.EXPECT().Log(domain.LogLevelInfo, "working")
	vertex.EXPECT().Complete(nil)

	_, err := f.run(t, scheduler.Options{Telemetry: tel}, "job")
	require.NoError(t, err)
}
