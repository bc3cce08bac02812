package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/pake/internal/adapters/fs"
	"go.trai.ch/pake/internal/adapters/telemetry"
	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports/mocks"
	"go.trai.ch/pake/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	runner *mocks.MockCommandRunner
	store  *mocks.MockBuildInfoStore
	logger *mocks.MockLogger
	sched  *scheduler.Scheduler
	graph  *domain.Graph

	mu    sync.Mutex
	infos []string
}

// logged returns the info lines logged so far.
func (f *fixture) logged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.infos)
}

// newFixture builds a scheduler over the real filesystem.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		runner: mocks.NewMockCommandRunner(ctrl),
		store:  mocks.NewMockBuildInfoStore(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}
	f.logger.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.infos = append(f.infos, msg)
	}).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	fsys := fs.NewFileSystem()
	f.sched = scheduler.NewScheduler(f.runner, fsys, fs.NewHasher(), fs.NewVerifier(), f.store, telemetry.NewNoOpTelemetry(), f.logger)
	f.graph = domain.NewGraph(domain.Variables{}, domain.WithSourceProbe(func(path string) domain.ArtifactState {
		st, _ := fsys.Stat(path)
		return st
	}))
	return f
}

func (f *fixture) add(t *testing.T, targets ...*domain.Target) {
	t.Helper()
	for _, target := range targets {
		require.NoError(t, f.graph.Register(target))
	}
}

func (f *fixture) run(t *testing.T, opts scheduler.Options, roots ...string) (*domain.Report, error) {
	t.Helper()
	plan, err := f.graph.Plan(roots)
	require.NoError(t, err)
	return f.sched.Run(context.Background(), plan, opts)
}

// writeFile creates path with content and sets its modification time to now+age.
func writeFile(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	setAge(t, path, age)
}

func setAge(t *testing.T, path string, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(age)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func phony(name string, action domain.Action, deps ...string) *domain.Target {
	return domain.NewTarget(name, domain.KindPhony, deps, action)
}

func states(report *domain.Report) map[string]domain.TargetState {
	out := make(map[string]domain.TargetState, len(report.Results))
	for _, r := range report.Results {
		out[r.Name] = r.State
	}
	return out
}
