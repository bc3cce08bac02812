package shell_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pake/internal/adapters/shell"
	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestRunner_Execute_CapturesStdoutSeparately(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	outcome, err := runner.Execute(context.Background(),
		[]string{"sh", "-c", "echo out; echo err >&2"},
		domain.CommandOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "out\n", string(outcome.Stdout))
	assert.Contains(t, string(outcome.Output), "out\n")
	assert.Contains(t, string(outcome.Output), "err\n")
}

func TestRunner_Execute_NonZeroExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	outcome, err := runner.Execute(context.Background(),
		[]string{"sh", "-c", "echo broken >&2; exit 42"},
		domain.CommandOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
	assert.NotErrorIs(t, err, domain.ErrCommandTimeout)

	var cmdErr *domain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 42, cmdErr.ExitCode)
	assert.Equal(t, []string{"sh", "-c", "echo broken >&2; exit 42"}, cmdErr.Argv)
	assert.Equal(t, "broken\n", string(cmdErr.Output))
	assert.Equal(t, 42, outcome.ExitCode)
}

func TestRunner_Execute_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)
	runner := shell.NewRunner(log)

	start := time.Now()
	_, err := runner.Execute(context.Background(),
		[]string{"sleep", "10"},
		domain.CommandOptions{Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.ErrorIs(t, err, domain.ErrCommandTimeout)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)

	var cmdErr *domain.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.True(t, cmdErr.Timeout)
}

func TestRunner_Execute_EmptyCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	_, err := runner.Execute(context.Background(), nil, domain.CommandOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestRunner_Execute_UnknownExecutable(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	outcome, err := runner.Execute(context.Background(), []string{"nonexistent-command-xyz123"}, domain.CommandOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommandFailed)
	assert.Equal(t, -1, outcome.ExitCode)
}

func TestRunner_Execute_EnvironmentAndDir(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))
	dir := t.TempDir()

	outcome, err := runner.Execute(context.Background(),
		[]string{"sh", "-c", "echo $PAKE_TEST_VAR; pwd"},
		domain.CommandOptions{Dir: dir, Env: []string{"PAKE_TEST_VAR=test-value-123"}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(outcome.Stdout)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "test-value-123", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], strings.TrimPrefix(dir, "/private")))
}

func TestRunner_Execute_Stream(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	var stream bytes.Buffer
	_, err := runner.Execute(context.Background(),
		[]string{"sh", "-c", "echo line1; echo line2 >&2"},
		domain.CommandOptions{Stream: &stream})
	require.NoError(t, err)

	assert.Contains(t, stream.String(), "line1\n")
	assert.Contains(t, stream.String(), "line2\n")
}

func TestRunner_Execute_AbsolutePath(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := shell.NewRunner(mocks.NewMockLogger(ctrl))

	outcome, err := runner.Execute(context.Background(), []string{"/bin/sh", "-c", "printf test"}, domain.CommandOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test", string(outcome.Stdout))
}
