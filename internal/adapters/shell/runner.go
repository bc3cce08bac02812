// Package shell provides the command runner adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Runner implements ports.CommandRunner using os/exec.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{
		logger: logger,
	}
}

// Execute runs argv with the inherited environment extended by opts.Env.
//
// Stdout is captured separately; stdout and stderr are also captured interleaved
// and, when opts.Stream is set, copied to it as they arrive.
func (r *Runner) Execute(ctx context.Context, argv []string, opts domain.CommandOptions) (domain.CommandOutcome, error) {
	if len(argv) == 0 {
		return domain.CommandOutcome{}, zerr.Wrap(domain.ErrEmptyCommand, "nothing to execute")
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	name := argv[0]
	cmdEnv := resolveEnvironment(os.Environ(), opts.Env)

	// Resolve the executable using the command's PATH, not ours.
	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(runCtx, executable, argv[1:]...) //nolint:gosec // user provided command
	cmd.Args[0] = name
	cmd.Dir = opts.Dir
	cmd.Env = cmdEnv
	cmd.WaitDelay = waitDelay

	var stdout, combined bytes.Buffer
	var shared io.Writer = &combined
	if opts.Stream != nil {
		shared = io.MultiWriter(&combined, opts.Stream)
	}
	locked := &lockedWriter{w: shared}
	cmd.Stdout = io.MultiWriter(&stdout, locked)
	cmd.Stderr = locked

	err := cmd.Run()

	outcome := domain.CommandOutcome{
		ExitCode: -1,
		Stdout:   stdout.Bytes(),
		Output:   combined.Bytes(),
	}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return outcome, nil
	}

	if opts.Timeout > 0 && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Warn(fmt.Sprintf("command timed out after %s: %s", opts.Timeout, strings.Join(argv, " ")))
		return outcome, &domain.CommandError{
			Argv:     argv,
			ExitCode: outcome.ExitCode,
			Output:   outcome.Output,
			Timeout:  true,
			Err:      context.DeadlineExceeded,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
	}
	return outcome, &domain.CommandError{
		Argv:     argv,
		ExitCode: outcome.ExitCode,
		Output:   outcome.Output,
		Err:      err,
	}
}

// lockedWriter serializes writes coming from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// resolveEnvironment merges extra "KEY=VALUE" entries over the system environment.
func resolveEnvironment(sysEnv, extra []string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(extra))
	for _, entries := range [][]string{sysEnv, extra} {
		for _, entry := range entries {
			if k, v, ok := strings.Cut(entry, "="); ok {
				envMap[k] = v
			}
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH entry of env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
