package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
)

var (
	errNoArtifact          = errors.New("target has no artifact")
	errArtifactNotProduced = errors.New("artifact was not produced")
)

var _ domain.BuildContext = (*buildContext)(nil)

// buildContext is the handle actions use while their target is being built.
type buildContext struct {
	ctx     context.Context
	target  *domain.Target
	s       *Scheduler
	vertex  ports.Vertex
	timeout time.Duration
	log     *logWriter

	mu     sync.Mutex
	output bytes.Buffer
}

func newBuildContext(
	ctx context.Context,
	t *domain.Target,
	s *Scheduler,
	vertex ports.Vertex,
	timeout time.Duration,
) *buildContext {
	return &buildContext{
		ctx:     ctx,
		target:  t,
		s:       s,
		vertex:  vertex,
		timeout: timeout,
		log:     newLogWriter(s.logger, t.Name.String()),
	}
}

func (bc *buildContext) Context() context.Context {
	return bc.ctx
}

func (bc *buildContext) Target() *domain.Target {
	return bc.target
}

// Output runs argv and writes its stdout to the artifact. Nothing is written
// when the command fails.
func (bc *buildContext) Output(argv []string, timeout time.Duration) error {
	path, err := bc.artifact("write")
	if err != nil {
		return err
	}
	outcome, err := bc.s.runner.Execute(bc.ctx, argv, domain.CommandOptions{
		Timeout: bc.timeoutFor(timeout),
		Stream:  bc.vertex.Stderr(),
	})
	bc.capture(outcome.Output)
	if err != nil {
		return err
	}
	return bc.s.fs.WriteFile(path, outcome.Stdout)
}

// Run runs argv, streaming its output to the log with the target as prefix.
func (bc *buildContext) Run(argv []string, timeout time.Duration) error {
	outcome, err := bc.s.runner.Execute(bc.ctx, argv, domain.CommandOptions{
		Timeout: bc.timeoutFor(timeout),
		Stream:  io.MultiWriter(bc.log, bc.vertex.Stdout()),
	})
	bc.log.Flush()
	bc.capture(outcome.Output)
	return err
}

func (bc *buildContext) Touch() error {
	path, err := bc.artifact("touch")
	if err != nil {
		return err
	}
	return bc.s.fs.Touch(path)
}

func (bc *buildContext) Copy(sources []string, destination string) error {
	into := len(sources) > 1 ||
		strings.HasSuffix(destination, "/") ||
		bc.s.fs.IsDir(destination)

	for _, src := range sources {
		dst := destination
		if into {
			dst = filepath.Join(destination, filepath.Base(src))
		}
		if err := bc.s.fs.Copy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (bc *buildContext) MakeDirs(path string) error {
	return bc.s.fs.MkdirAll(path)
}

func (bc *buildContext) Write(content []byte) error {
	path, err := bc.artifact("write")
	if err != nil {
		return err
	}
	return bc.s.fs.WriteFile(path, content)
}

func (bc *buildContext) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	bc.s.logger.Info(fmt.Sprintf("[%s] %s", bc.target.Name, msg))
	bc.vertex.Log(domain.LogLevelInfo, msg)
}

func (bc *buildContext) artifact(op string) (string, error) {
	path := bc.target.Path()
	if path == "" {
		return "", &domain.FilesystemError{Op: op, Path: bc.target.Name.String(), Err: errNoArtifact}
	}
	return path, nil
}

func (bc *buildContext) timeoutFor(step time.Duration) time.Duration {
	if step > 0 {
		return step
	}
	return bc.timeout
}

func (bc *buildContext) capture(p []byte) {
	if len(p) == 0 {
		return
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.output.Write(p)
}

func (bc *buildContext) captured() []byte {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.output.Len() == 0 {
		return nil
	}
	return bytes.Clone(bc.output.Bytes())
}

func (bc *buildContext) flush() {
	bc.log.Flush()
}
