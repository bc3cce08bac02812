package domain

import (
	"context"
	"time"
)

// BuildContext is the scoped handle an Action uses to affect the world while its
// target is being built. All paths are relative to the working directory.
type BuildContext interface {
	// Context returns the context the action runs under.
	Context() context.Context
	// Target returns the target being built.
	Target() *Target
	// Output runs argv and writes its captured stdout verbatim to the target's artifact.
	Output(argv []string, timeout time.Duration) error
	// Run runs argv, streaming its output to the build log.
	Run(argv []string, timeout time.Duration) error
	// Touch bumps the artifact's modification time, creating it empty when absent.
	Touch() error
	// Copy copies sources to destination. A destination ending in a slash, an
	// existing directory, or a multi-source copy receives files by base name.
	Copy(sources []string, destination string) error
	// MakeDirs creates path and any missing parents.
	MakeDirs(path string) error
	// Write replaces the artifact's content.
	Write(content []byte) error
	// Info emits a log line attributed to the target.
	Info(format string, args ...any)
}

// Action is the work attached to a target.
type Action interface {
	Execute(bc BuildContext) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(bc BuildContext) error

// Execute calls f(bc).
func (f ActionFunc) Execute(bc BuildContext) error {
	return f(bc)
}

// OutputAction produces the artifact from the stdout of a command.
type OutputAction struct {
	Argv    []string
	Timeout time.Duration
}

// Execute runs the command and writes its stdout to the artifact.
func (a OutputAction) Execute(bc BuildContext) error {
	return bc.Output(a.Argv, a.Timeout)
}

// RunAction runs a side-effecting command.
type RunAction struct {
	Argv    []string
	Timeout time.Duration
}

// Execute runs the command.
func (a RunAction) Execute(bc BuildContext) error {
	return bc.Run(a.Argv, a.Timeout)
}

// TouchAction marks the artifact as freshly built without changing its bytes.
type TouchAction struct{}

// Execute touches the artifact.
func (TouchAction) Execute(bc BuildContext) error {
	return bc.Touch()
}

// CopyAction copies files.
type CopyAction struct {
	Sources     []string
	Destination string
}

// Execute copies the sources.
func (a CopyAction) Execute(bc BuildContext) error {
	return bc.Copy(a.Sources, a.Destination)
}

// MakeDirsAction creates a directory tree.
type MakeDirsAction struct {
	Path string
}

// Execute creates the directories.
func (a MakeDirsAction) Execute(bc BuildContext) error {
	return bc.MakeDirs(a.Path)
}

// WriteAction writes fixed content to the artifact.
type WriteAction struct {
	Content string
}

// Execute writes the content.
func (a WriteAction) Execute(bc BuildContext) error {
	return bc.Write([]byte(a.Content))
}

// InfoAction logs a message. It has no effect on build state.
type InfoAction struct {
	Message string
}

// Execute logs the message.
func (a InfoAction) Execute(bc BuildContext) error {
	bc.Info("%s", a.Message)
	return nil
}

// Steps runs actions in order and stops at the first error.
type Steps []Action

// Execute runs every step.
func (s Steps) Execute(bc BuildContext) error {
	for _, step := range s {
		if err := bc.Context().Err(); err != nil {
			return err
		}
		if err := step.Execute(bc); err != nil {
			return err
		}
	}
	return nil
}
