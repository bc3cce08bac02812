package domain

import (
	"errors"
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrTargetAlreadyExists is returned when registering a target whose name is already taken.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrMissingDependency is returned when a name matches no target, no rule and no file on disk.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrInvalidRule is returned when a pattern rule cannot be compiled or its factory misbehaves.
	ErrInvalidRule = zerr.New("invalid pattern rule")

	// ErrInvalidTarget is returned when a target definition is malformed.
	ErrInvalidTarget = zerr.New("invalid target")

	// ErrCycleDetected is returned when a cycle is detected in the target dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrUnknownVariable is returned when a template references an undefined variable.
	ErrUnknownVariable = zerr.New("unknown variable")

	// ErrVariableCommandFailed is returned when a command-backed variable cannot be evaluated.
	ErrVariableCommandFailed = zerr.New("failed to evaluate variable command")

	// ErrConfigReadFailed is returned when the pakefile cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read pakefile")

	// ErrConfigParseFailed is returned when the pakefile cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse pakefile")

	// ErrUnsupportedVersion is returned when the pakefile declares an unknown format version.
	ErrUnsupportedVersion = zerr.New("unsupported pakefile version")

	// ErrInvalidOverride is returned when a command line variable override is not NAME=VALUE.
	ErrInvalidOverride = zerr.New("invalid variable override")

	// ErrNoTargetsSpecified is returned when a build is requested without any target.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrCommandFailed is returned when an external command exits with a non-zero status.
	ErrCommandFailed = zerr.New("command failed")

	// ErrCommandTimeout is returned when an external command exceeds its timeout.
	ErrCommandTimeout = zerr.New("command timed out")

	// ErrEmptyCommand is returned when an action is asked to run an empty argv.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrFilesystem is returned when an artifact cannot be written, copied, created or removed.
	ErrFilesystem = zerr.New("filesystem operation failed")

	// ErrDependencyFailed is the cause recorded on targets skipped because a dependency failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrBuildAborted is the cause recorded on targets never started after a fail-fast abort.
	ErrBuildAborted = zerr.New("build aborted")

	// ErrBuildFailed is returned when one or more targets failed or were skipped.
	ErrBuildFailed = zerr.New("build failed")

	// ErrStoreReadFailed is returned when the build info store cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build info store")

	// ErrStoreWriteFailed is returned when the build info store cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build info store")
)

// structural lists the errors detected while constructing or resolving the graph.
// They terminate a build before any action runs.
var structural = []error{
	ErrTargetAlreadyExists,
	ErrMissingDependency,
	ErrInvalidRule,
	ErrInvalidTarget,
	ErrCycleDetected,
	ErrUnknownVariable,
	ErrVariableCommandFailed,
	ErrConfigReadFailed,
	ErrConfigParseFailed,
	ErrUnsupportedVersion,
	ErrInvalidOverride,
	ErrNoTargetsSpecified,
}

// IsStructural reports whether err is a configuration or cycle error.
func IsStructural(err error) bool {
	for _, target := range structural {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CycleError describes a dependency cycle. Cycle starts at the repeated name and
// follows the active traversal path; the edge back to Cycle[0] is implied.
type CycleError struct {
	Cycle []string
}

// Error renders the cycle as "a -> b -> c -> a".
func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s -> %s", ErrCycleDetected.Error(), strings.Join(e.Cycle, " -> "), e.Cycle[0])
}

// Unwrap ties the error to ErrCycleDetected.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// CommandError is returned by a CommandRunner when a process exits non-zero or times out.
type CommandError struct {
	Argv     []string
	ExitCode int
	Output   []byte
	Timeout  bool
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	if e.Timeout {
		b.WriteString(ErrCommandTimeout.Error())
	} else {
		b.WriteString(ErrCommandFailed.Error())
	}
	fmt.Fprintf(&b, ": %s (exit code %d)", strings.Join(e.Argv, " "), e.ExitCode)
	if e.Err != nil && !e.Timeout {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the classification sentinels and the underlying process error.
// A timeout matches both ErrCommandTimeout and ErrCommandFailed.
func (e *CommandError) Unwrap() []error {
	errs := []error{ErrCommandFailed}
	if e.Timeout {
		errs = append(errs, ErrCommandTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// FilesystemError is returned when an artifact cannot be written, touched, copied,
// created or removed. It is propagated exactly like a CommandError.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrFilesystem.Error(), e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrFilesystem and the underlying OS error.
func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}
