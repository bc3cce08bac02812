package domain

import (
	"io"
	"time"
)

// CommandOptions configures a single external command invocation.
type CommandOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// Timeout bounds the command's runtime. Zero means no limit.
	Timeout time.Duration
	// Stream, when set, receives stdout and stderr as they are produced.
	Stream io.Writer
}

// CommandOutcome is the result of a command that ran to completion.
type CommandOutcome struct {
	ExitCode int
	// Stdout holds the standard output only.
	Stdout []byte
	// Output holds stdout and stderr interleaved in arrival order.
	Output []byte
}
