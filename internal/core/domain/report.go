package domain

import (
	"errors"
	"time"

	"go.trai.ch/zerr"
)

// TargetResult is the per-target row of a build report.
type TargetResult struct {
	Name    string
	Kind    Kind
	State   TargetState
	Output  []byte
	Elapsed time.Duration
	// Reason explains the staleness decision, e.g. "dependency is newer (in.txt)".
	Reason string
	// Err is the failure or skip cause. Nil for successful targets.
	Err error
}

// Outcome returns the human readable outcome of the target.
func (r TargetResult) Outcome() string {
	switch r.State {
	case StateBuilt:
		return "built"
	case StateNotNeeded:
		return "up to date"
	case StatePending:
		return "would build"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return string(r.State)
	}
}

// Report is the observable result of a build invocation. Results follow plan order.
type Report struct {
	Results []TargetResult
	DryRun  bool
	Elapsed time.Duration
}

// Result returns the row for name.
func (r *Report) Result(name string) (TargetResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return TargetResult{}, false
}

// Filter returns the rows in the given state.
func (r *Report) Filter(state TargetState) []TargetResult {
	var out []TargetResult
	for _, res := range r.Results {
		if res.State == state {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether no target failed or was skipped.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.State == StateFailed || res.State == StateSkipped {
			return false
		}
	}
	return true
}

// Err summarizes the failures of the run. It returns nil when the run succeeded.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	var causes []error
	failed, skipped := 0, 0
	for _, res := range r.Results {
		switch res.State {
		case StateFailed:
			failed++
			if res.Err != nil {
				causes = append(causes, res.Err)
			}
		case StateSkipped:
			skipped++
		}
	}
	err := zerr.With(zerr.With(zerr.Wrap(ErrBuildFailed, "build did not complete"), "failed", failed), "skipped", skipped)
	return errors.Join(append([]error{err}, causes...)...)
}

// ExitCode maps the outcome of a build to a process exit status: 0 on success,
// 2 for configuration and cycle errors, 1 for everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsStructural(err):
		return 2
	default:
		return 1
	}
}
