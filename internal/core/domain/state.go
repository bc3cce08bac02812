package domain

// TargetState is the lifecycle state of a target within one build invocation.
//
//	Unbuilt -> {NotNeeded | Pending} -> Building -> {Built | Failed | Skipped}
//
// A dry run stops at Pending for stale targets.
type TargetState string

const (
	// StateUnbuilt indicates the target has not been examined yet.
	StateUnbuilt TargetState = "unbuilt"
	// StateNotNeeded indicates the target was up to date.
	StateNotNeeded TargetState = "not-needed"
	// StatePending indicates the target is stale and waiting for a worker.
	StatePending TargetState = "pending"
	// StateBuilding indicates the target's action is running.
	StateBuilding TargetState = "building"
	// StateBuilt indicates the target's action succeeded.
	StateBuilt TargetState = "built"
	// StateFailed indicates the target's action returned an error.
	StateFailed TargetState = "failed"
	// StateSkipped indicates the target never ran because of a failure elsewhere.
	StateSkipped TargetState = "skipped"
)

// IsTerminal checks if a state is final for a regular build.
func (s TargetState) IsTerminal() bool {
	switch s {
	case StateNotNeeded, StateBuilt, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}
