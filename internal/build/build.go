// Package build holds build-time information.
package build

import "fmt"

// Version is the application version.
// It defaults to "dev" and can be overwritten by linker flags.
var Version = "dev"

// Commit is the revision the binary was built from, set by linker flags.
var Commit = ""

// String renders the version line printed by the CLI.
func String() string {
	if Commit == "" {
		return fmt.Sprintf("pake version %s", Version)
	}
	return fmt.Sprintf("pake version %s (%s)", Version, Commit)
}
