package ports

import "go.trai.ch/pake/internal/core/domain"

// FileSystem performs the artifact operations of build actions.
//
//go:generate go run go.uber.org/mock/mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Stat returns the state of the file at path. A missing file is not an error.
	Stat(path string) (domain.ArtifactState, error)
	// IsDir reports whether path is an existing directory.
	IsDir(path string) bool
	// WriteFile atomically replaces the content of path, creating parent directories.
	WriteFile(path string, data []byte) error
	// Touch sets the modification time of path to now, creating it empty when absent.
	Touch(path string) error
	// Copy copies the regular file src to dst, preserving its permission bits.
	Copy(src, dst string) error
	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error
	// Remove deletes path. A missing file is not an error.
	Remove(path string) error
}
