package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
)

// stateDir holds pake's own bookkeeping and is never globbed into dependencies.
const stateDir = ".pake"

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem on the local disk.
type FileSystem struct {
	now func() time.Time
}

// NewFileSystem creates a new FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{now: time.Now}
}

// Stat returns the state of the file at path. A missing file is reported as not existing.
func (f *FileSystem) Stat(path string) (domain.ArtifactState, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.ArtifactState{}, nil
		}
		return domain.ArtifactState{}, &domain.FilesystemError{Op: "stat", Path: path, Err: err}
	}
	return domain.ArtifactState{
		Exists:  true,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// IsDir reports whether path is an existing directory.
func (f *FileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteFile writes data to a temporary file next to path and renames it into place.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	if err := f.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Touch bumps the modification time of path, creating an empty file when absent.
func (f *FileSystem) Touch(path string) error {
	now := f.now()
	err := os.Chtimes(path, now, now)
	if err == nil {
		return nil
	}
	if !errors.Is(err, iofs.ErrNotExist) {
		return &domain.FilesystemError{Op: "touch", Path: path, Err: err}
	}

	if err := f.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, filePerm) //nolint:gosec // artifact path
	if err != nil {
		return &domain.FilesystemError{Op: "touch", Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &domain.FilesystemError{Op: "touch", Path: path, Err: err}
	}
	return nil
}

// Copy copies the regular file src to dst, preserving its permission bits.
func (f *FileSystem) Copy(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // artifact path
	if err != nil {
		return &domain.FilesystemError{Op: "copy", Path: src, Err: err}
	}
	defer in.Close() //nolint:errcheck // read only

	info, err := in.Stat()
	if err != nil {
		return &domain.FilesystemError{Op: "copy", Path: src, Err: err}
	}
	if info.IsDir() {
		return &domain.FilesystemError{Op: "copy", Path: src, Err: errors.New("is a directory")}
	}

	if err := f.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // artifact path
	if err != nil {
		return &domain.FilesystemError{Op: "copy", Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return &domain.FilesystemError{Op: "copy", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &domain.FilesystemError{Op: "copy", Path: dst, Err: err}
	}
	return nil
}

// MkdirAll creates path and any missing parents.
func (f *FileSystem) MkdirAll(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return &domain.FilesystemError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Remove deletes the file at path. A missing file is not an error.
func (f *FileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return &domain.FilesystemError{Op: "remove", Path: path, Err: err}
	}
	return nil
}
