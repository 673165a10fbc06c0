package conflict

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

// Reservation is an output path claimed for one writer. For Skip and Rename
// an empty placeholder file holds the claim until the writer renames its
// result over it.
type Reservation struct {
	Path        string
	placeholder bool
}

// Release removes the placeholder. Call it when the write fails.
func (r Reservation) Release() error {
	if !r.placeholder {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fault.IO("release", r.Path, err)
	}
	return nil
}

// Reserve is the atomic form of Resolve: the returned path is created with
// O_EXCL, so concurrent callers never receive the same path. The parent
// directory is created if needed.
func Reserve(base string, mode config.FileConflictMode) (Reservation, bool, error) {
	if dir := filepath.Dir(base); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Reservation{}, false, fault.IO("create dir", dir, err)
		}
	}

	switch mode {
	case config.ConflictOverwrite:
		return Reservation{Path: base}, true, nil
	case config.ConflictSkip:
		claimed, err := claim(base)
		if err != nil || !claimed {
			return Reservation{}, false, err
		}
		return Reservation{Path: base, placeholder: true}, true, nil
	case config.ConflictRename:
		claimed, err := claim(base)
		if err != nil {
			return Reservation{}, false, err
		}
		if claimed {
			return Reservation{Path: base, placeholder: true}, true, nil
		}
		for n := 1; n <= MaxRenameAttempts; n++ {
			candidate, err := Candidate(base, n)
			if err != nil {
				return Reservation{}, false, err
			}
			claimed, err := claim(candidate)
			if err != nil {
				return Reservation{}, false, err
			}
			if claimed {
				return Reservation{Path: candidate, placeholder: true}, true, nil
			}
		}
		return Reservation{}, false, fault.ConflictExhausted(base)
	default:
		return Reservation{}, false, fault.Configf("resolve output", "unknown file conflict mode %q", mode)
	}
}

// claim creates path exclusively. It reports false if path already exists.
func claim(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fault.IO("reserve", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fault.IO("reserve", path, err)
	}
	return true, nil
}
