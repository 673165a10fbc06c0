// Package conflict decides where an output file may be written when the
// preferred path is already taken.
package conflict

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

// MaxRenameAttempts bounds the "_(n)" suffix search.
const MaxRenameAttempts = 1000

// Resolve reports the path to write for base under mode. ok is false when
// mode is Skip and base exists. Resolve only inspects the filesystem.
func Resolve(base string, mode config.FileConflictMode) (path string, ok bool, err error) {
	switch mode {
	case config.ConflictOverwrite:
		return base, true, nil
	case config.ConflictSkip:
		taken, err := pathExists(base)
		if err != nil {
			return "", false, err
		}
		return base, !taken, nil
	case config.ConflictRename:
		taken, err := pathExists(base)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return base, true, nil
		}
		for n := 1; n <= MaxRenameAttempts; n++ {
			candidate, err := Candidate(base, n)
			if err != nil {
				return "", false, err
			}
			taken, err := pathExists(candidate)
			if err != nil {
				return "", false, err
			}
			if !taken {
				return candidate, true, nil
			}
		}
		return "", false, fault.ConflictExhausted(base)
	default:
		return "", false, fault.Configf("resolve output", "unknown file conflict mode %q", mode)
	}
}

// Candidate builds the n-th rename alternative for base: dir/stem_(n).ext.
func Candidate(base string, n int) (string, error) {
	dir, name := filepath.Split(base)
	ext := filepath.Ext(name)
	if len(ext) <= 1 {
		return "", fault.Configf("resolve output", "%s has no extension", base)
	}
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return "", fault.Configf("resolve output", "%s has no file name", base)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_(%d)%s", stem, n, ext)), nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fault.IO("stat", path, err)
	}
}
