// Package scan lists optimisable images and inspects their headers.
package scan

import (
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pixpress/internal/fault"
)

// SupportedExtensions are matched case-insensitively, without the dot.
var SupportedExtensions = []string{"png", "jpg", "jpeg", "webp", "bmp", "tiff", "gif"}

const DefaultMaxDepth = 10

const unknownFormat = "unknown"

// FileInfo describes a candidate input. Width, Height and Format are 0, 0
// and "unknown" when the header could not be read.
type FileInfo struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Format string `json:"format"`
}

type Scanner struct {
	fs        afero.Fs
	Recursive bool
	// MaxDepth bounds recursion; files directly in the root are at depth 1.
	MaxDepth int
}

// New returns a recursive scanner over fsys; nil means the OS filesystem.
func New(fsys afero.Fs) *Scanner {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Scanner{fs: fsys, Recursive: true, MaxDepth: DefaultMaxDepth}
}

// IsSupported reports whether path has an optimisable extension.
func IsSupported(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ext != "" && slices.Contains(SupportedExtensions, ext)
}

// Scan lists supported files under root in lexical order. Unreadable
// entries are skipped.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileInfo, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fault.IO("scan", root, err)
	}
	if !info.IsDir() {
		if !IsSupported(root) {
			return nil, nil
		}
		fi, err := s.Info(root)
		if err != nil {
			return nil, err
		}
		return []FileInfo{fi}, nil
	}

	maxDepth := 1
	if s.Recursive {
		maxDepth = max(s.MaxDepth, 1)
	}

	var files []FileInfo
	err = afero.Walk(s.fs, root, func(path string, fi os.FileInfo, walkErr error) error {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if walkErr != nil {
			if fi != nil && fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		depth := depthOf(root, path)
		if fi.IsDir() {
			if path != root && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() || depth > maxDepth || !IsSupported(path) {
			return nil
		}

		info, err := s.Info(path)
		if err != nil {
			return nil
		}
		files = append(files, info)
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return files, err
	}
	return files, nil
}

// Info stats path and reads its dimensions from the header only.
func (s *Scanner) Info(path string) (FileInfo, error) {
	st, err := s.fs.Stat(path)
	if err != nil {
		return FileInfo{}, fault.IO("stat", path, err)
	}

	fi := FileInfo{
		Path:   path,
		Name:   filepath.Base(path),
		Size:   st.Size(),
		Format: unknownFormat,
	}
	if w, h, err := s.dimensions(path); err == nil {
		fi.Width, fi.Height = w, h
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			fi.Format = strings.ToUpper(ext)
		}
	}
	return fi, nil
}

func (s *Scanner) dimensions(path string) (uint32, uint32, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return uint32(cfg.Width), uint32(cfg.Height), nil
}

func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
