package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"pixpress/internal/scan"
)

type inputOptions struct {
	recursive bool
	maxDepth  int
}

func (o *inputOptions) bind(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.recursive, "recursive", "r", true, "descend into subdirectories")
	fs.IntVar(&o.maxDepth, "max-depth", scan.DefaultMaxDepth, "maximum directory depth when recursive")
}

func (o inputOptions) scanner() *scan.Scanner {
	s := scan.New(nil)
	s.Recursive = o.recursive
	s.MaxDepth = o.maxDepth
	return s
}

// collectInputs expands directories into the supported images they contain.
// Files named explicitly are kept even when their extension is unknown so
// that they surface as per-item failures.
func collectInputs(ctx context.Context, args []string, opts inputOptions) ([]string, error) {
	s := opts.scanner()
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := s.Scan(ctx, arg)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}
