// Package watch optimises images as they appear in a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/pipeline"
	"pixpress/internal/scan"
)

// DefaultDebounce is how long a path must stay quiet before it is processed.
const DefaultDebounce = 500 * time.Millisecond

// Processor is the single-image contract the watcher drives.
type Processor interface {
	ProcessSingle(ctx context.Context, inputPath string) (pipeline.Result, error)
}

type Options struct {
	Debounce  time.Duration
	Recursive bool
	// OutputDir is never watched so outputs do not feed back in.
	OutputDir string
	Logger    *slog.Logger
}

// Watcher debounces fsnotify events and hands settled images to a Processor
// one at a time.
type Watcher struct {
	proc      Processor
	fsw       *fsnotify.Watcher
	debounce  time.Duration
	recursive bool
	outputDir string
	logger    *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending chan string
	updates chan batch.Update
}

func New(proc Processor, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	outputDir := ""
	if opts.OutputDir != "" {
		if abs, err := filepath.Abs(opts.OutputDir); err == nil {
			outputDir = abs
		}
	}

	return &Watcher{
		proc:      proc,
		fsw:       fsw,
		debounce:  debounce,
		recursive: opts.Recursive,
		outputDir: outputDir,
		logger:    config.OrDiscard(opts.Logger),
		timers:    make(map[string]*time.Timer),
		pending:   make(chan string, 64),
		updates:   make(chan batch.Update, 16),
	}, nil
}

// Updates delivers one Update per processed image. It is closed when Run
// returns.
func (w *Watcher) Updates() <-chan batch.Update {
	return w.updates
}

// Add watches dir, and its subdirectories when recursive.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	if !w.recursive {
		return w.addDir(abs)
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.insideOutput(path) {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(dir string) error {
	if w.insideOutput(dir) {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", dir, err)
	}
	w.logger.Info("watching folder", slog.String("path", dir))
	return nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()

	defer func() {
		w.stopTimers()
		_ = w.fsw.Close()
		wg.Wait()
		close(w.updates)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) && w.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Add(event.Name); err != nil {
				w.logger.Warn("could not watch new folder", slog.String("path", event.Name), slog.Any("error", err))
			}
			return
		}
	}

	if w.ignored(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.pending <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) work(ctx context.Context) {
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.pending:
			res, err := w.proc.ProcessSingle(ctx, path)
			switch {
			case err != nil:
				w.logger.Warn("image failed", slog.String("path", path), slog.Any("error", err))
			case batch.IsSkipped(res):
				w.logger.Info("output exists, skipped", slog.String("path", path))
			default:
				w.logger.Info("optimised",
					slog.String("path", path),
					slog.String("output", res.OutputPath),
					slog.Float64("ratio", float64(res.CompressionRatio)),
				)
			}

			select {
			case w.updates <- batch.Update{Index: seq, Path: path, Result: res}:
			case <-ctx.Done():
				return
			}
			seq++
		}
	}
}

// ignored filters out unsupported files, hidden temp files, anything under
// the output directory and files that are already optimised outputs.
func (w *Watcher) ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !scan.IsSupported(path) {
		return true
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasSuffix(stem, batch.OutputSuffix) || strings.Contains(stem, batch.OutputSuffix+"_(") {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	return w.insideOutput(abs)
}

func (w *Watcher) insideOutput(abs string) bool {
	if w.outputDir == "" {
		return false
	}
	rel, err := filepath.Rel(w.outputDir, abs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
