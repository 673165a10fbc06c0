// Package batch derives output paths, resolves conflicts and fans images out
// over a worker pool.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"pixpress/internal/config"
	"pixpress/internal/conflict"
	"pixpress/internal/encode"
	"pixpress/internal/pipeline"
)

// SkippedOutputPath is reported as the output path of an image skipped
// because its destination already exists.
const SkippedOutputPath = "Skipped (file exists)"

// OutputSuffix is appended to the input stem to name the output file.
const OutputSuffix = "_optimized"

// Update reports one finished batch item.
type Update struct {
	Index  int
	Path   string
	Result pipeline.Result
}

type Options struct {
	// Workers caps concurrency; below 1 means one per CPU.
	Workers int
	Logger  *slog.Logger
	// Updates, if set, receives one Update per item. The caller closes it
	// after ProcessBatch returns.
	Updates chan<- Update
	// RunID tags batch log lines; a random one is generated when empty.
	RunID string
}

// Executor runs the single-image and batch contracts for one configuration.
type Executor struct {
	cfg     config.ProcessConfig
	workers int
	logger  *slog.Logger
	updates chan<- Update
	runID   string
}

func New(cfg config.ProcessConfig, opts Options) *Executor {
	return &Executor{
		cfg:     cfg,
		workers: config.Workers(opts.Workers),
		logger:  config.OrDiscard(opts.Logger),
		updates: opts.Updates,
		runID:   opts.RunID,
	}
}

// OutputPath derives the destination for input before conflict resolution:
// <output>/<relative dir>/<stem>_optimized.<ext>. The relative dir is only
// kept when folder structure is preserved and input lies under the base path.
func OutputPath(input string, cfg config.ProcessConfig) string {
	name := filepath.Base(input)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	file := stem + OutputSuffix + "." + cfg.OutputFormat.Extension()

	if cfg.PreserveFolderStructure && cfg.BasePath != "" {
		if rel, ok := relativeDir(cfg.BasePath, input); ok {
			return filepath.Join(cfg.OutputDir, rel, file)
		}
	}
	return filepath.Join(cfg.OutputDir, file)
}

func relativeDir(base, input string) (string, bool) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	absInput, err := filepath.Abs(input)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absBase, absInput)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Dir(rel), true
}

// ProcessSingle optimises one image. A skipped image is a success whose
// OutputPath is SkippedOutputPath.
func (e *Executor) ProcessSingle(ctx context.Context, inputPath string) (pipeline.Result, error) {
	return e.process(ctx, inputPath, nil)
}

// ProcessSingleWithEvents is ProcessSingle with a progress sink.
func (e *Executor) ProcessSingleWithEvents(ctx context.Context, inputPath string, events chan<- pipeline.Event) (pipeline.Result, error) {
	return e.process(ctx, inputPath, events)
}

func (e *Executor) process(ctx context.Context, inputPath string, events chan<- pipeline.Event) (pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("before loading: %w", err)
		return pipeline.Failed(err), err
	}

	target := OutputPath(inputPath, e.cfg)
	reservation, ok, err := conflict.Reserve(target, e.cfg.FileConflictMode)
	if err != nil {
		return pipeline.Failed(err), err
	}
	if !ok {
		e.logger.Debug("skipping existing output", slog.String("input", inputPath), slog.String("output", target))
		return pipeline.Result{Success: true, OutputPath: SkippedOutputPath}, nil
	}

	res, err := pipeline.Process(ctx, inputPath, reservation.Path, e.cfg, events)
	if err != nil {
		if relErr := reservation.Release(); relErr != nil {
			e.logger.Warn("could not release output", slog.String("path", reservation.Path), slog.Any("error", relErr))
		}
		return res, err
	}
	return res, nil
}

// ProcessBatch optimises every path on a bounded pool. results[i] always
// belongs to paths[i]; one item's failure never affects the others. Items not
// yet started when ctx is cancelled fail with the context error.
func (e *Executor) ProcessBatch(ctx context.Context, paths []string) []pipeline.Result {
	results := make([]pipeline.Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()
	logger := e.logger.With(slog.String("run", runID))
	logger.Info("batch started",
		slog.Int("files", len(paths)),
		slog.Int("workers", e.workers),
		slog.String("format", string(e.cfg.OutputFormat)),
	)
	for _, note := range encode.InertOptions(e.cfg) {
		logger.Debug("option has no effect", slog.String("note", note))
	}

	pool, err := ants.NewPool(min(e.workers, len(paths)))
	if err != nil {
		logger.Error("failed to create worker pool", slog.Any("error", err))
		for i := range results {
			results[i] = pipeline.Failed(fmt.Errorf("create worker pool: %w", err))
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		index, file := i, path

		err := pool.Submit(func() {
			defer wg.Done()
			res, err := e.process(ctx, file, nil)
			if err != nil {
				logger.Warn("image failed", slog.String("path", file), slog.Any("error", err))
			}
			results[index] = res
			e.publish(ctx, Update{Index: index, Path: file, Result: res})
		})
		if err != nil {
			wg.Done()
			logger.Error("failed to submit task", slog.String("path", file), slog.Any("error", err))
			results[index] = pipeline.Failed(fmt.Errorf("submit: %w", err))
			e.publish(ctx, Update{Index: index, Path: file, Result: results[index]})
		}
	}
	wg.Wait()

	sum := Summarize(results)
	logger.Info("batch finished",
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int64("saved", sum.Saved()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results
}

func (e *Executor) publish(ctx context.Context, u Update) {
	if e.updates == nil {
		return
	}
	select {
	case e.updates <- u:
	case <-ctx.Done():
	}
}
