// Package pipeline runs a single image through load, resize, encode and write.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pixpress/internal/config"
	"pixpress/internal/encode"
	"pixpress/internal/fault"
	"pixpress/internal/resize"
)

// Process optimises inputPath into outputPath. outputPath is final: conflict
// resolution is the caller's job. Events, if non-nil, receive the stages in
// order; a full channel drops them. ctx is checked between stages.
func Process(ctx context.Context, inputPath, outputPath string, cfg config.ProcessConfig, events chan<- Event) (Result, error) {
	res, err := process(ctx, inputPath, outputPath, cfg, events)
	if err != nil {
		emit(events, Event{Stage: StageError, Message: err.Error()})
		return Failed(err), err
	}
	emit(events, Event{Stage: StageDone})
	return res, nil
}

func process(ctx context.Context, inputPath, outputPath string, cfg config.ProcessConfig, events chan<- Event) (Result, error) {
	emit(events, Event{Stage: StageLoading})
	info, err := os.Stat(inputPath)
	if err != nil {
		return Result{}, fault.IO("stat", inputPath, err)
	}
	src, err := Load(inputPath)
	if err != nil {
		return Result{}, err
	}
	img := src.Image
	if cfg.MetadataMode == config.MetadataKeepOrientation {
		img = src.Upright()
	}

	if err := checkpoint(ctx, StageResizing); err != nil {
		return Result{}, err
	}
	emit(events, Event{Stage: StageResizing})
	img, err = resize.Resize(img, cfg.Resize)
	if err != nil {
		return Result{}, err
	}

	if err := checkpoint(ctx, StageCompressing); err != nil {
		return Result{}, err
	}
	emit(events, Event{Stage: StageCompressing})
	data, err := encode.Encode(img, cfg)
	if err != nil {
		return Result{}, err
	}

	if err := checkpoint(ctx, StageWriting); err != nil {
		return Result{}, err
	}
	emit(events, Event{Stage: StageWriting})
	if err := writeOutput(outputPath, data); err != nil {
		return Result{}, err
	}

	original := info.Size()
	encoded := int64(len(data))
	return Result{
		Success:          true,
		OriginalSize:     original,
		NewSize:          encoded,
		CompressionRatio: CompressionRatio(original, encoded),
		OutputPath:       outputPath,
	}, nil
}

func checkpoint(ctx context.Context, next Stage) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before %s: %w", next, err)
	}
	return nil
}

// writeOutput writes data next to destPath and renames it into place, so a
// failed write never leaves a partial file at destPath.
func writeOutput(destPath string, data []byte) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fault.IO("create dir", destDir, err)
	}

	tmpFile, err := os.CreateTemp(destDir, ".pixpress-*.tmp")
	if err != nil {
		return fault.IO("create temp", destDir, err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fault.IO("write", tmpFile.Name(), err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return fault.IO("chmod", tmpFile.Name(), err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fault.IO("sync", tmpFile.Name(), err)
	}
	if err := tmpFile.Close(); err != nil {
		return fault.IO("close", tmpFile.Name(), err)
	}

	if err := replaceFile(tmpFile.Name(), destPath); err != nil {
		return fault.IO("rename", destPath, err)
	}
	return nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
