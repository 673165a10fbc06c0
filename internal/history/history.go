// Package history persists batch runs in a local SQLite database.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/pipeline"
)

// Run is one batch invocation.
type Run struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	StartedAt     time.Time `gorm:"index" json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Format        string    `json:"format"`
	OutputDir     string    `json:"outputDir"`
	ConfigJSON    string    `gorm:"type:text" json:"config"`
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	OriginalBytes int64     `json:"originalBytes"`
	NewBytes      int64     `json:"newBytes"`
	Entries       []Entry   `gorm:"constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// Entry is one image of a run.
type Entry struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	RunID            string  `gorm:"index;size:36" json:"runId"`
	Position         int     `json:"position"`
	InputPath        string  `json:"inputPath"`
	OutputPath       string  `json:"outputPath"`
	Success          bool    `json:"success"`
	OriginalSize     int64   `json:"originalSize"`
	NewSize          int64   `json:"newSize"`
	CompressionRatio float32 `json:"compressionRatio"`
	Error            string  `json:"error,omitempty"`
}

// Ratio is the run-wide compression ratio.
func (r Run) Ratio() float32 {
	return pipeline.CompressionRatio(r.OriginalBytes, r.NewBytes)
}

type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: coherent.
	sqlDB.SetMaxOpenConns(1)
	return New(db)
}

// New wraps an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Run{}, &Entry{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a finished batch. paths and results are index-aligned.
func (s *Store) Record(runID string, cfg config.ProcessConfig, paths []string, results []pipeline.Result, started, finished time.Time) (Run, error) {
	if len(paths) != len(results) {
		return Run{}, fmt.Errorf("record run %s: %d paths but %d results", runID, len(paths), len(results))
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Run{}, fmt.Errorf("encode run config: %w", err)
	}

	sum := batch.Summarize(results)
	run := Run{
		ID:            runID,
		StartedAt:     started,
		FinishedAt:    finished,
		Format:        string(cfg.OutputFormat),
		OutputDir:     cfg.OutputDir,
		ConfigJSON:    string(cfgJSON),
		Total:         sum.Total,
		Succeeded:     sum.Succeeded,
		Skipped:       sum.Skipped,
		Failed:        sum.Failed,
		OriginalBytes: sum.OriginalBytes,
		NewBytes:      sum.NewBytes,
		Entries:       make([]Entry, len(results)),
	}
	for i, r := range results {
		run.Entries[i] = Entry{
			RunID:            runID,
			Position:         i,
			InputPath:        paths[i],
			OutputPath:       r.OutputPath,
			Success:          r.Success,
			OriginalSize:     r.OriginalSize,
			NewSize:          r.NewSize,
			CompressionRatio: r.CompressionRatio,
			Error:            r.Error,
		}
	}

	if err := s.db.Create(&run).Error; err != nil {
		return Run{}, fmt.Errorf("record run %s: %w", runID, err)
	}
	return run, nil
}

// Recent returns the latest runs, newest first, without entries.
func (s *Store) Recent(limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get loads one run with its entries in batch order.
func (s *Store) Get(runID string) (Run, error) {
	var run Run
	err := s.db.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&run, "id = ?", runID).Error
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

// Config decodes the configuration a run was made with.
func (r Run) Config() (config.ProcessConfig, error) {
	var cfg config.ProcessConfig
	if err := json.Unmarshal([]byte(r.ConfigJSON), &cfg); err != nil {
		return cfg, fmt.Errorf("decode run config: %w", err)
	}
	return cfg, nil
}
