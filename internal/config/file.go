package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pixpress/internal/fault"
)

// HistorySettings controls the local run-history database.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

// File is the on-disk shape of a pixpress.yaml preset.
type File struct {
	OutputFormat            string          `yaml:"outputFormat" mapstructure:"outputFormat"`
	Output                  string          `yaml:"output" mapstructure:"output"`
	Resize                  ResizeSettings  `yaml:"resize" mapstructure:"resize"`
	PNG                     PngOptions      `yaml:"png" mapstructure:"png"`
	JPEG                    JpegOptions     `yaml:"jpeg" mapstructure:"jpeg"`
	WebP                    WebPOptions     `yaml:"webp" mapstructure:"webp"`
	MetadataMode            string          `yaml:"metadataMode" mapstructure:"metadataMode"`
	FileConflictMode        string          `yaml:"fileConflictMode" mapstructure:"fileConflictMode"`
	PreserveFolderStructure bool            `yaml:"preserveFolderStructure" mapstructure:"preserveFolderStructure"`
	BasePath                string          `yaml:"basePath,omitempty" mapstructure:"basePath"`
	Workers                 int             `yaml:"workers" mapstructure:"workers"`
	History                 HistorySettings `yaml:"history" mapstructure:"history"`
}

// Settings is everything a command needs after loading.
type Settings struct {
	Process    ProcessConfig
	Workers    int
	History    HistorySettings
	Verbose    bool
	ConfigFile string
}

// FileFrom converts a ProcessConfig back into its on-disk form.
func FileFrom(c ProcessConfig, workers int, history HistorySettings) File {
	return File{
		OutputFormat:            string(c.OutputFormat),
		Output:                  c.OutputDir,
		Resize:                  c.Resize.Settings(),
		PNG:                     c.PNG,
		JPEG:                    c.JPEG,
		WebP:                    c.WebP,
		MetadataMode:            string(c.MetadataMode),
		FileConflictMode:        string(c.FileConflictMode),
		PreserveFolderStructure: c.PreserveFolderStructure,
		BasePath:                c.BasePath,
		Workers:                 workers,
		History:                 history,
	}
}

// ProcessConfig parses the string-typed fields of f.
func (f File) ProcessConfig() (ProcessConfig, error) {
	var c ProcessConfig
	var err error

	if c.OutputFormat, err = ParseOutputFormat(f.OutputFormat); err != nil {
		return c, fault.Config("load", err)
	}
	if c.Resize, err = f.Resize.Config(); err != nil {
		return c, fault.Config("load", err)
	}
	if c.MetadataMode, err = ParseMetadataMode(f.MetadataMode); err != nil {
		return c, fault.Config("load", err)
	}
	if c.FileConflictMode, err = ParseFileConflictMode(f.FileConflictMode); err != nil {
		return c, fault.Config("load", err)
	}

	c.PNG = f.PNG
	c.JPEG = f.JPEG
	c.WebP = f.WebP
	c.PreserveFolderStructure = f.PreserveFolderStructure
	c.BasePath = f.BasePath
	c.OutputDir = f.Output
	return c, nil
}

// WritePreset serialises f as YAML.
func WritePreset(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return enc.Close()
}

// WritePresetFile writes f to path, refusing to replace an existing file unless force is set.
func WritePresetFile(path string, f File, force bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fault.IO("create config dir", dir, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fault.IO("create preset", path, err)
	}
	if err := WritePreset(out, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fault.IO("close preset", path, err)
	}
	return nil
}
