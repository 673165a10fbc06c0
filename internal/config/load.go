package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pixpress/internal/fault"
)

const (
	EnvPrefix         = "PIXPRESS"
	DefaultConfigName = "pixpress"
)

// Flag names shared by every processing command.
const (
	FlagFormat            = "format"
	FlagOutput            = "output"
	FlagQuality           = "quality"
	FlagLossy             = "lossy"
	FlagResize            = "resize"
	FlagAlgorithm         = "algorithm"
	FlagConflict          = "conflict"
	FlagMetadata          = "metadata"
	FlagPreserveStructure = "preserve-structure"
	FlagBase              = "base"
	FlagWorkers           = "workers"
	FlagNoHistory         = "no-history"
)

// flagKeys maps flags whose value is copied verbatim onto a config key.
var flagKeys = map[string]string{
	FlagFormat:            "outputFormat",
	FlagOutput:            "output",
	FlagConflict:          "fileConflictMode",
	FlagMetadata:          "metadataMode",
	FlagPreserveStructure: "preserveFolderStructure",
	FlagBase:              "basePath",
	FlagWorkers:           "workers",
}

// BindProcessFlags registers the optimisation flags on fs.
func BindProcessFlags(fs *pflag.FlagSet) {
	fs.String(FlagFormat, "", "output format: png, jpeg or webp")
	fs.StringP(FlagOutput, "o", "", "output directory")
	fs.Int(FlagQuality, 0, "quality 0-100 for the selected format")
	fs.Bool(FlagLossy, false, "use lossy compression (png, webp)")
	fs.String(FlagResize, "", "resize spec: width:W, height:H, exact:WxH, percent:S, fit:WxH, fill:WxH or off")
	fs.String(FlagAlgorithm, "", "resize filter: lanczos3, catmullRom, nearest or mitchell")
	fs.String(FlagConflict, "", "existing output handling: overwrite, rename or skip")
	fs.String(FlagMetadata, "", "metadata mode: stripAll, keepOrientation, keepColorProfile or custom")
	fs.Bool(FlagPreserveStructure, false, "mirror input folders below --base in the output directory")
	fs.String(FlagBase, "", "base directory stripped when preserving folder structure")
	fs.Int(FlagWorkers, DefaultWorkers, "parallel workers (0 = one per CPU)")
}

// Load merges defaults, the config file, PIXPRESS_* environment variables and
// flags, in increasing order of precedence, then validates the result.
func Load(cfgFile string, verbose bool, flags *pflag.FlagSet) (Settings, *slog.Logger, error) {
	var s Settings
	v := viper.New()
	logger := NewLogger(os.Stderr, verbose)
	s.Verbose = verbose

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			logger.Debug("no config file found, using defaults")
		} else {
			return s, logger, fault.Config("read config", err)
		}
	} else {
		s.ConfigFile = v.ConfigFileUsed()
		logger.Debug("using config file", slog.String("path", s.ConfigFile))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return s, logger, fault.Config("bind flag", fmt.Errorf("--%s: %w", name, err))
				}
			}
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return s, logger, fault.Config("unmarshal config", err)
	}

	process, err := file.ProcessConfig()
	if err != nil {
		return s, logger, err
	}
	if flags != nil {
		if err := applyFlags(&process, flags); err != nil {
			return s, logger, err
		}
		if flags.Changed(FlagNoHistory) {
			if off, _ := flags.GetBool(FlagNoHistory); off {
				file.History.Enabled = false
			}
		}
	}

	if err := process.Validate(); err != nil {
		return s, logger, err
	}

	s.Process = process
	s.Workers = file.Workers
	s.History = file.History

	logger.Debug("configuration loaded",
		slog.String("format", string(process.OutputFormat)),
		slog.String("output", process.OutputDir),
		slog.Bool("resize", process.Resize.Enabled),
		slog.String("conflict", string(process.FileConflictMode)),
	)
	return s, logger, nil
}

// applyFlags handles the flags that do not map onto a single config key.
func applyFlags(c *ProcessConfig, flags *pflag.FlagSet) error {
	if flags.Changed(FlagQuality) {
		q, _ := flags.GetInt(FlagQuality)
		switch c.OutputFormat {
		case FormatPNG:
			c.PNG.Quality = q
		case FormatJPEG:
			c.JPEG.Quality = q
		case FormatWebP:
			c.WebP.Quality = q
		}
	}

	if flags.Changed(FlagLossy) {
		lossy, _ := flags.GetBool(FlagLossy)
		switch c.OutputFormat {
		case FormatPNG:
			c.PNG.Lossy = lossy
		case FormatWebP:
			c.WebP.Lossy = lossy
		}
	}

	if flags.Changed(FlagResize) {
		spec, _ := flags.GetString(FlagResize)
		mode, enabled, err := ParseResizeSpec(spec)
		if err != nil {
			return fault.Config("parse --resize", err)
		}
		c.Resize.Enabled = enabled
		if mode != nil {
			c.Resize.Mode = mode
		}
	}

	if flags.Changed(FlagAlgorithm) {
		name, _ := flags.GetString(FlagAlgorithm)
		alg, err := ParseResizeAlgorithm(name)
		if err != nil {
			return fault.Config("parse --algorithm", err)
		}
		c.Resize.Algorithm = alg
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	f := DefaultFile()

	v.SetDefault("outputFormat", f.OutputFormat)
	v.SetDefault("output", f.Output)
	v.SetDefault("metadataMode", f.MetadataMode)
	v.SetDefault("fileConflictMode", f.FileConflictMode)
	v.SetDefault("preserveFolderStructure", f.PreserveFolderStructure)
	v.SetDefault("basePath", f.BasePath)
	v.SetDefault("workers", f.Workers)

	v.SetDefault("resize.enabled", f.Resize.Enabled)
	v.SetDefault("resize.mode", f.Resize.Mode)
	v.SetDefault("resize.algorithm", f.Resize.Algorithm)
	v.SetDefault("resize.scale", f.Resize.Scale)
	v.SetDefault("resize.width", 0)
	v.SetDefault("resize.height", 0)
	v.SetDefault("resize.maxWidth", 0)
	v.SetDefault("resize.maxHeight", 0)

	v.SetDefault("png.encoder", string(f.PNG.Encoder))
	v.SetDefault("png.lossy", f.PNG.Lossy)
	v.SetDefault("png.quality", f.PNG.Quality)
	v.SetDefault("png.dithering", f.PNG.Dithering)
	v.SetDefault("png.preserveTransparency", f.PNG.PreserveTransparency)

	v.SetDefault("jpeg.encoder", string(f.JPEG.Encoder))
	v.SetDefault("jpeg.quality", f.JPEG.Quality)
	v.SetDefault("jpeg.progressive", f.JPEG.Progressive)
	v.SetDefault("jpeg.optimizeCoding", f.JPEG.OptimizeCoding)

	v.SetDefault("webp.encoder", string(f.WebP.Encoder))
	v.SetDefault("webp.lossy", f.WebP.Lossy)
	v.SetDefault("webp.quality", f.WebP.Quality)
	v.SetDefault("webp.method", f.WebP.Method)

	v.SetDefault("history.enabled", f.History.Enabled)
	v.SetDefault("history.path", f.History.Path)
}

// NewLogger builds the CLI text logger; verbose selects debug level.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OrDiscard returns l, or a logger that drops everything when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// ResolvePath reports where the run-history database lives.
func (h HistorySettings) ResolvePath() (string, error) {
	if h.Path != "" {
		return h.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fault.IO("locate config dir", "", err)
	}
	return filepath.Join(dir, DefaultConfigName, DefaultHistoryFile), nil
}
