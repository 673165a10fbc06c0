package config

import (
	"runtime"
)

const (
	DefaultOutputDir    = "optimized"
	DefaultWorkers      = 0 // 0 selects runtime.NumCPU
	DefaultPreviewSize  = 800
	DefaultHistoryFile  = "history.sqlite3"
	defaultPercentScale = 100
	defaultPNGQuality   = 80
	defaultJPEGQuality  = 60
	defaultWebPQuality  = 85
	defaultWebPMethod   = 4
	maxQuality          = 100
	maxWebPMethod       = 6
)

// Default returns the built-in optimisation preset.
func Default() ProcessConfig {
	return ProcessConfig{
		OutputFormat: FormatWebP,
		Resize: ResizeConfig{
			Enabled:   false,
			Mode:      Percentage{Scale: defaultPercentScale},
			Algorithm: AlgorithmLanczos3,
		},
		PNG: PngOptions{
			Encoder:              PngEncoderImagequant,
			Lossy:                true,
			Quality:              defaultPNGQuality,
			Dithering:            true,
			PreserveTransparency: true,
		},
		JPEG: JpegOptions{
			Encoder:        JpegEncoderStandard,
			Quality:        defaultJPEGQuality,
			Progressive:    true,
			OptimizeCoding: true,
		},
		WebP: WebPOptions{
			Encoder: WebPEncoderLibWebP,
			Lossy:   true,
			Quality: defaultWebPQuality,
			Method:  defaultWebPMethod,
		},
		MetadataMode:     MetadataStripAll,
		FileConflictMode: ConflictRename,
		OutputDir:        DefaultOutputDir,
	}
}

// DefaultFile is Default in its on-disk form.
func DefaultFile() File {
	return FileFrom(Default(), DefaultWorkers, HistorySettings{Enabled: true})
}

// Workers resolves a configured worker count; anything below 1 means one per CPU.
func Workers(n int) int {
	if n < 1 {
		return runtime.NumCPU()
	}
	return n
}
