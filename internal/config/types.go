package config

import (
	"fmt"
	"strings"
)

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
	FormatWebP OutputFormat = "webp"
)

// ParseOutputFormat accepts the canonical names plus "jpg", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Extension is the file extension, without dot, written for this format.
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatWebP:
		return "webp"
	default:
		return "png"
	}
}

type ResizeAlgorithm string

const (
	AlgorithmLanczos3   ResizeAlgorithm = "lanczos3"
	AlgorithmCatmullRom ResizeAlgorithm = "catmullRom"
	AlgorithmNearest    ResizeAlgorithm = "nearest"
	AlgorithmMitchell   ResizeAlgorithm = "mitchell"
)

func ParseResizeAlgorithm(s string) (ResizeAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lanczos3", "lanczos":
		return AlgorithmLanczos3, nil
	case "catmullrom", "catmull-rom":
		return AlgorithmCatmullRom, nil
	case "nearest":
		return AlgorithmNearest, nil
	case "mitchell":
		return AlgorithmMitchell, nil
	default:
		return "", fmt.Errorf("unknown resize algorithm %q", s)
	}
}

// ResizeMode is one of FixedWidth, FixedHeight, Exact, Percentage, FitBox or FillBox.
type ResizeMode interface {
	isResizeMode()
	String() string
}

type FixedWidth struct{ Width uint32 }

type FixedHeight struct{ Height uint32 }

// Exact stretches to the given box without preserving aspect ratio.
type Exact struct{ Width, Height uint32 }

type Percentage struct{ Scale float32 }

// FitBox scales uniformly so the image fits inside the box.
type FitBox struct{ MaxWidth, MaxHeight uint32 }

// FillBox targets exactly the given box. No cropping is performed, so a
// source with a different aspect ratio is stretched.
type FillBox struct{ Width, Height uint32 }

func (FixedWidth) isResizeMode()  {}
func (FixedHeight) isResizeMode() {}
func (Exact) isResizeMode()       {}
func (Percentage) isResizeMode()  {}
func (FitBox) isResizeMode()      {}
func (FillBox) isResizeMode()     {}

func (m FixedWidth) String() string  { return fmt.Sprintf("width:%d", m.Width) }
func (m FixedHeight) String() string { return fmt.Sprintf("height:%d", m.Height) }
func (m Exact) String() string       { return fmt.Sprintf("exact:%dx%d", m.Width, m.Height) }
func (m Percentage) String() string  { return fmt.Sprintf("percent:%g", m.Scale) }
func (m FitBox) String() string      { return fmt.Sprintf("fit:%dx%d", m.MaxWidth, m.MaxHeight) }
func (m FillBox) String() string     { return fmt.Sprintf("fill:%dx%d", m.Width, m.Height) }

// ResizeConfig is ignored entirely when Enabled is false.
type ResizeConfig struct {
	Enabled   bool
	Mode      ResizeMode
	Algorithm ResizeAlgorithm
}

type PngEncoder string

const (
	PngEncoderImagequant PngEncoder = "imagequant"
	PngEncoderStandard   PngEncoder = "standard"
	PngEncoderOxiPNG     PngEncoder = "oxipng"
)

type PngOptions struct {
	Encoder              PngEncoder `json:"encoder" yaml:"encoder" mapstructure:"encoder"`
	Lossy                bool       `json:"lossy" yaml:"lossy" mapstructure:"lossy"`
	Quality              int        `json:"quality" yaml:"quality" mapstructure:"quality"`
	Dithering            bool       `json:"dithering" yaml:"dithering" mapstructure:"dithering"`
	PreserveTransparency bool       `json:"preserveTransparency" yaml:"preserveTransparency" mapstructure:"preserveTransparency"`
}

type JpegEncoder string

const (
	JpegEncoderMozJPEG  JpegEncoder = "mozjpeg"
	JpegEncoderStandard JpegEncoder = "standard"
)

type JpegOptions struct {
	Encoder        JpegEncoder `json:"encoder" yaml:"encoder" mapstructure:"encoder"`
	Quality        int         `json:"quality" yaml:"quality" mapstructure:"quality"`
	Progressive    bool        `json:"progressive" yaml:"progressive" mapstructure:"progressive"`
	OptimizeCoding bool        `json:"optimizeCoding" yaml:"optimizeCoding" mapstructure:"optimizeCoding"`
}

type WebPEncoder string

const WebPEncoderLibWebP WebPEncoder = "libwebp"

type WebPOptions struct {
	Encoder WebPEncoder `json:"encoder" yaml:"encoder" mapstructure:"encoder"`
	Lossy   bool        `json:"lossy" yaml:"lossy" mapstructure:"lossy"`
	Quality int         `json:"quality" yaml:"quality" mapstructure:"quality"`
	// Method trades speed for size: 0 is fastest, 6 is slowest and smallest.
	Method int `json:"method" yaml:"method" mapstructure:"method"`
}

type MetadataMode string

const (
	MetadataStripAll         MetadataMode = "stripAll"
	MetadataKeepOrientation  MetadataMode = "keepOrientation"
	MetadataKeepColorProfile MetadataMode = "keepColorProfile"
	MetadataCustom           MetadataMode = "custom"
)

type FileConflictMode string

const (
	ConflictOverwrite FileConflictMode = "overwrite"
	ConflictRename    FileConflictMode = "rename"
	ConflictSkip      FileConflictMode = "skip"
)

func ParseFileConflictMode(s string) (FileConflictMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overwrite":
		return ConflictOverwrite, nil
	case "rename":
		return ConflictRename, nil
	case "skip":
		return ConflictSkip, nil
	default:
		return "", fmt.Errorf("unknown file conflict mode %q", s)
	}
}

func ParseMetadataMode(s string) (MetadataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stripall", "strip":
		return MetadataStripAll, nil
	case "keeporientation", "orientation":
		return MetadataKeepOrientation, nil
	case "keepcolorprofile", "colorprofile":
		return MetadataKeepColorProfile, nil
	case "custom":
		return MetadataCustom, nil
	default:
		return "", fmt.Errorf("unknown metadata mode %q", s)
	}
}

// ProcessConfig describes one optimisation run. Only the option block that
// matches OutputFormat is consulted.
type ProcessConfig struct {
	OutputFormat            OutputFormat     `json:"outputFormat"`
	Resize                  ResizeConfig     `json:"resize"`
	PNG                     PngOptions       `json:"pngOptions"`
	JPEG                    JpegOptions      `json:"jpegOptions"`
	WebP                    WebPOptions      `json:"webpOptions"`
	MetadataMode            MetadataMode     `json:"metadataMode"`
	FileConflictMode        FileConflictMode `json:"fileConflictMode"`
	PreserveFolderStructure bool             `json:"preserveFolderStructure"`
	BasePath                string           `json:"basePath,omitempty"`
	OutputDir               string           `json:"outputPath"`
}
