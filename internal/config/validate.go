package config

import (
	"strings"

	"pixpress/internal/fault"
)

const opValidate = "validate"

// Validate reports the first invalid setting as a configuration error.
func (c ProcessConfig) Validate() error {
	switch c.OutputFormat {
	case FormatPNG, FormatJPEG, FormatWebP:
	default:
		return fault.Configf(opValidate, "unknown output format %q", c.OutputFormat)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fault.Configf(opValidate, "output directory is empty")
	}

	if err := validateQuality("png", c.PNG.Quality); err != nil {
		return err
	}
	if err := validateQuality("jpeg", c.JPEG.Quality); err != nil {
		return err
	}
	if err := validateQuality("webp", c.WebP.Quality); err != nil {
		return err
	}
	if c.WebP.Method < 0 || c.WebP.Method > maxWebPMethod {
		return fault.Configf(opValidate, "webp method %d out of range [0,%d]", c.WebP.Method, maxWebPMethod)
	}

	switch c.PNG.Encoder {
	case PngEncoderImagequant, PngEncoderStandard, PngEncoderOxiPNG:
	default:
		return fault.Configf(opValidate, "unknown png encoder %q", c.PNG.Encoder)
	}
	switch c.JPEG.Encoder {
	case JpegEncoderMozJPEG, JpegEncoderStandard:
	default:
		return fault.Configf(opValidate, "unknown jpeg encoder %q", c.JPEG.Encoder)
	}
	if c.WebP.Encoder != WebPEncoderLibWebP {
		return fault.Configf(opValidate, "unknown webp encoder %q", c.WebP.Encoder)
	}

	switch c.MetadataMode {
	case MetadataStripAll, MetadataKeepOrientation, MetadataKeepColorProfile, MetadataCustom:
	default:
		return fault.Configf(opValidate, "unknown metadata mode %q", c.MetadataMode)
	}
	switch c.FileConflictMode {
	case ConflictOverwrite, ConflictRename, ConflictSkip:
	default:
		return fault.Configf(opValidate, "unknown file conflict mode %q", c.FileConflictMode)
	}

	return c.Resize.validate()
}

func (r ResizeConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	switch r.Algorithm {
	case AlgorithmLanczos3, AlgorithmCatmullRom, AlgorithmNearest, AlgorithmMitchell:
	default:
		return fault.Configf(opValidate, "unknown resize algorithm %q", r.Algorithm)
	}

	ok := true
	switch m := r.Mode.(type) {
	case FixedWidth:
		ok = m.Width > 0
	case FixedHeight:
		ok = m.Height > 0
	case Exact:
		ok = m.Width > 0 && m.Height > 0
	case Percentage:
		ok = m.Scale > 0
	case FitBox:
		ok = m.MaxWidth > 0 && m.MaxHeight > 0
	case FillBox:
		ok = m.Width > 0 && m.Height > 0
	case nil:
		return fault.Configf(opValidate, "resize enabled without a mode")
	}
	if !ok {
		return fault.Configf(opValidate, "resize %s has a non-positive parameter", r.Mode)
	}
	return nil
}

func validateQuality(block string, q int) error {
	if q < 0 || q > maxQuality {
		return fault.Configf(opValidate, "%s quality %d out of range [0,%d]", block, q, maxQuality)
	}
	return nil
}
