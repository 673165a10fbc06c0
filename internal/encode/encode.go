// Package encode turns decoded images into PNG, JPEG or WebP bytes.
package encode

import (
	"image"

	"golang.org/x/image/draw"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

// Encode dispatches to the encoder for cfg.OutputFormat. It performs no I/O.
func Encode(img image.Image, cfg config.ProcessConfig) ([]byte, error) {
	switch cfg.OutputFormat {
	case config.FormatPNG:
		return PNG(img, cfg.PNG)
	case config.FormatJPEG:
		return JPEG(img, cfg.JPEG)
	case config.FormatWebP:
		return WebP(img, cfg.WebP)
	default:
		return nil, fault.Configf("encode", "unknown output format %q", cfg.OutputFormat)
	}
}

// InertOptions lists configured options that the selected encoder accepts
// but cannot honour.
func InertOptions(cfg config.ProcessConfig) []string {
	var notes []string
	switch cfg.OutputFormat {
	case config.FormatJPEG:
		if cfg.JPEG.Encoder == config.JpegEncoderMozJPEG {
			notes = append(notes, "jpeg.encoder=mozjpeg falls back to the baseline encoder")
		}
		if cfg.JPEG.Progressive {
			notes = append(notes, "jpeg.progressive is not supported, output is baseline")
		}
		if cfg.JPEG.OptimizeCoding {
			notes = append(notes, "jpeg.optimizeCoding is not supported, standard Huffman tables are used")
		}
	case config.FormatPNG:
		if !cfg.PNG.Lossy && cfg.PNG.Encoder == config.PngEncoderOxiPNG {
			notes = append(notes, "png.encoder=oxipng uses best zlib compression")
		}
	}
	return notes
}

// toNRGBA returns img as 8-bit non-premultiplied RGBA anchored at the origin.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
