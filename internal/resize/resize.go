// Package resize computes target dimensions and resamples images.
package resize

import (
	"image"

	"github.com/disintegration/imaging"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

const op = "resize"

// TargetDimensions computes the output size for a w x h source. Scaling is
// done in float32 and truncated toward zero.
func TargetDimensions(w, h uint32, mode config.ResizeMode) (uint32, uint32) {
	switch m := mode.(type) {
	case config.FixedWidth:
		aspect := float32(h) / float32(w)
		return m.Width, uint32(float32(m.Width) * aspect)
	case config.FixedHeight:
		aspect := float32(w) / float32(h)
		return uint32(float32(m.Height) * aspect), m.Height
	case config.Exact:
		return m.Width, m.Height
	case config.Percentage:
		return uint32(float32(w) * m.Scale / 100), uint32(float32(h) * m.Scale / 100)
	case config.FitBox:
		ratio := min(float32(m.MaxWidth)/float32(w), float32(m.MaxHeight)/float32(h))
		return uint32(float32(w) * ratio), uint32(float32(h) * ratio)
	case config.FillBox:
		return m.Width, m.Height
	default:
		return w, h
	}
}

// Resize applies cfg to img. The input is returned unchanged when resizing is
// disabled or the target matches the source size; otherwise the result is an
// *image.NRGBA.
func Resize(img image.Image, cfg config.ResizeConfig) (image.Image, error) {
	if !cfg.Enabled || cfg.Mode == nil {
		return img, nil
	}

	b := img.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())
	if w == 0 || h == 0 {
		return nil, fault.Processingf(op, "source image is %dx%d", w, h)
	}

	tw, th := TargetDimensions(w, h, cfg.Mode)
	if tw == w && th == h {
		return img, nil
	}
	// imaging treats a zero axis as "preserve aspect ratio", which is not what
	// any mode asks for.
	if tw == 0 || th == 0 {
		return nil, fault.Processingf(op, "target %dx%d is empty", tw, th)
	}

	out := imaging.Resize(img, int(tw), int(th), Filter(cfg.Algorithm))
	if out == nil || len(out.Pix) != int(tw)*int(th)*4 {
		return nil, fault.Processingf(op, "resampled buffer does not match %dx%d", tw, th)
	}
	return out, nil
}

// Filter maps an algorithm name to its resampling kernel. Unknown names fall
// back to Lanczos.
func Filter(a config.ResizeAlgorithm) imaging.ResampleFilter {
	switch a {
	case config.AlgorithmCatmullRom:
		return imaging.CatmullRom
	case config.AlgorithmNearest:
		return imaging.NearestNeighbor
	case config.AlgorithmMitchell:
		return imaging.MitchellNetravali
	default:
		return imaging.Lanczos
	}
}
