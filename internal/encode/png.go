package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

const (
	minColors = 2
	maxColors = 256
)

// MaxColors maps a 0-100 quality onto a palette size in [2,256].
func MaxColors(quality int) int {
	n := int(float32(quality)/100*254 + 2)
	return max(minColors, min(n, maxColors))
}

// PNG encodes img losslessly, or as an indexed palette image when opts.Lossy is set.
func PNG(img image.Image, opts config.PngOptions) ([]byte, error) {
	src := toNRGBA(img)
	if !opts.Lossy {
		return encodePNG(src)
	}

	if !opts.PreserveTransparency {
		src = opaqueCopy(src)
	}

	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
	if opts.Quality < 50 {
		// Low quality favours the dominant colour of each bucket over the average.
		q.Aggregation = quantize.Mode
	}
	palette := q.Quantize(make(color.Palette, 0, MaxColors(opts.Quality)), src)
	if len(palette) == 0 {
		return nil, fault.Processingf("png quantize", "empty palette for %dx%d image", src.Rect.Dx(), src.Rect.Dy())
	}

	dst := image.NewPaletted(src.Rect, palette)
	if opts.Dithering {
		draw.FloydSteinberg.Draw(dst, dst.Rect, src, image.Point{})
	} else {
		draw.Draw(dst, dst.Rect, src, image.Point{}, draw.Src)
	}
	return encodePNG(dst)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fault.Processing("png encode", err)
	}
	return buf.Bytes(), nil
}

// opaqueCopy drops the alpha channel, keeping colour values as stored.
func opaqueCopy(src *image.NRGBA) *image.NRGBA {
	dst := &image.NRGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
