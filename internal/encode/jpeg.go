package encode

import (
	"bytes"
	"image"
	"image/jpeg"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

// JPEG encodes img at opts.Quality. Alpha is discarded, not composited.
func JPEG(img image.Image, opts config.JpegOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return nil, fault.Processing("jpeg encode", err)
	}
	return buf.Bytes(), nil
}

// jpegQuality clamps to the encoder's accepted range; 0 is not a valid JPEG quality.
func jpegQuality(q int) int {
	return max(1, min(q, 100))
}

// flatten copies the RGB channels of img into an opaque RGBA buffer.
func flatten(img image.Image) *image.RGBA {
	src := toNRGBA(img)
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
