package pipeline

import (
	"encoding/base64"
	"image"

	"github.com/disintegration/imaging"

	"pixpress/internal/config"
	"pixpress/internal/encode"
	"pixpress/internal/fault"
)

const previewQuality = 85

// GeneratePreview downsizes img so its longer edge is at most maxSize and
// returns it as a base64 JPEG. Images are never enlarged.
func GeneratePreview(img image.Image, maxSize uint32) (string, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return "", fault.Processingf("preview", "source image is %dx%d", w, h)
	}

	scale := min(float32(maxSize)/float32(max(w, h)), 1)
	pw, ph := int(float32(w)*scale), int(float32(h)*scale)
	if pw == 0 || ph == 0 {
		return "", fault.Processingf("preview", "preview of %dx%d at %d is empty", w, h, maxSize)
	}

	var preview image.Image = img
	if pw != w || ph != h {
		preview = imaging.Resize(img, pw, ph, imaging.Lanczos)
	}

	data, err := encode.JPEG(preview, config.JpegOptions{Encoder: config.JpegEncoderStandard, Quality: previewQuality})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
