package encode

import (
	"bytes"
	"image"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

const maxLosslessLevel = 9

// WebP encodes img through libwebp, honouring quality and method.
func WebP(img image.Image, opts config.WebPOptions) ([]byte, error) {
	eo, err := webpOptions(opts)
	if err != nil {
		return nil, fault.Processing("webp options", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, toNRGBA(img), eo); err != nil {
		return nil, fault.Processing("webp encode", err)
	}
	return buf.Bytes(), nil
}

func webpOptions(opts config.WebPOptions) (*encoder.Options, error) {
	method := max(0, min(opts.Method, 6))
	if !opts.Lossy {
		// Lossless effort level 0-9 follows the 0-6 method scale.
		return encoder.NewLosslessEncoderOptions(encoder.PresetDefault, method*maxLosslessLevel/6)
	}

	eo, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(max(0, min(opts.Quality, 100))))
	if err != nil {
		return nil, err
	}
	eo.Method = method
	return eo, nil
}
