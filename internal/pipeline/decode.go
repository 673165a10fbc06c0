package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pixpress/internal/fault"
	"pixpress/pkg/imgutil"
)

// ErrUnsupportedFormat marks input whose header matches no known image type.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Source is a decoded input image.
type Source struct {
	Image image.Image
	Kind  imgutil.Kind
	Size  int64
	// Orientation is the EXIF orientation tag, 1 when absent.
	Orientation int
}

// Load reads and decodes path, detecting the format from its content.
func Load(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fault.IO("read", path, err)
	}
	return decode(path, data)
}

func decode(path string, data []byte) (Source, error) {
	src := Source{Size: int64(len(data)), Orientation: 1}

	kind, err := imgutil.SniffReader(bytes.NewReader(data))
	if err != nil && !errors.Is(err, imgutil.ErrShortHeader) {
		return src, fault.Decode(path, err)
	}
	if kind == imgutil.KindUnknown {
		return src, fault.Decode(path, ErrUnsupportedFormat)
	}
	src.Kind = kind

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return src, fault.Decode(path, fmt.Errorf("%s: %w", kind, err))
	}
	src.Image = img

	switch kind {
	case imgutil.KindJPEG, imgutil.KindTIFF, imgutil.KindPNG, imgutil.KindWebP:
		src.Orientation = readOrientation(bytes.NewReader(data))
	}
	return src, nil
}
