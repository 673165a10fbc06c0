package pipeline

import (
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// readOrientation returns the EXIF Orientation tag of rs, or 1 if the file
// carries none. Unreadable EXIF is treated as absent.
func readOrientation(rs io.ReadSeeker) int {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 1
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		return 1
	}

	for _, tag := range tags {
		if tag.TagName != "Orientation" {
			continue
		}
		if v, ok := tag.Value.([]uint16); ok && len(v) > 0 {
			return validOrientation(int(v[0]))
		}
		if n, err := strconv.Atoi(strings.Trim(tag.Formatted, "[] ")); err == nil {
			return validOrientation(n)
		}
	}
	return 1
}

func validOrientation(n int) int {
	if n < 1 || n > 8 {
		return 1
	}
	return n
}

// applyOrientation bakes an EXIF orientation into the pixels so the image
// displays upright without the tag.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Upright returns the image rotated as its EXIF orientation asks.
func (s Source) Upright() image.Image {
	return applyOrientation(s.Image, s.Orientation)
}
