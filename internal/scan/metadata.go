package scan

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"pixpress/internal/fault"
	"pixpress/pkg/imgutil"
)

// Metadata summarises what an optimised copy would drop.
type Metadata struct {
	Kind         string   `json:"kind"`
	HasExif      bool     `json:"hasExif"`
	Orientation  int      `json:"orientation,omitempty"`
	HasGPS       bool     `json:"hasGps"`
	HasModel     bool     `json:"hasModel"`
	HasTimestamp bool     `json:"hasTimestamp"`
	HasICC       bool     `json:"hasIcc"`
	TextKeys     []string `json:"textKeys,omitempty"`
}

// Categories names the privacy-relevant groups found, for display.
func (m Metadata) Categories() []string {
	var cats []string
	if m.HasGPS {
		cats = append(cats, "GPS")
	}
	if m.HasModel {
		cats = append(cats, "Device Model")
	}
	if m.HasTimestamp {
		cats = append(cats, "Timestamp")
	}
	if m.HasICC {
		cats = append(cats, "ICC Profile")
	}
	return cats
}

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// Metadata inspects the EXIF block and container chunks of path.
func (s *Scanner) Metadata(path string) (Metadata, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return Metadata{}, fault.IO("open", path, err)
	}
	defer f.Close()

	kind, err := imgutil.SniffReader(f)
	if err != nil && !errors.Is(err, imgutil.ErrShortHeader) {
		return Metadata{}, fault.IO("read", path, err)
	}
	md := Metadata{Kind: kind.String()}

	if err := analyzeExif(f, &md); err != nil {
		return md, fault.Decode(path, err)
	}

	switch kind {
	case imgutil.KindPNG:
		err = scanPNGChunks(f, &md)
	case imgutil.KindJPEG:
		err = scanJPEGSegments(f, &md)
	}
	if err != nil {
		return md, fault.Decode(path, err)
	}
	return md, nil
}

func analyzeExif(rs io.ReadSeeker, md *Metadata) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) || strings.Contains(strings.ToLower(err.Error()), "no exif") {
			return nil
		}
		return err
	}

	md.HasExif = len(tags) > 0
	for _, tag := range tags {
		name := tag.TagName
		if strings.HasPrefix(name, "GPS") || strings.Contains(tag.IfdPath, "GPS") {
			md.HasGPS = true
		}
		switch name {
		case "Model", "Make", "CameraModelName":
			md.HasModel = true
		case "DateTimeOriginal", "DateTimeDigitized", "DateTime":
			md.HasTimestamp = true
		case "Orientation":
			if v, ok := tag.Value.([]uint16); ok && len(v) > 0 {
				md.Orientation = int(v[0])
			} else if n, err := strconv.Atoi(strings.Trim(tag.Formatted, "[] ")); err == nil {
				md.Orientation = n
			}
		}
	}
	return nil
}

func scanPNGChunks(rs io.ReadSeeker, md *Metadata) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	br := bufio.NewReader(rs)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return err
	}
	if !bytes.Equal(sig, pngSignature) {
		return errors.New("invalid PNG signature")
	}

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, head); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		length := int64(binary.BigEndian.Uint32(head[:4]))
		chunk := string(head[4:])

		switch chunk {
		case "tEXt", "zTXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return err
			}
			if _, err := io.CopyN(io.Discard, br, 4); err != nil {
				return err
			}
			if idx := bytes.IndexByte(data, 0); idx > 0 {
				applyTextKey(md, string(data[:idx]))
			}
			continue
		case "tIME":
			md.HasTimestamp = true
		case "iCCP":
			md.HasICC = true
		}

		if _, err := io.CopyN(io.Discard, br, length+4); err != nil {
			return err
		}
		if chunk == "IEND" {
			return nil
		}
	}
}

func applyTextKey(md *Metadata, key string) {
	md.TextKeys = append(md.TextKeys, key)
	lower := strings.ToLower(key)
	if strings.Contains(lower, "gps") || strings.Contains(lower, "latitude") || strings.Contains(lower, "longitude") {
		md.HasGPS = true
	}
	if strings.Contains(lower, "model") || strings.Contains(lower, "make") {
		md.HasModel = true
	}
	if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
		md.HasTimestamp = true
	}
}

// scanJPEGSegments walks the marker segments before the scan data looking
// for an embedded ICC profile.
func scanJPEGSegments(rs io.ReadSeeker, md *Metadata) error {
	if _, err := rs.Seek(2, io.SeekStart); err != nil {
		return err
	}
	br := bufio.NewReader(rs)

	head := make([]byte, 4)
	for {
		if _, err := io.ReadFull(br, head); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}
		if head[0] != 0xff {
			return errors.New("invalid JPEG marker")
		}
		marker := head[1]
		if marker == 0xda || marker == 0xd9 {
			return nil
		}
		length := int(binary.BigEndian.Uint16(head[2:]))
		if length < 2 {
			return errors.New("invalid JPEG segment length")
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return err
		}
		if marker == 0xe2 && bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00")) {
			md.HasICC = true
		}
	}
}
