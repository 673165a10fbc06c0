package scan

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, data, 0o644))
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestScanFiltersAndReadsDimensions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/pics/a.png", pngBytes(t, 12, 7))
	writeFile(t, fsys, "/pics/notes.txt", []byte("hello"))
	writeFile(t, fsys, "/pics/broken.JPG", []byte("not a jpeg"))
	writeFile(t, fsys, "/pics/sub/b.png", pngBytes(t, 3, 4))

	files, err := New(fsys).Scan(context.Background(), "/pics")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "broken.JPG", "b.png"}, names(files))

	assert.Equal(t, FileInfo{Path: "/pics/a.png", Name: "a.png", Size: int64(len(pngBytes(t, 12, 7))), Width: 12, Height: 7, Format: "PNG"}, files[0])
	assert.Equal(t, uint32(0), files[1].Width)
	assert.Equal(t, uint32(0), files[1].Height)
	assert.Equal(t, "unknown", files[1].Format)
	assert.Equal(t, uint32(3), files[2].Width)
}

func TestScanDepth(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/root/top.png", pngBytes(t, 1, 1))
	writeFile(t, fsys, "/root/a/mid.png", pngBytes(t, 1, 1))
	writeFile(t, fsys, "/root/a/b/deep.png", pngBytes(t, 1, 1))

	s := New(fsys)
	s.Recursive = false
	files, err := s.Scan(context.Background(), "/root")
	require.NoError(t, err)
	assert.Equal(t, []string{"top.png"}, names(files))

	s.Recursive = true
	s.MaxDepth = 2
	files, err = s.Scan(context.Background(), "/root")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"top.png", "mid.png"}, names(files))

	s.MaxDepth = DefaultMaxDepth
	files, err = s.Scan(context.Background(), "/root")
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanSingleFileAndMissingRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/one.gif", []byte("GIF89a"))

	files, err := New(fsys).Scan(context.Background(), "/one.gif")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "unknown", files[0].Format)

	_, err = New(fsys).Scan(context.Background(), "/missing")
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	for _, p := range []string{"a.png", "b.JPEG", "c.jpg", "d.webp", "e.bmp", "f.TIFF", "g.gif"} {
		assert.True(t, IsSupported(p), p)
	}
	for _, p := range []string{"a.txt", "b.heic", "noext", "c.png.bak"} {
		assert.False(t, IsSupported(p), p)
	}
}

func buildExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0132))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(20))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(46))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}

func buildJPEGWithExif() []byte {
	exifData := append([]byte("Exif\x00\x00"), buildExifTIFF()...)
	icc := append([]byte("ICC_PROFILE\x00\x01\x01"), make([]byte, 16)...)

	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exifData)+2))
	buf.Write(exifData)
	buf.Write([]byte{0xff, 0xe2})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(icc)+2))
	buf.Write(icc)
	buf.Write([]byte{0xff, 0xd9})
	return buf.Bytes()
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	typeBytes := []byte(chunkType)
	chunk := make([]byte, 4, 12+len(data))
	binary.BigEndian.PutUint32(chunk, uint32(len(data)))
	chunk = append(chunk, typeBytes...)
	chunk = append(chunk, data...)
	crc := make([]byte, 4)
	binary.BigEndian.PutUint32(crc, crc32.ChecksumIEEE(append(typeBytes, data...)))
	return append(chunk, crc...)
}

func buildPNGWithText(t *testing.T) []byte {
	data := pngBytes(t, 1, 1)
	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, buildPNGChunk("tEXt", []byte("Model\x00TestCam"))...)
	out = append(out, buildPNGChunk("tIME", []byte{0x07, 0xE8, 0x01, 0x02, 0x03, 0x04, 0x05})...)
	return append(out, data[insertAt:]...)
}

func TestMetadataJPEG(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/x.jpg", buildJPEGWithExif())

	md, err := New(fsys).Metadata("/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", md.Kind)
	assert.True(t, md.HasExif)
	assert.True(t, md.HasModel)
	assert.True(t, md.HasTimestamp)
	assert.True(t, md.HasICC)
	assert.False(t, md.HasGPS)
	assert.Equal(t, []string{"Device Model", "Timestamp", "ICC Profile"}, md.Categories())
}

func TestMetadataPNG(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/x.png", buildPNGWithText(t))
	writeFile(t, fsys, "/clean.png", pngBytes(t, 2, 2))

	md, err := New(fsys).Metadata("/x.png")
	require.NoError(t, err)
	assert.Equal(t, "png", md.Kind)
	assert.Equal(t, []string{"Model"}, md.TextKeys)
	assert.True(t, md.HasModel)
	assert.True(t, md.HasTimestamp)

	clean, err := New(fsys).Metadata("/clean.png")
	require.NoError(t, err)
	assert.Empty(t, clean.Categories())
	assert.False(t, clean.HasExif)
}
