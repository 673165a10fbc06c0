package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 13), G: uint8(y * 17), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// writeJPEGWithOrientation writes a w x h JPEG carrying an EXIF APP1 segment
// whose only tag is Orientation.
func writeJPEGWithOrientation(t *testing.T, path string, w, h int, orientation uint16) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}))
	data := enc.Bytes()

	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, orientation)
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	app1 := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var out bytes.Buffer
	out.Write(data[:2])
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(app1)+2))
	out.Write(app1)
	out.Write(data[2:])
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

func losslessPNG() config.ProcessConfig {
	cfg := config.Default()
	cfg.OutputFormat = config.FormatPNG
	cfg.PNG.Lossy = false
	return cfg
}

func drain(events chan Event) []Stage {
	close(events)
	var stages []Stage
	for ev := range events {
		stages = append(stages, ev.Stage)
	}
	return stages
}

func TestProcessWritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out", "nested", "in_optimized.png")
	writePNG(t, in, 20, 10)

	events := make(chan Event, 8)
	res, err := Process(context.Background(), in, out, losslessPNG(), events)
	require.NoError(t, err)

	info, err := os.Stat(in)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, out, res.OutputPath)
	assert.Equal(t, info.Size(), res.OriginalSize)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(written)), res.NewSize)
	assert.Equal(t, CompressionRatio(res.OriginalSize, res.NewSize), res.CompressionRatio)

	assert.Equal(t, []Stage{StageLoading, StageResizing, StageCompressing, StageWriting, StageDone}, drain(events))

	leftovers, err := filepath.Glob(filepath.Join(dir, "out", "nested", ".pixpress-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestProcessEveryFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 32, 32)

	for _, format := range []config.OutputFormat{config.FormatPNG, config.FormatJPEG, config.FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			cfg := config.Default()
			cfg.OutputFormat = format
			cfg.Resize = config.ResizeConfig{Enabled: true, Mode: config.Percentage{Scale: 50}, Algorithm: config.AlgorithmCatmullRom}
			out := filepath.Join(dir, "in_optimized."+format.Extension())

			res, err := Process(context.Background(), in, out, cfg, nil)
			require.NoError(t, err)
			assert.True(t, res.Success)

			src, err := Load(out)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 16, 16), src.Image.Bounds())
		})
	}
}

func TestProcessCorruptInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(in, []byte("\x89PNG\r\n\x1a\nnot really a png"), 0o644))
	out := filepath.Join(dir, "broken_optimized.png")

	events := make(chan Event, 8)
	res, err := Process(context.Background(), in, out, losslessPNG(), events)
	require.Error(t, err)
	assert.Equal(t, fault.KindDecode, fault.KindOf(err))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.NoFileExists(t, out)
	assert.Equal(t, []Stage{StageLoading, StageError}, drain(events))
}

func TestProcessUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(in, []byte("just some text, not an image"), 0o644))

	_, err := Process(context.Background(), in, filepath.Join(dir, "o.png"), losslessPNG(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestProcessMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Process(context.Background(), filepath.Join(dir, "nope.png"), filepath.Join(dir, "o.png"), losslessPNG(), nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindIO, fault.KindOf(err))
}

func TestProcessCancelled(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "in_optimized.png")
	writePNG(t, in, 8, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Process(ctx, in, out, losslessPNG(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestProcessFullSinkDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 8, 8)

	events := make(chan Event)
	res, err := Process(context.Background(), in, filepath.Join(dir, "o.png"), losslessPNG(), events)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestProcessOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "o.png")
	writePNG(t, in, 8, 8)
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := Process(context.Background(), in, out, losslessPNG(), nil)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestKeepOrientationRotates(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rotated.jpg")
	writeJPEGWithOrientation(t, in, 40, 20, 6)

	src, err := Load(in)
	require.NoError(t, err)
	assert.Equal(t, 6, src.Orientation)

	cfg := losslessPNG()
	cfg.MetadataMode = config.MetadataKeepOrientation
	out := filepath.Join(dir, "kept.png")
	_, err = Process(context.Background(), in, out, cfg, nil)
	require.NoError(t, err)
	kept, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), kept.Image.Bounds())

	cfg.MetadataMode = config.MetadataStripAll
	out = filepath.Join(dir, "stripped.png")
	_, err = Process(context.Background(), in, out, cfg, nil)
	require.NoError(t, err)
	stripped, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), stripped.Image.Bounds())
}

func TestApplyOrientation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for o := 1; o <= 8; o++ {
		got := applyOrientation(img, o).Bounds()
		if o >= 5 {
			assert.Equal(t, image.Rect(0, 0, 2, 4), got, "orientation %d", o)
		} else {
			assert.Equal(t, image.Rect(0, 0, 4, 2), got, "orientation %d", o)
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	assert.InDelta(t, 60.0, CompressionRatio(1000, 400), 1e-4)
	assert.InDelta(t, -150.0, CompressionRatio(1000, 2500), 1e-4)
	assert.InDelta(t, 0.0, CompressionRatio(1000, 1000), 1e-4)
	assert.Equal(t, float32(0), CompressionRatio(0, 10))
}

func TestGeneratePreview(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		max          uint32
		wantW, wantH int
	}{
		{"downscales landscape", 1600, 800, 800, 800, 400},
		{"downscales portrait", 300, 900, 300, 100, 300},
		{"never upscales", 100, 50, 800, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := GeneratePreview(image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.max)
			require.NoError(t, err)

			raw, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}
