package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixpress/internal/fault"
)

func TestDefaultPreset(t *testing.T) {
	c := Default()
	assert.Equal(t, FormatWebP, c.OutputFormat)
	assert.False(t, c.Resize.Enabled)
	assert.Equal(t, Percentage{Scale: 100}, c.Resize.Mode)
	assert.Equal(t, AlgorithmLanczos3, c.Resize.Algorithm)
	assert.Equal(t, PngOptions{Encoder: PngEncoderImagequant, Lossy: true, Quality: 80, Dithering: true, PreserveTransparency: true}, c.PNG)
	assert.Equal(t, JpegOptions{Encoder: JpegEncoderStandard, Quality: 60, Progressive: true, OptimizeCoding: true}, c.JPEG)
	assert.Equal(t, WebPOptions{Encoder: WebPEncoderLibWebP, Lossy: true, Quality: 85, Method: 4}, c.WebP)
	assert.Equal(t, MetadataStripAll, c.MetadataMode)
	assert.Equal(t, ConflictRename, c.FileConflictMode)
	require.NoError(t, c.Validate())
}

func TestParseResizeSpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    ResizeMode
		enabled bool
		wantErr bool
	}{
		{spec: "off"},
		{spec: ""},
		{spec: "width:800", want: FixedWidth{Width: 800}, enabled: true},
		{spec: "height:600", want: FixedHeight{Height: 600}, enabled: true},
		{spec: "exact:640x480", want: Exact{Width: 640, Height: 480}, enabled: true},
		{spec: "percent:50", want: Percentage{Scale: 50}, enabled: true},
		{spec: "percent:12.5%", want: Percentage{Scale: 12.5}, enabled: true},
		{spec: "fit:1920x1080", want: FitBox{MaxWidth: 1920, MaxHeight: 1080}, enabled: true},
		{spec: "fill:100X100", want: FillBox{Width: 100, Height: 100}, enabled: true},
		{spec: "width:0", wantErr: true},
		{spec: "fit:100", wantErr: true},
		{spec: "percent:-5", wantErr: true},
		{spec: "zoom:2", wantErr: true},
		{spec: "800", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, enabled, err := ParseResizeSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.enabled, enabled)
		})
	}
}

func TestResizeModeStringParsesBack(t *testing.T) {
	modes := []ResizeMode{
		FixedWidth{Width: 10}, FixedHeight{Height: 20}, Exact{Width: 3, Height: 4},
		Percentage{Scale: 25}, FitBox{MaxWidth: 5, MaxHeight: 6}, FillBox{Width: 7, Height: 8},
	}
	for _, m := range modes {
		got, enabled, err := ParseResizeSpec(m.String())
		require.NoError(t, err, m.String())
		assert.True(t, enabled)
		assert.Equal(t, m, got)
	}
}

func TestResizeConfigJSON(t *testing.T) {
	in := ResizeConfig{Enabled: true, Mode: FitBox{MaxWidth: 1920, MaxHeight: 1080}, Algorithm: AlgorithmCatmullRom}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"mode":"fitBox","algorithm":"catmullRom","maxWidth":1920,"maxHeight":1080}`, string(data))

	var out ResizeConfig
	require.NoError(t, json.Unmarshal([]byte(`{"enabled":false,"mode":"percentage","algorithm":"lanczos3","scale":100}`), &out))
	assert.Equal(t, ResizeConfig{Mode: Percentage{Scale: 100}, Algorithm: AlgorithmLanczos3}, out)

	assert.Error(t, json.Unmarshal([]byte(`{"mode":"spiral"}`), &out))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProcessConfig)
	}{
		{"png quality", func(c *ProcessConfig) { c.PNG.Quality = 101 }},
		{"jpeg quality", func(c *ProcessConfig) { c.JPEG.Quality = -1 }},
		{"webp method", func(c *ProcessConfig) { c.WebP.Method = 7 }},
		{"empty output", func(c *ProcessConfig) { c.OutputDir = " " }},
		{"format", func(c *ProcessConfig) { c.OutputFormat = "gif" }},
		{"conflict", func(c *ProcessConfig) { c.FileConflictMode = "merge" }},
		{"zero width", func(c *ProcessConfig) {
			c.Resize = ResizeConfig{Enabled: true, Mode: FixedWidth{}, Algorithm: AlgorithmNearest}
		}},
		{"zero scale", func(c *ProcessConfig) {
			c.Resize = ResizeConfig{Enabled: true, Mode: Percentage{}, Algorithm: AlgorithmNearest}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Equal(t, fault.KindConfig, fault.KindOf(err))
		})
	}
}

func TestValidateIgnoresDisabledResize(t *testing.T) {
	c := Default()
	c.Resize = ResizeConfig{Enabled: false, Mode: FixedWidth{}}
	assert.NoError(t, c.Validate())
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindProcessFlags(fs)
	fs.Bool(FlagNoHistory, false, "")
	return fs
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	s, logger, err := Load("", false, newFlags())
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, Default(), s.Process)
	assert.True(t, s.History.Enabled)
	assert.Empty(t, s.ConfigFile)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pixpress.yaml")
	yaml := `outputFormat: png
output: from-file
fileConflictMode: skip
png:
  encoder: standard
  lossy: true
  quality: 40
resize:
  enabled: true
  mode: fixedWidth
  width: 320
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	t.Setenv("PIXPRESS_FILECONFLICTMODE", "overwrite")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--output", "from-flag", "--quality", "90", "--no-history"}))

	s, _, err := Load(cfgPath, true, fs)
	require.NoError(t, err)
	assert.Equal(t, cfgPath, s.ConfigFile)
	assert.Equal(t, FormatPNG, s.Process.OutputFormat)
	assert.Equal(t, "from-flag", s.Process.OutputDir)
	assert.Equal(t, ConflictOverwrite, s.Process.FileConflictMode)
	assert.Equal(t, PngEncoderStandard, s.Process.PNG.Encoder)
	assert.Equal(t, 90, s.Process.PNG.Quality)
	assert.Equal(t, ResizeConfig{Enabled: true, Mode: FixedWidth{Width: 320}, Algorithm: AlgorithmLanczos3}, s.Process.Resize)
	assert.False(t, s.History.Enabled)
	assert.True(t, s.Verbose)
}

func TestLoadResizeFlag(t *testing.T) {
	chdir(t, t.TempDir())
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--resize", "fit:100x50", "--algorithm", "nearest", "--format", "jpg"}))

	s, _, err := Load("", false, fs)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, s.Process.OutputFormat)
	assert.Equal(t, ResizeConfig{Enabled: true, Mode: FitBox{MaxWidth: 100, MaxHeight: 50}, Algorithm: AlgorithmNearest}, s.Process.Resize)
}

func TestLoadInvalidFlagIsConfigError(t *testing.T) {
	chdir(t, t.TempDir())
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--quality", "150"}))

	_, _, err := Load("", false, fs)
	require.Error(t, err)
	assert.Equal(t, fault.KindConfig, fault.KindOf(err))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false, newFlags())
	require.Error(t, err)
	assert.Equal(t, fault.KindConfig, fault.KindOf(err))
}

func TestPresetRoundTripThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset", "pixpress.yaml")
	want := Default()
	want.OutputFormat = FormatJPEG
	want.Resize = ResizeConfig{Enabled: true, Mode: Exact{Width: 64, Height: 48}, Algorithm: AlgorithmMitchell}

	require.NoError(t, WritePresetFile(path, FileFrom(want, 2, HistorySettings{}), false))
	assert.Error(t, WritePresetFile(path, DefaultFile(), false), "existing preset must not be replaced")

	s, _, err := Load(path, false, newFlags())
	require.NoError(t, err)
	assert.Equal(t, want, s.Process)
	assert.Equal(t, 2, s.Workers)
}

func TestWritePresetYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePreset(&buf, DefaultFile()))
	out := buf.String()
	assert.Contains(t, out, "outputFormat: webp")
	assert.Contains(t, out, "mode: percentage")
	assert.Contains(t, out, "preserveTransparency: true")
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 3, Workers(3))
	assert.GreaterOrEqual(t, Workers(0), 1)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
