package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Resize mode names used by the flat settings form.
const (
	modeFixedWidth  = "fixedWidth"
	modeFixedHeight = "fixedHeight"
	modeExact       = "exact"
	modePercentage  = "percentage"
	modeFitBox      = "fitBox"
	modeFillBox     = "fillBox"
)

// ResizeSettings is the flat form of ResizeConfig used in config files and JSON.
// Only the fields relevant to Mode are read.
type ResizeSettings struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Mode      string  `json:"mode" yaml:"mode" mapstructure:"mode"`
	Algorithm string  `json:"algorithm" yaml:"algorithm" mapstructure:"algorithm"`
	Width     uint32  `json:"width,omitempty" yaml:"width,omitempty" mapstructure:"width"`
	Height    uint32  `json:"height,omitempty" yaml:"height,omitempty" mapstructure:"height"`
	Scale     float32 `json:"scale,omitempty" yaml:"scale,omitempty" mapstructure:"scale"`
	MaxWidth  uint32  `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty" mapstructure:"maxWidth"`
	MaxHeight uint32  `json:"maxHeight,omitempty" yaml:"maxHeight,omitempty" mapstructure:"maxHeight"`
}

// Settings flattens r.
func (r ResizeConfig) Settings() ResizeSettings {
	s := ResizeSettings{Enabled: r.Enabled, Algorithm: string(r.Algorithm)}
	switch m := r.Mode.(type) {
	case FixedWidth:
		s.Mode, s.Width = modeFixedWidth, m.Width
	case FixedHeight:
		s.Mode, s.Height = modeFixedHeight, m.Height
	case Exact:
		s.Mode, s.Width, s.Height = modeExact, m.Width, m.Height
	case Percentage:
		s.Mode, s.Scale = modePercentage, m.Scale
	case FitBox:
		s.Mode, s.MaxWidth, s.MaxHeight = modeFitBox, m.MaxWidth, m.MaxHeight
	case FillBox:
		s.Mode, s.Width, s.Height = modeFillBox, m.Width, m.Height
	}
	return s
}

// Config rebuilds the tagged ResizeConfig from the flat form.
func (s ResizeSettings) Config() (ResizeConfig, error) {
	cfg := ResizeConfig{Enabled: s.Enabled, Algorithm: AlgorithmLanczos3}
	if s.Algorithm != "" {
		alg, err := ParseResizeAlgorithm(s.Algorithm)
		if err != nil {
			return cfg, err
		}
		cfg.Algorithm = alg
	}

	switch strings.ToLower(s.Mode) {
	case strings.ToLower(modeFixedWidth):
		cfg.Mode = FixedWidth{Width: s.Width}
	case strings.ToLower(modeFixedHeight):
		cfg.Mode = FixedHeight{Height: s.Height}
	case modeExact:
		cfg.Mode = Exact{Width: s.Width, Height: s.Height}
	case modePercentage, "":
		scale := s.Scale
		if s.Mode == "" && scale == 0 {
			scale = 100
		}
		cfg.Mode = Percentage{Scale: scale}
	case strings.ToLower(modeFitBox):
		cfg.Mode = FitBox{MaxWidth: s.MaxWidth, MaxHeight: s.MaxHeight}
	case strings.ToLower(modeFillBox):
		cfg.Mode = FillBox{Width: s.Width, Height: s.Height}
	default:
		return cfg, fmt.Errorf("unknown resize mode %q", s.Mode)
	}
	return cfg, nil
}

func (r ResizeConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Settings())
}

func (r *ResizeConfig) UnmarshalJSON(data []byte) error {
	var s ResizeSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	*r = cfg
	return nil
}

// ParseResizeSpec parses the command-line resize grammar:
//
//	off | width:W | height:H | exact:WxH | percent:S | fit:WxH | fill:WxH
//
// "off" yields a nil mode and enabled=false.
func ParseResizeSpec(spec string) (ResizeMode, bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") || strings.EqualFold(spec, "none") {
		return nil, false, nil
	}

	kind, arg, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, false, fmt.Errorf("resize spec %q: expected <mode>:<value>", spec)
	}

	switch strings.ToLower(kind) {
	case "width", "w":
		v, err := parseDimension(arg)
		if err != nil {
			return nil, false, fmt.Errorf("resize spec %q: %w", spec, err)
		}
		return FixedWidth{Width: v}, true, nil
	case "height", "h":
		v, err := parseDimension(arg)
		if err != nil {
			return nil, false, fmt.Errorf("resize spec %q: %w", spec, err)
		}
		return FixedHeight{Height: v}, true, nil
	case "percent", "percentage", "scale":
		v, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 32)
		if err != nil || v <= 0 {
			return nil, false, fmt.Errorf("resize spec %q: invalid scale", spec)
		}
		return Percentage{Scale: float32(v)}, true, nil
	case "exact", "fit", "fill":
		w, h, err := parseBox(arg)
		if err != nil {
			return nil, false, fmt.Errorf("resize spec %q: %w", spec, err)
		}
		switch strings.ToLower(kind) {
		case "exact":
			return Exact{Width: w, Height: h}, true, nil
		case "fit":
			return FitBox{MaxWidth: w, MaxHeight: h}, true, nil
		default:
			return FillBox{Width: w, Height: h}, true, nil
		}
	default:
		return nil, false, fmt.Errorf("resize spec %q: unknown mode %q", spec, kind)
	}
}

func parseBox(arg string) (uint32, uint32, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(arg), "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WxH, got %q", arg)
	}
	w, err := parseDimension(ws)
	if err != nil {
		return 0, 0, err
	}
	h, err := parseDimension(hs)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func parseDimension(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return uint32(v), nil
}
