package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Layout   LayoutConfig   `yaml:"layout"`
	Viewport ViewportConfig `yaml:"viewport"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	StreamFPS       int      `yaml:"stream_fps"` // websocket frame rate ceiling
	CORSOrigin      string   `yaml:"cors_origin"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SnapshotConfig points at a graph file used to seed an empty store and,
// when Watch is set, reloaded on change.
type SnapshotConfig struct {
	Path           string   `yaml:"path,omitempty"`
	Watch          bool     `yaml:"watch"`
	Debounce       Duration `yaml:"debounce"`
	CommitInterval Duration `yaml:"commit_interval"` // periodic position save, 0 disables
}

// LayoutConfig holds the force model and animation settings
type LayoutConfig struct {
	FPS        int          `yaml:"fps"`
	Paused     bool         `yaml:"paused"`
	Seed       uint64       `yaml:"seed"`
	Repulsion  float64      `yaml:"repulsion"`
	Attraction float64      `yaml:"attraction"`
	Centering  float64      `yaml:"centering"`
	Damping    float64      `yaml:"damping"`
	Epsilon    float64      `yaml:"epsilon"`
	MaxSpeed   float64      `yaml:"max_speed"`
	Bounds     BoundsConfig `yaml:"bounds"`
}

// BoundsConfig is the world bounding box
type BoundsConfig struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// ViewportConfig holds zoom limits and wheel factors
type ViewportConfig struct {
	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`
	ZoomIn   float64 `yaml:"zoom_in"`
	ZoomOut  float64 `yaml:"zoom_out"`
}

// RenderConfig holds frame geometry and decoration
type RenderConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	NodeRadius  float64 `yaml:"node_radius"`
	HitSlop     float64 `yaml:"hit_slop"`
	GridSpacing float64 `yaml:"grid_spacing"`
	FontSize    float64 `yaml:"font_size"`
	Legend      bool    `yaml:"legend"`
	ShowLabels  bool    `yaml:"show_labels"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
