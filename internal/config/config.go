// Package config provides configuration management for kgview.
//
// The config file holds presentation and runtime settings; the graph itself
// lives in the database and snapshot files.
//
// Config file locations (priority order):
//  1. $KGVIEW_CONFIG
//  2. ./kgview.yaml
//  3. $XDG_CONFIG_HOME/kgview/config.yaml
//  4. ~/.config/kgview/config.yaml
//  5. /etc/kgview/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"kgview/internal/domain"
	"kgview/internal/engine"
	"kgview/internal/physics"
	"kgview/internal/render"
	"kgview/internal/viewport"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. Keys missing from the file
// keep their default values.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// Save writes config to path, or to DefaultConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	p := physics.DefaultParams()
	v := viewport.DefaultLimits()
	r := render.DefaultOptions()
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Addr:            ":8080",
			StreamFPS:       15,
			CORSOrigin:      "*",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{Path: "./kgview.db"},
		Snapshot: SnapshotConfig{
			Debounce:       Duration(500 * time.Millisecond),
			CommitInterval: Duration(5 * time.Second),
		},
		Layout: LayoutConfig{
			FPS:        60,
			Seed:       1,
			Repulsion:  p.Repulsion,
			Attraction: p.Attraction,
			Centering:  p.Centering,
			Damping:    p.Damping,
			Epsilon:    p.Epsilon,
			MaxSpeed:   p.MaxSpeed,
			Bounds: BoundsConfig{
				MinX: p.Bounds.Min.X,
				MinY: p.Bounds.Min.Y,
				MaxX: p.Bounds.Max.X,
				MaxY: p.Bounds.Max.Y,
			},
		},
		Viewport: ViewportConfig{
			MinScale: v.MinScale,
			MaxScale: v.MaxScale,
			ZoomIn:   v.ZoomIn,
			ZoomOut:  v.ZoomOut,
		},
		Render: RenderConfig{
			Width:       r.Width,
			Height:      r.Height,
			NodeRadius:  r.NodeRadius,
			HitSlop:     1,
			GridSpacing: r.GridSpacing,
			FontSize:    r.FontSize,
			Legend:      r.Legend,
			ShowLabels:  true,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.StreamFPS <= 0 {
		c.Server.StreamFPS = d.Server.StreamFPS
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Snapshot.Debounce <= 0 {
		c.Snapshot.Debounce = d.Snapshot.Debounce
	}
	if c.Layout.FPS <= 0 {
		c.Layout.FPS = d.Layout.FPS
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports settings that cannot be repaired silently
func (c *Config) Validate() error {
	var errs []error
	if d := c.Layout.Damping; d <= 0 || d >= 1 {
		errs = append(errs, fmt.Errorf("layout.damping must be in (0,1), got %v", d))
	}
	if c.Layout.Repulsion < 0 || c.Layout.Attraction < 0 || c.Layout.Centering < 0 {
		errs = append(errs, errors.New("layout force constants must not be negative"))
	}
	b := c.Layout.Bounds
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		errs = append(errs, fmt.Errorf("layout.bounds is empty: %+v", b))
	}
	if v := c.Viewport; v.MinScale <= 0 || v.MaxScale < v.MinScale {
		errs = append(errs, fmt.Errorf("viewport scale range [%v, %v] is invalid", v.MinScale, v.MaxScale))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size %dx%d is invalid", c.Render.Width, c.Render.Height))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// EngineConfig maps the file settings onto the engine
func (c *Config) EngineConfig() engine.Config {
	bounds := domain.Rect{
		Min: domain.Vec{X: c.Layout.Bounds.MinX, Y: c.Layout.Bounds.MinY},
		Max: domain.Vec{X: c.Layout.Bounds.MaxX, Y: c.Layout.Bounds.MaxY},
	}
	return engine.Config{
		Physics: physics.Params{
			Repulsion:  c.Layout.Repulsion,
			Attraction: c.Layout.Attraction,
			Centering:  c.Layout.Centering,
			Damping:    c.Layout.Damping,
			Epsilon:    c.Layout.Epsilon,
			MaxSpeed:   c.Layout.MaxSpeed,
			Bounds:     bounds,
			Center:     bounds.Center(),
		},
		Viewport: viewport.Limits{
			MinScale: c.Viewport.MinScale,
			MaxScale: c.Viewport.MaxScale,
			ZoomIn:   c.Viewport.ZoomIn,
			ZoomOut:  c.Viewport.ZoomOut,
		},
		Render: render.Options{
			Width:       c.Render.Width,
			Height:      c.Render.Height,
			NodeRadius:  c.Render.NodeRadius,
			GridSpacing: c.Render.GridSpacing,
			FontSize:    c.Render.FontSize,
			Legend:      c.Render.Legend,
		},
		HitSlop:    c.Render.HitSlop,
		Seed:       c.Layout.Seed,
		MaxPending: engine.DefaultMaxPending,
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("addr=%s db=%s snapshot=%q watch=%v fps=%d stream_fps=%d",
		c.Server.Addr, c.Database.Path, c.Snapshot.Path, c.Snapshot.Watch,
		c.Layout.FPS, c.Server.StreamFPS)
}
