// Command kgview serves and renders force-directed knowledge graph layouts.
package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgview/internal/codec"
	"kgview/internal/config"
	"kgview/internal/domain"
	"kgview/internal/logging"
)

//go:embed web/*
var webFS embed.FS

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "kgview",
		Short: "Force-directed knowledge graph layout and visualization",
		Long: `kgview lays out knowledge graphs with a force-directed simulation and
renders them as PNG or SVG.

The serve command runs the interactive console: a live layout streamed to the
browser over a websocket, with a REST API for editing the graph. The render
and stats commands work headless on a snapshot file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: search $KGVIEW_CONFIG, ./kgview.yaml, ~/.config/kgview)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newServeCmd(g), newRenderCmd(g), newStatsCmd(g), newConfigCmd(g))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config, or searches the
// default locations
func (g *globalFlags) loadConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if g.configPath != "" {
		cfg, path, err = config.LoadFromPath(g.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, path, nil
}

func (g *globalFlags) logger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// readSnapshot parses a snapshot file, choosing the codec by extension
func readSnapshot(path string) (*domain.Snapshot, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := codec.Lookup(format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w (supported: %s)", path, err, strings.Join(codec.Formats(), ", "))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
