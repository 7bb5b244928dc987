// Package cmd implements the osmrender command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beetlebugorg/osmrender/internal/config"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/metrics"
	"github.com/beetlebugorg/osmrender/internal/osmdata"
	"github.com/beetlebugorg/osmrender/pkg/osmrender"
)

var (
	rulesPath string
	inputPath string
	verbose   bool
	minZoom   int
	maxZoom   int
)

// cfg is read by the flag defaults of every command's init.
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "osmrender",
	Short: "Render OpenStreetMap extracts with a style ruleset",
	Long: `osmrender draws OpenStreetMap data (.osm or .osm.pbf) using a ruleset that
selects features by tag and describes how to paint them.

It writes slippy-map tiles, MBTiles databases or single page images, or
serves tiles over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "r", "", "ruleset file")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "OSM input file (.osm, .osm.pbf)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", config.Verbose(), "debug logging")
	rootCmd.PersistentFlags().IntVarP(&minZoom, "min-zoom", "m", cfg.MinZoom, "minimum zoom level")
	rootCmd.PersistentFlags().IntVarP(&maxZoom, "max-zoom", "M", cfg.MaxZoom, "maximum zoom level")
	rootCmd.MarkPersistentFlagRequired("rules")
	rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.LogFormat)
}

func checkZoom() error {
	if minZoom < 0 || maxZoom > 24 || minZoom > maxZoom {
		return fmt.Errorf("invalid zoom range %d..%d", minZoom, maxZoom)
	}
	return nil
}

// iconDirs lists the icon search path: the ruleset's directory first, then
// OSMRENDER_ICON_PATH.
func iconDirs() []string {
	return append([]string{filepath.Dir(rulesPath)}, cfg.IconPaths...)
}

// loadStyled reads the input and the ruleset and applies the ruleset.
func loadStyled(ctx context.Context, log logging.Logger, m *metrics.Collectors) (*osmrender.Document, error) {
	src, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}
	rs, err := osmrender.ParseRuleset(string(src), osmrender.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	doc, stats, err := osmdata.Load(ctx, inputPath, log)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %s: %d points, %d lines, %d areas, %d relations (%d skipped)",
		inputPath, stats.Points, stats.Lines, stats.Areas, stats.Relations, stats.Skipped)

	rs.Apply(doc)
	m.Instructions.Add(float64(len(doc.Instructions)))
	log.Infof("ruleset produced %d draw instructions", len(doc.Instructions))
	return doc, nil
}
