// Package output stores rendered tiles: as a z/x/y directory tree, in an
// MBTiles database or as single page images.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// Sink receives encoded tiles. Implementations are safe for concurrent
// WriteTile calls.
type Sink interface {
	WriteTile(key maptile.Tile, data []byte) error
	Close() error
}

// DirSink writes tiles to Root/z/x/y.<Ext>.
type DirSink struct {
	Root string
	Ext  string
}

// NewDirSink creates a sink writing PNG tiles under root.
func NewDirSink(root string) *DirSink {
	return &DirSink{Root: root, Ext: "png"}
}

// TilePath returns the file a tile is written to.
func (s *DirSink) TilePath(key maptile.Tile) string {
	return filepath.Join(s.Root,
		strconv.Itoa(int(key.Z)),
		strconv.FormatUint(uint64(key.X), 10),
		fmt.Sprintf("%d.%s", key.Y, s.Ext))
}

func (s *DirSink) WriteTile(key maptile.Tile, data []byte) error {
	path := s.TilePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tile %s: %w", path, err)
	}
	return nil
}

func (s *DirSink) Close() error {
	return nil
}

// ImagePath expands a page image file name for one zoom level. Every '%'
// is replaced by the zoom; a pattern without '%' is used as is, so later
// zoom levels overwrite earlier ones.
func ImagePath(pattern string, zoom int) string {
	return strings.ReplaceAll(pattern, "%", strconv.Itoa(zoom))
}

// WriteImage writes one page image, creating its directory.
func WriteImage(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create image directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write image %s: %w", path, err)
	}
	return nil
}
