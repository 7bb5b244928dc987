package output

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/paulmach/orb/maptile"

	"github.com/beetlebugorg/osmrender/internal/geo"
)

// Metadata is the MBTiles metadata table content.
type Metadata struct {
	Name    string
	Format  string
	Bounds  geo.Bounds
	MinZoom int
	MaxZoom int
}

func (m Metadata) rows() map[string]string {
	lat, lon := m.Bounds.Center()
	format := m.Format
	if format == "" {
		format = "png"
	}
	return map[string]string{
		"name":    m.Name,
		"format":  format,
		"type":    "baselayer",
		"version": "1.0",
		"bounds":  fmt.Sprintf("%f,%f,%f,%f", m.Bounds.MinLon, m.Bounds.MinLat, m.Bounds.MaxLon, m.Bounds.MaxLat),
		"center":  fmt.Sprintf("%f,%f,%d", lon, lat, m.MinZoom),
		"minzoom": fmt.Sprint(m.MinZoom),
		"maxzoom": fmt.Sprint(m.MaxZoom),
	}
}

// MBTiles writes tiles into an MBTiles SQLite database. Rows use the TMS
// scheme, so y is flipped on write.
type MBTiles struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenMBTiles creates or opens the database at path and writes meta.
func OpenMBTiles(path string, meta Metadata) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open mbtiles: %w", err)
	}

	stmts := []string{
		"PRAGMA synchronous=0",
		"PRAGMA journal_mode=DELETE",
		"CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)",
		"CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT)",
		"CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name)",
		"CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row)",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare mbtiles: %w", err)
		}
	}

	m := &MBTiles{db: db}
	if err := m.SetMetadata(meta); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// SetMetadata replaces the metadata rows.
func (m *MBTiles) SetMetadata(meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := meta.rows()
	names := make([]string, 0, len(rows))
	for k := range rows {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if _, err := m.db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", k, rows[k]); err != nil {
			return fmt.Errorf("write metadata %s: %w", k, err)
		}
	}
	return nil
}

// TMSRow converts an XYZ tile row to the TMS row stored in MBTiles.
func TMSRow(key maptile.Tile) uint32 {
	return uint32(1)<<uint(key.Z) - 1 - key.Y
}

func (m *MBTiles) WriteTile(key maptile.Tile, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.Exec(
		"INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		int(key.Z), int(key.X), int(TMSRow(key)), data)
	if err != nil {
		return fmt.Errorf("write tile %d/%d/%d: %w", key.Z, key.X, key.Y, err)
	}
	return nil
}

// ReadTile returns the stored bytes of an XYZ tile.
func (m *MBTiles) ReadTile(key maptile.Tile) ([]byte, error) {
	var data []byte
	err := m.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		int(key.Z), int(key.X), int(TMSRow(key))).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("read tile %d/%d/%d: %w", key.Z, key.X, key.Y, err)
	}
	return data, nil
}

func (m *MBTiles) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.Exec("ANALYZE"); err != nil {
		m.db.Close()
		return fmt.Errorf("analyze mbtiles: %w", err)
	}
	return m.db.Close()
}
