package osmrender

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const parkRules = `features
	areas
		park: leisure=park
rules
	target: park
		define
			fill-color: #00aa00
		draw: fill
`

const parkOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.5000" lon="-0.1300"/>
  <node id="2" lat="51.5000" lon="-0.1250"/>
  <node id="3" lat="51.5030" lon="-0.1250"/>
  <node id="4" lat="51.5030" lon="-0.1300"/>
  <way id="10">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><nd ref="1"/>
    <tag k="leisure" v="park"/>
  </way>
</osm>
`

func loadPark(t *testing.T) *Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "park.osm")
	if err := os.WriteFile(path, []byte(parkOSM), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	return doc
}

func TestParseRulesetSyntaxError(t *testing.T) {
	_, err := ParseRuleset("bogus\n", Options{})
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("Expected *SyntaxError, got %v", err)
	}
}

func TestRenderTiled(t *testing.T) {
	doc := loadPark(t)
	rs, err := ParseRuleset(parkRules, Options{})
	if err != nil {
		t.Fatalf("ParseRuleset failed: %v", err)
	}
	rs.Apply(doc)
	if len(doc.Instructions) == 0 {
		t.Fatal("Expected draw instructions")
	}

	r := NewRenderer(doc.Bounds(), 16, RendererOptions{})
	tiles, err := r.Render(context.Background(), doc, RenderOptions{Tiled: true, Workers: 2})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(tiles) == 0 {
		t.Fatal("Expected at least one tile")
	}
	for i, tile := range tiles {
		if tile.Empty {
			t.Errorf("Expected only non-empty tiles, tile %d/%d is empty", tile.X, tile.Y)
		}
		if tile.Z != 16 {
			t.Errorf("Expected zoom 16, got %d", tile.Z)
		}
		if i > 0 && tiles[i-1].X > tile.X {
			t.Errorf("Expected tiles ordered by x")
		}
	}

	data, err := tiles[0].PNG()
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Error("Expected PNG signature")
	}
}

func TestRenderWholePage(t *testing.T) {
	doc := loadPark(t)
	rs, err := ParseRuleset(parkRules, Options{})
	if err != nil {
		t.Fatalf("ParseRuleset failed: %v", err)
	}
	rs.Apply(doc)

	r := NewRenderer(doc.Bounds(), 15, RendererOptions{})
	tiles, err := r.Render(context.Background(), doc, RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(tiles))
	}
	b := tiles[0].Image().Bounds()
	want := 256 * (r.internal.MaxTileX - r.internal.MinTileX + 1)
	if b.Dx() != want {
		t.Errorf("Expected width %d, got %d", want, b.Dx())
	}
}

func TestLoadDocumentUnknownFormat(t *testing.T) {
	if _, err := LoadDocument(context.Background(), "map.geojson", nil); err == nil {
		t.Error("Expected error for unknown format")
	}
}
