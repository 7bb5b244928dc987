package osmdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="51.50" lon="-0.13"/>
  <node id="2" lat="51.50" lon="-0.12"/>
  <node id="3" lat="51.51" lon="-0.12"/>
  <node id="4" lat="51.51" lon="-0.13">
    <tag k="shop" v="bakery"/>
    <tag k="name" v="Crumbs"/>
  </node>
  <node id="5" lat="51.502" lon="-0.128"/>
  <node id="6" lat="51.502" lon="-0.122"/>
  <node id="7" lat="51.508" lon="-0.122"/>
  <node id="8" lat="95.0" lon="0"/>
  <way id="10">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><nd ref="1"/>
    <tag k="landuse" v="grass"/>
  </way>
  <way id="11">
    <nd ref="5"/><nd ref="6"/><nd ref="7"/><nd ref="5"/>
  </way>
  <way id="12">
    <nd ref="1"/><nd ref="99"/><nd ref="3"/>
    <tag k="highway" v="footway"/>
  </way>
  <relation id="20">
    <member type="way" ref="10" role="outer"/>
    <member type="way" ref="11" role="inner"/>
    <member type="way" ref="404" role="inner"/>
    <tag k="type" v="multipolygon"/>
    <tag k="leisure" v="park"/>
  </relation>
  <relation id="21">
    <member type="node" ref="4" role=""/>
    <tag k="type" v="site"/>
  </relation>
</osm>`

func TestReadXML(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	doc, stats, err := Read(context.Background(), strings.NewReader(sample), FormatXML, zap.New(core).Sugar())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if stats.Points != 7 {
		t.Errorf("Expected 7 points, got %d", stats.Points)
	}
	if stats.Lines != 3 {
		t.Errorf("Expected 3 lines, got %d", stats.Lines)
	}
	if stats.Areas != 3 {
		t.Errorf("Expected 3 areas, got %d", stats.Areas)
	}
	if stats.Relations != 2 {
		t.Errorf("Expected 2 relations, got %d", stats.Relations)
	}

	// invalid coordinate, missing node, missing way
	if logs.Len() != 3 {
		t.Errorf("Expected 3 warnings, got %d", logs.Len())
	}
	if stats.Skipped != 3 {
		t.Errorf("Expected 3 skipped, got %d", stats.Skipped)
	}

	if doc.HasPoint(8) {
		t.Error("Expected out-of-range node to be dropped")
	}
	p, ok := doc.Point(4)
	if !ok || p.Tags()["shop"] != "bakery" {
		t.Errorf("Expected tagged point 4, got %v", p)
	}

	footway, ok := doc.Line(12)
	if !ok || len(footway.Nodes) != 2 {
		t.Errorf("Expected footway with the missing node skipped")
	}
	if doc.HasArea(12) {
		t.Error("Expected open way not to be an area")
	}

	park, ok := doc.Area(20)
	if !ok {
		t.Fatal("Expected multipolygon area 20")
	}
	if len(park.Outer) != 1 || len(park.Inner) != 1 {
		t.Errorf("Expected 1 outer and 1 inner ring, got %d and %d", len(park.Outer), len(park.Inner))
	}
	if park.Tags()["leisure"] != "park" {
		t.Errorf("Expected relation tags on the area, got %v", park.Tags())
	}
	if !doc.HasRelation(21) {
		t.Error("Expected relation 21")
	}
	if doc.HasArea(21) {
		t.Error("Expected non-multipolygon relation not to be an area")
	}
}

func TestReadOrder(t *testing.T) {
	doc, _, err := Read(context.Background(), strings.NewReader(sample), FormatXML, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var ids []int64
	for _, p := range doc.Points() {
		ids = append(ids, p.ID())
	}
	want := []int64{1, 2, 3, 4, 5, 6, 7}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, ids)
			break
		}
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"map.osm", FormatXML, false},
		{"MAP.OSM", FormatXML, false},
		{"extract.osm.pbf", FormatPBF, false},
		{"extract.pbf", FormatPBF, false},
		{"notes.txt", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatOf(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("Expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatOf failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.osm")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, stats, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if stats.Points != len(doc.Points()) {
		t.Errorf("Expected %d points in document, got %d", stats.Points, len(doc.Points()))
	}

	if _, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.osm"), nil); err == nil {
		t.Error("Expected error for missing file")
	}
}

const splitRing = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="51.50" lon="-0.13"/>
  <node id="2" lat="51.50" lon="-0.12"/>
  <node id="3" lat="51.51" lon="-0.12"/>
  <node id="4" lat="51.51" lon="-0.13"/>
  <way id="30">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
  </way>
  <way id="31">
    <nd ref="1"/><nd ref="4"/><nd ref="3"/>
  </way>
  <relation id="40">
    <member type="way" ref="30" role="outer"/>
    <member type="way" ref="31" role="outer"/>
    <tag k="type" v="multipolygon"/>
    <tag k="natural" v="water"/>
  </relation>
</osm>`

func TestReadMultipolygonFromOpenWays(t *testing.T) {
	doc, _, err := Read(context.Background(), strings.NewReader(splitRing), FormatXML, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	lake, ok := doc.Area(40)
	if !ok {
		t.Fatal("Expected multipolygon area 40")
	}
	if len(lake.Outer) != 1 {
		t.Fatalf("Expected the two ways joined into 1 outer ring, got %d", len(lake.Outer))
	}
	ring := lake.Outer[0]
	if first, last := ring[0].ID(), ring[len(ring)-1].ID(); first != last {
		t.Errorf("Expected a closed ring, got %d..%d", first, last)
	}
	seen := map[int64]bool{}
	for _, p := range ring {
		seen[p.ID()] = true
	}
	for _, id := range []int64{1, 2, 3, 4} {
		if !seen[id] {
			t.Errorf("Expected node %d on the ring", id)
		}
	}
}
