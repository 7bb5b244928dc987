package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/osmrender/pkg/osmrender"
)

func main() {
	ctx := context.Background()

	// Load the map extract
	doc, err := osmrender.LoadDocument(ctx, "city.osm.pbf", nil)
	if err != nil {
		log.Fatal(err)
	}

	// Parse and apply the ruleset
	src, err := os.ReadFile("style.mrules")
	if err != nil {
		log.Fatal(err)
	}
	rs, err := osmrender.ParseRuleset(string(src), osmrender.Options{})
	if err != nil {
		log.Fatal(err)
	}
	rs.Apply(doc)
	fmt.Printf("Draw instructions: %d\n", len(doc.Instructions))

	// Render zoom 15 as tiles
	r := osmrender.NewRenderer(doc.Bounds(), 15, osmrender.RendererOptions{IconDirs: []string{"."}})
	tiles, err := r.Render(ctx, doc, osmrender.RenderOptions{Tiled: true})
	if err != nil {
		log.Fatal(err)
	}

	for _, t := range tiles {
		data, err := t.PNG()
		if err != nil {
			log.Fatal(err)
		}
		path := filepath.Join("tiles", fmt.Sprint(t.Z), fmt.Sprint(t.X), fmt.Sprintf("%d.png", t.Y))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("Tiles written: %d of %d\n", len(tiles), r.TileCount())
}
