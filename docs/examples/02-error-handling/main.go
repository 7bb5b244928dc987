package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/beetlebugorg/osmrender/pkg/osmrender"
)

func loadRuleset(path string, logger osmrender.Logger) (*osmrender.Ruleset, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("ruleset not found: %s", path)
		}
		return nil, err
	}

	rs, err := osmrender.ParseRuleset(string(src), osmrender.Options{Logger: logger})
	var syn *osmrender.SyntaxError
	if errors.As(err, &syn) {
		// Point at the offending line
		return nil, fmt.Errorf("%s:%d: %s", path, syn.Line, syn.Msg)
	}
	return rs, err
}

func main() {
	// Missing members, unknown shapes and missing icons are logged, not returned
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	rs, err := loadRuleset("style.mrules", sugar)
	if err != nil {
		log.Fatal(err)
	}

	doc, err := osmrender.LoadDocument(context.Background(), "city.osm", sugar)
	if err != nil {
		log.Fatal(err)
	}
	rs.Apply(doc)

	if len(doc.Instructions) == 0 {
		log.Printf("Warning: ruleset matched nothing")
	}

	bounds := doc.Bounds()
	if bounds.MinLon == bounds.MaxLon || bounds.MinLat == bounds.MaxLat {
		log.Printf("Warning: document has degenerate bounds %s", bounds)
	}
}
