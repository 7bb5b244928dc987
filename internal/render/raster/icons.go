package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/osmrender/internal/cache"
)

// ErrIconNotFound is returned when no search directory holds an icon.
var ErrIconNotFound = errors.New("icon not found")

// IconLoader resolves icon-image names to decoded PNG images. A name is
// tried as given first, then under each search directory. Decoded images
// are kept in an LRU bounded by their pixel memory.
type IconLoader struct {
	dirs  []string
	cache *cache.LRU[image.Image]
}

// NewIconLoader creates a loader searching dirs. maxBytes bounds the cache
// (0 = unbounded).
func NewIconLoader(maxBytes int64, dirs ...string) *IconLoader {
	return &IconLoader{
		dirs:  dirs,
		cache: cache.New[image.Image](maxBytes, imageSize),
	}
}

func imageSize(img image.Image) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}

// LoadImage implements paint.ImageLoader.
func (l *IconLoader) LoadImage(name string) (image.Image, error) {
	return l.cache.Get(name, func() (image.Image, error) {
		file, err := l.find(name)
		if err != nil {
			return nil, err
		}
		return decodePNG(file)
	})
}

// Stats returns the cache counters.
func (l *IconLoader) Stats() cache.Stats {
	return l.cache.Stats()
}

func (l *IconLoader) find(name string) (string, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		for _, dir := range l.dirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrIconNotFound, name)
}

func decodePNG(file string) (image.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open icon: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %s: %w", file, err)
	}
	return img, nil
}
