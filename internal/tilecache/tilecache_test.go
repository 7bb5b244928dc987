package tilecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/beetlebugorg/osmrender/internal/metrics"
)

func counting(calls *int32) RenderFunc {
	return func(ctx context.Context, key maptile.Tile) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte{byte(key.Z), byte(key.X), byte(key.Y)}, nil
	}
}

func TestGetMemory(t *testing.T) {
	m := metrics.New()
	c := New(Options{MaxBytes: 1024, Metrics: m})
	key := maptile.New(3, 4, 5)

	var calls int32
	for i := 0; i < 3; i++ {
		data, err := c.Get(context.Background(), key, counting(&calls))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(data) != 3 || data[0] != 5 || data[1] != 3 || data[2] != 4 {
			t.Errorf("Expected [5 3 4], got %v", data)
		}
	}
	if calls != 1 {
		t.Errorf("Expected 1 render, got %d", calls)
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues(levelMemory)); got != 2 {
		t.Errorf("Expected 2 memory hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses.WithLabelValues(levelMemory)); got != 1 {
		t.Errorf("Expected 1 memory miss, got %v", got)
	}
}

func TestGetConcurrentRendersOnce(t *testing.T) {
	c := New(Options{})
	key := maptile.New(1, 1, 1)

	var calls int32
	release := make(chan struct{})
	slow := func(ctx context.Context, k maptile.Tile) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("tile"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Get(context.Background(), key, slow); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("Expected 1 render, got %d", calls)
	}
}

func TestGetSharedRenderSurvivesCancel(t *testing.T) {
	c := New(Options{})
	key := maptile.New(2, 1, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	render := func(ctx context.Context, k maptile.Tile) ([]byte, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return []byte("tile"), nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, key, render)
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		data, err := c.Get(context.Background(), key, render)
		if err == nil && string(data) != "tile" {
			err = errors.New("unexpected tile data " + string(data))
		}
		second <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-second; err != nil {
		t.Errorf("Expected waiting caller to get the tile, got %v", err)
	}
	if err := <-first; err != nil {
		t.Errorf("Expected cancelled caller to get the shared result, got %v", err)
	}
	if c.Stats().Entries != 1 {
		t.Errorf("Expected 1 cached entry, got %d", c.Stats().Entries)
	}
}

func TestGetRenderError(t *testing.T) {
	c := New(Options{})
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), maptile.New(0, 0, 0), func(context.Context, maptile.Tile) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped boom, got %v", err)
	}
	if c.Stats().Entries != 0 {
		t.Errorf("Expected failed render to stay uncached, got %d entries", c.Stats().Entries)
	}
}

func TestRedisUnavailable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rc.Close()

	c := New(Options{Redis: rc, TTL: time.Minute, Logger: zap.New(core).Sugar()})

	var calls int32
	data, err := c.Get(context.Background(), maptile.New(2, 1, 3), counting(&calls))
	if err != nil {
		t.Fatalf("Expected render despite redis failure, got %v", err)
	}
	if len(data) != 3 {
		t.Errorf("Expected 3 bytes, got %d", len(data))
	}
	if logs.Len() != 2 {
		t.Errorf("Expected get and set warnings, got %d entries", logs.Len())
	}
}

func TestKey(t *testing.T) {
	c := New(Options{Prefix: "city"})
	if got := c.Key(maptile.New(8185, 5448, 14)); got != "city:tile:14/8185/5448" {
		t.Errorf("Expected city:tile:14/8185/5448, got %s", got)
	}
}

func TestInvalidateMemory(t *testing.T) {
	c := New(Options{})
	var calls int32
	key := maptile.New(0, 0, 1)

	c.Get(context.Background(), key, counting(&calls))
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	c.Get(context.Background(), key, counting(&calls))

	if calls != 2 {
		t.Errorf("Expected re-render after invalidate, got %d renders", calls)
	}
}
