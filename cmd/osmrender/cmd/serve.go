package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/osmrender/internal/metrics"
	"github.com/beetlebugorg/osmrender/internal/render/raster"
	"github.com/beetlebugorg/osmrender/internal/server"
	"github.com/beetlebugorg/osmrender/internal/tilecache"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered tiles over HTTP",
	Long: `Serve /{z}/{x}/{y}.png tiles rendered on demand, with a Leaflet preview at /
and prometheus metrics at /metrics.

Tiles are cached in memory (OSMRENDER_CACHE_BYTES) and, when
OSMRENDER_REDIS_ADDR is set, in Redis for OSMRENDER_REDIS_TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd.Flags().Changed("port"))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "P", 8000, "listen port (overrides OSMRENDER_LISTEN_ADDR)")
}

func runServe(ctx context.Context, portSet bool) error {
	if err := checkZoom(); err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	m := metrics.New()
	doc, err := loadStyled(ctx, log, m)
	if err != nil {
		return err
	}

	var rc *redis.Client
	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Warnf("redis %s unavailable, tiles are cached in memory only: %v", cfg.RedisAddr, err)
		}
	}

	addr := cfg.ListenAddr
	if portSet {
		addr = fmt.Sprintf(":%d", port)
	}

	srv := server.New(doc, server.Options{
		Addr:    addr,
		MinZoom: minZoom,
		MaxZoom: maxZoom,
		Images:  raster.NewIconLoader(cfg.CacheBytes, iconDirs()...),
		Cache: tilecache.New(tilecache.Options{
			MaxBytes: cfg.CacheBytes,
			Redis:    rc,
			TTL:      cfg.RedisTTL,
			Metrics:  m,
			Logger:   log,
		}),
		Metrics: m,
		Logger:  log,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
