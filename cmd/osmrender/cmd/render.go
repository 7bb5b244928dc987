package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/metrics"
	"github.com/beetlebugorg/osmrender/internal/output"
	"github.com/beetlebugorg/osmrender/pkg/osmrender"
)

const (
	typePNGTiles = "pngtiles"
	typePNG      = "png"
	typeMBTiles  = "mbtiles"
)

var (
	outputPath string
	outputType string
	workers    int
	quiet      bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render tiles or page images to disk",
	Long: `Render every zoom level from --min-zoom to --max-zoom.

  pngtiles  writes OUTPUT/z/x/y.png, skipping empty tiles
  mbtiles   writes an MBTiles database at OUTPUT
  png       writes one image per zoom; a '%' in OUTPUT is replaced by the zoom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runRender(ctx)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory, database or image file")
	renderCmd.Flags().StringVarP(&outputType, "type", "t", typePNGTiles, "output type: pngtiles, mbtiles or png")
	renderCmd.Flags().IntVarP(&workers, "workers", "w", cfg.Workers, "concurrent tile renders")
	renderCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress display")
	renderCmd.MarkFlagRequired("output")
}

func runRender(ctx context.Context) error {
	if err := checkZoom(); err != nil {
		return err
	}
	switch outputType {
	case typePNGTiles, typePNG, typeMBTiles:
	default:
		return fmt.Errorf("unknown output type %q", outputType)
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

	sink, err := openSink(doc)
	if err != nil {
		return err
	}

	pw := newProgress(maxZoom - minZoom + 1)
	if pw != nil {
		go pw.Render()
	}

	start := time.Now()
	for z := minZoom; z <= maxZoom; z++ {
		if err := renderZoom(ctx, doc, z, sink, pw, m, log); err != nil {
			stopProgress(pw)
			if sink != nil {
				sink.Close()
			}
			return err
		}
	}
	stopProgress(pw)

	if sink != nil {
		if err := sink.Close(); err != nil {
			return err
		}
	}
	log.Infof("rendered zoom %d..%d in %s", minZoom, maxZoom, time.Since(start).Round(time.Millisecond))
	return nil
}

func openSink(doc *osmrender.Document) (output.Sink, error) {
	switch outputType {
	case typePNGTiles:
		return output.NewDirSink(outputPath), nil
	case typeMBTiles:
		db, err := output.OpenMBTiles(outputPath, output.Metadata{
			Name:    strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)),
			Bounds:  doc.Bounds(),
			MinZoom: minZoom,
			MaxZoom: maxZoom,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, nil
}

func renderZoom(ctx context.Context, doc *osmrender.Document, z int, sink output.Sink, pw progress.Writer, m *metrics.Collectors, log logging.Logger) error {
	r := osmrender.NewRenderer(doc.Bounds(), z, osmrender.RendererOptions{
		IconDirs:       iconDirs(),
		IconCacheBytes: cfg.CacheBytes,
		Logger:         log,
	})
	tiled := outputType != typePNG

	total := 1
	if tiled {
		total = r.TileCount()
	}
	tracker := &progress.Tracker{
		Message: fmt.Sprintf("Zoom %d", z),
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	if pw != nil {
		pw.AppendTracker(tracker)
	}

	tiles, err := r.Render(ctx, doc, osmrender.RenderOptions{
		Tiled:    tiled,
		Workers:  workers,
		Progress: func(done, _ int) { tracker.SetValue(int64(done)) },
		OnTile: func(t *osmrender.Tile, elapsed time.Duration) {
			m.ObserveTile(t.Empty, elapsed)
		},
	})
	if err != nil {
		tracker.MarkAsErrored()
		return fmt.Errorf("zoom %d: %w", z, err)
	}

	for _, t := range tiles {
		data, err := t.PNG()
		if err != nil {
			return fmt.Errorf("encode tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
		}
		if !tiled {
			path := output.ImagePath(outputPath, z)
			if err := output.WriteImage(path, data); err != nil {
				return err
			}
			log.Debugf("wrote %s", path)
			continue
		}
		if err := sink.WriteTile(maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)), data); err != nil {
			return err
		}
	}
	tracker.MarkAsDone()
	log.Debugf("zoom %d: %d of %d tiles written", z, len(tiles), total)
	return nil
}

func newProgress(zooms int) progress.Writer {
	if quiet || verbose {
		return nil
	}
	pw := progress.NewWriter()
	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetMessageLength(12)
	pw.SetNumTrackersExpected(zooms)
	pw.SetStyle(progress.StyleDefault)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Value = true
	return pw
}

func stopProgress(pw progress.Writer) {
	if pw == nil {
		return
	}
	// Let the renderer draw the final state before stopping it.
	time.Sleep(150 * time.Millisecond)
	pw.Stop()
	for pw.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
