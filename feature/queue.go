package feature

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/terminus-geospatial/timage"
	"golang.org/x/sync/errgroup"
)

// orderedWriter appends per-tile results to the global list in ascending
// task id, regardless of the order tasks finish in. Results arriving early
// stage until the next expected id is ready.
type orderedWriter struct {
	mu     sync.Mutex
	next   int
	staged map[int][]InterestPoint
	out    *[]InterestPoint
}

func newOrderedWriter(out *[]InterestPoint) *orderedWriter {
	return &orderedWriter{staged: map[int][]InterestPoint{}, out: out}
}

// add stages the result for task id and drains every consecutive result
// starting at the next expected id.
func (w *orderedWriter) add(id int, points []InterestPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.staged[id] = points
	for {
		pts, ok := w.staged[w.next]
		if !ok {
			return
		}
		delete(w.staged, w.next)
		*w.out = append(*w.out, pts...)
		w.next++
	}
}

// tileBudget computes the per-tile keypoint budget: the tile's share of the
// total by area, rounded up and clamped to [1, total]. A zero total lets
// the detector use its own default.
func tileBudget(tile timage.Rect, tileW, tileH, total int) int {
	if total <= 0 {
		return 0
	}
	fraction := float64(tile.Area()) / float64(tileW*tileH)
	n := int(math.Ceil(fraction * float64(total)))
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	return n
}

// DetectOption configures DetectInterestPoints.
type DetectOption func(*detectOptions)

type detectOptions struct {
	workers  int
	tileW    int
	tileH    int
}

// WithWorkers sets the number of concurrent detection tasks.
func WithWorkers(n int) DetectOption {
	return func(o *detectOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTileSize overrides the detector's preferred tile size. The override
// only takes effect when the detector's config allows custom tile sizes.
func WithTileSize(w, h int) DetectOption {
	return func(o *detectOptions) {
		o.tileW, o.tileH = w, h
	}
}

// DetectInterestPoints subdivides the view into detector-sized tiles,
// detects keypoints per tile with an area-proportional budget, translates
// them into view coordinates, and returns the concatenation of per-tile
// results in ascending tile order. The ordering holds regardless of how the
// tile tasks interleave.
func DetectInterestPoints[P any](img timage.Image[P], det Detector, opts ...DetectOption) ([]InterestPoint, error) {
	cfg := det.Config()
	o := detectOptions{workers: 4}
	for _, opt := range opts {
		opt(&o)
	}
	tileW, tileH := cfg.TileSize()
	if o.tileW > 0 && o.tileH > 0 && cfg.AllowCustomTileSize() {
		tileW, tileH = o.tileW, o.tileH
	}
	if tileW <= 0 || tileH <= 0 {
		return nil, fmt.Errorf("%w: detector tile size %dx%d", timage.ErrInvalidConfig, tileW, tileH)
	}

	tiles := timage.FullBBox(img).Subdivide(tileW, tileH)
	total := cfg.MaxFeatures()
	var result []InterestPoint
	writer := newOrderedWriter(&result)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, tile := range tiles {
		i, tile := i, tile
		g.Go(func() error {
			budget := tileBudget(tile, tileW, tileH, total)
			timage.Logger().Debug("locating interest points",
				slog.Int("tile", i+1), slog.Int("tiles", len(tiles)),
				slog.Int("budget", budget))
			points, err := DetectImage[P](det, timage.CropBBox(img, tile), true, budget)
			if err != nil {
				return fmt.Errorf("detecting in tile %d %+v: %w", i, tile, err)
			}
			for j := range points {
				points[j].Translate(tile.MinX, tile.MinY)
			}
			writer.add(i, points)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// DetectWithFactory resolves a detector for cfg from the factory and runs
// tiled detection over the view.
func DetectWithFactory[P any](img timage.Image[P], cfg Config, factory *Factory, opts ...DetectOption) ([]InterestPoint, error) {
	det, err := factory.CreateDetector(cfg)
	if err != nil {
		return nil, err
	}
	return DetectInterestPoints[P](img, det, opts...)
}
