// Package block implements block-based materialization of lazy views: a
// pull-scheduled worker pool over a grid of fixed-size blocks, cache-backed
// block generators, and the BlockRasterizeView that ties them together.
package block

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/terminus-geospatial/timage"
)

// DefaultBlockBytes is the target byte size of one block when no explicit
// block size is configured.
const DefaultBlockBytes = 2 * 1024 * 1024

// DefaultWorkers returns the default worker count for block processing.
func DefaultWorkers() int {
	return max(runtime.NumCPU()/4, 2)
}

// DefaultBlockSize computes a block size for an image of the given shape so
// that a single block holds roughly DefaultBlockBytes. Blocks span the full
// image width; the row count is clamped to [1, rows].
func DefaultBlockSize(cols, rows, planes, bytesPerPixel int) (w, h int) {
	if cols <= 0 || rows <= 0 || planes <= 0 || bytesPerPixel <= 0 {
		return cols, rows
	}
	blockRows := DefaultBlockBytes / (planes * cols * bytesPerPixel)
	if blockRows < 1 {
		blockRows = 1
	} else if blockRows > rows {
		blockRows = rows
	}
	return cols, blockRows
}

// Rasterizer covers a bounding box with a grid of fixed-size blocks and
// dispatches each block to a callback across a pool of workers.
//
// The grid is aligned to multiples of the block size (anchored at the
// round-down of the request's minimum corner) and clipped to the request.
// Blocks are pulled in row-major order; with more than one worker the blocks
// execute concurrently and no completion order is guaranteed.
type Rasterizer struct {
	apply   func(bbox timage.Rect) error
	blockW  int
	blockH  int
	workers int
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithWorkers sets the worker count. Zero or negative selects the default.
func WithWorkers(n int) Option {
	return func(r *Rasterizer) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRasterizer creates a rasterizer calling apply once per block.
func NewRasterizer(apply func(timage.Rect) error, blockW, blockH int, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		apply:   apply,
		blockW:  blockW,
		blockH:  blockH,
		workers: DefaultWorkers(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// cursor tracks the next block to hand out. Shared by all workers and
// guarded by its mutex.
type cursor struct {
	mu    sync.Mutex
	total timage.Rect
	block timage.Rect
	w, h  int
	err   error
}

func newCursor(total timage.Rect, w, h int) *cursor {
	return &cursor{
		total: total,
		block: timage.Rect{
			MinX:   timage.RoundDown(total.MinX, w),
			MinY:   timage.RoundDown(total.MinY, h),
			Width:  w,
			Height: h,
		},
		w: w,
		h: h,
	}
}

// next pops the next block, clipped to the total bbox. ok is false when the
// grid is drained or a prior block failed.
func (c *cursor) next() (bbox timage.Rect, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil || c.block.MinY >= c.total.MaxY() {
		return timage.Rect{}, false
	}
	bbox = c.block.Intersect(c.total)
	c.block.MinX += c.w
	if c.block.MinX >= c.total.MaxX() {
		c.block.MinX = timage.RoundDown(c.total.MinX, c.w)
		c.block.MinY += c.h
	}
	return bbox, true
}

func (c *cursor) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

// Run processes every block covering bbox. The first callback error stops
// the dispatch of further blocks and is returned; blocks already running are
// allowed to finish.
func (r *Rasterizer) Run(bbox timage.Rect) error {
	if bbox.Empty() {
		return nil
	}
	if r.blockW <= 0 || r.blockH <= 0 {
		panic("block: non-positive block size")
	}
	cur := newCursor(bbox, r.blockW, r.blockH)
	timage.Logger().Debug("block rasterize",
		slog.Int("width", bbox.Width), slog.Int("height", bbox.Height),
		slog.Int("block_w", r.blockW), slog.Int("block_h", r.blockH),
		slog.Int("workers", r.workers))

	work := func() {
		for {
			b, ok := cur.next()
			if !ok {
				return
			}
			if err := r.apply(b); err != nil {
				cur.fail(err)
				return
			}
		}
	}

	// Avoid goroutines altogether in the single-worker case.
	if r.workers == 1 {
		work()
		return cur.err
	}

	var wg sync.WaitGroup
	wg.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go func() {
			defer wg.Done()
			work()
		}()
	}
	wg.Wait()
	return cur.err
}
