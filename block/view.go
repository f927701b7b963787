package block

import (
	"fmt"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/cache"
)

// RasterizeView wraps a parent view and overrides rasterization to proceed
// in parallel blocks, optionally backed by a tile cache. Shape and pixel
// semantics pass through unchanged: enabling blocks or a cache never changes
// output pixels.
type RasterizeView[P any] struct {
	child   timage.Image[P]
	blockW  int
	blockH  int
	workers int
	cache   *cache.TileCache
	mgr     Manager[P]
}

var _ timage.Image[uint16] = (*RasterizeView[uint16])(nil)

// ViewOption configures a RasterizeView.
type ViewOption[P any] func(*RasterizeView[P])

// WithBlockSize sets the block size in pixels. Without it the block size is
// derived from the image shape to target roughly 2 MiB per block.
func WithBlockSize[P any](w, h int) ViewOption[P] {
	return func(v *RasterizeView[P]) {
		v.blockW, v.blockH = w, h
	}
}

// WithViewWorkers sets the worker count used by Rasterize.
func WithViewWorkers[P any](n int) ViewOption[P] {
	return func(v *RasterizeView[P]) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithCache attaches a tile cache. Point sampling and block rasterization
// are then served from cached tiles, generated on first touch.
func WithCache[P any](c *cache.TileCache) ViewOption[P] {
	return func(v *RasterizeView[P]) {
		v.cache = c
	}
}

// NewRasterizeView wraps child in a block-rasterizing view.
func NewRasterizeView[P any](child timage.Image[P], opts ...ViewOption[P]) (*RasterizeView[P], error) {
	v := &RasterizeView[P]{child: child, workers: DefaultWorkers()}
	for _, o := range opts {
		o(v)
	}
	if v.blockW <= 0 || v.blockH <= 0 {
		var m timage.MemoryImage[P]
		v.blockW, v.blockH = DefaultBlockSize(child.Cols(), child.Rows(), child.Planes(), m.BytesPerPixel())
	}
	if v.blockW <= 0 || v.blockH <= 0 {
		return nil, fmt.Errorf("%w: block size %dx%d", timage.ErrInvalidConfig, v.blockW, v.blockH)
	}
	if v.cache != nil {
		if err := v.mgr.Initialize(v.cache, v.blockW, v.blockH, child); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *RasterizeView[P]) Cols() int   { return v.child.Cols() }
func (v *RasterizeView[P]) Rows() int   { return v.child.Rows() }
func (v *RasterizeView[P]) Planes() int { return v.child.Planes() }

// BlockSize returns the active block size in pixels.
func (v *RasterizeView[P]) BlockSize() (w, h int) { return v.blockW, v.blockH }

// Child returns the wrapped view.
func (v *RasterizeView[P]) Child() timage.Image[P] { return v.child }

// PixelAt samples a single pixel. With a cache attached the covering block
// is materialized and sampled; repeated point access in a region touches its
// tile once. Without a cache the parent is sampled directly, which can be
// very slow for disk-backed parents.
func (v *RasterizeView[P]) PixelAt(x, y, p int) P {
	if v.cache == nil {
		return v.child.PixelAt(x, y, p)
	}
	var handle *cache.Handle
	var ox, oy int
	if v.mgr.OnlyOneBlock() {
		handle = v.mgr.SingleBlock()
	} else {
		ix, iy := v.mgr.BlockIndex(x, y)
		handle = v.mgr.Block(ix, iy)
		ox, oy = v.mgr.BlockOrigin(ix, iy)
	}
	tileAny, err := handle.Acquire()
	if err != nil {
		panic(fmt.Sprintf("block: generating tile for pixel (%d, %d): %v", x, y, err))
	}
	defer handle.Release()
	tile := tileAny.(*timage.MemoryImage[P])
	return tile.PixelAt(x-ox, y-oy, p)
}

// Prerasterize materializes the requested region once and exposes it as a
// view addressed in absolute coordinates.
func (v *RasterizeView[P]) Prerasterize(bbox timage.Rect) timage.Image[P] {
	m := &timage.MemoryImage[P]{}
	if err := v.Rasterize(m, bbox); err != nil {
		panic(fmt.Sprintf("block: prerasterize %+v: %v", bbox, err))
	}
	return timage.Crop[P](m, -bbox.MinX, -bbox.MinY, v.Cols(), v.Rows())
}

// Rasterize fills dst with the view's pixels over bbox, one block at a
// time across the worker pool. Each block writes a disjoint region of dst,
// so no synchronization on the destination is needed.
func (v *RasterizeView[P]) Rasterize(dst timage.Raster[P], bbox timage.Rect) error {
	if r, ok := dst.(timage.Resizable); ok {
		if err := r.SetSize(bbox.Width, bbox.Height, v.Planes()); err != nil {
			return err
		}
	}
	if dst.Cols() != bbox.Width || dst.Rows() != bbox.Height || dst.Planes() != v.Planes() {
		return fmt.Errorf("%w: destination is %dx%dx%d, request is %dx%dx%d",
			timage.ErrInvalidConfig, dst.Cols(), dst.Rows(), dst.Planes(),
			bbox.Width, bbox.Height, v.Planes())
	}

	apply := func(b timage.Rect) error {
		if v.cache != nil {
			// The rasterizer grid is anchored at multiples of the block
			// size, so each dispatched block falls inside exactly one
			// cached tile.
			ix, iy := v.mgr.BlockIndex(b.MinX, b.MinY)
			handle := v.mgr.Block(ix, iy)
			ox, oy := v.mgr.BlockOrigin(ix, iy)
			tileAny, err := handle.Acquire()
			if err != nil {
				return err
			}
			defer handle.Release()
			tile := tileAny.(*timage.MemoryImage[P])
			for p := 0; p < v.Planes(); p++ {
				for y := 0; y < b.Height; y++ {
					for x := 0; x < b.Width; x++ {
						dst.SetPixelAt(b.MinX-bbox.MinX+x, b.MinY-bbox.MinY+y, p,
							tile.PixelAt(b.MinX-ox+x, b.MinY-oy+y, p))
					}
				}
			}
			return nil
		}
		win := &windowRaster[P]{dst: dst, offX: b.MinX - bbox.MinX, offY: b.MinY - bbox.MinY,
			w: b.Width, h: b.Height, planes: v.Planes()}
		return v.child.Rasterize(win, b)
	}

	return NewRasterizer(apply, v.blockW, v.blockH, WithWorkers(v.workers)).Run(bbox)
}

// windowRaster exposes a rectangular window of a destination raster as a
// raster of its own, so a block can be rasterized straight into its slot of
// the shared destination.
type windowRaster[P any] struct {
	dst        timage.Raster[P]
	offX, offY int
	w, h       int
	planes     int
}

func (w *windowRaster[P]) Cols() int   { return w.w }
func (w *windowRaster[P]) Rows() int   { return w.h }
func (w *windowRaster[P]) Planes() int { return w.planes }

func (w *windowRaster[P]) PixelAt(x, y, p int) P {
	return w.dst.PixelAt(w.offX+x, w.offY+y, p)
}

func (w *windowRaster[P]) SetPixelAt(x, y, p int, v P) {
	w.dst.SetPixelAt(w.offX+x, w.offY+y, p, v)
}

func (w *windowRaster[P]) Prerasterize(timage.Rect) timage.Image[P] { return w }

func (w *windowRaster[P]) Rasterize(dst timage.Raster[P], bbox timage.Rect) error {
	return timage.RasterizeInto[P](w, dst, bbox)
}
