package block

import (
	"fmt"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/cache"
)

// Generator rasterizes one block of a parent view into a fresh MemoryImage.
// It satisfies cache.Generator, so a tile cache can materialize and evict
// the block on demand.
type Generator[P any] struct {
	parent timage.Image[P]
	bbox   timage.Rect
}

var _ cache.Generator = (*Generator[uint8])(nil)

// NewGenerator creates a generator for the given block of parent.
func NewGenerator[P any](parent timage.Image[P], bbox timage.Rect) *Generator[P] {
	return &Generator[P]{parent: parent, bbox: bbox}
}

// BBox returns the block's extent in the parent's coordinates.
func (g *Generator[P]) BBox() timage.Rect { return g.bbox }

// SizeBytes returns the byte size of the materialized block.
func (g *Generator[P]) SizeBytes() int64 {
	var m timage.MemoryImage[P]
	return int64(g.bbox.Width) * int64(g.bbox.Height) *
		int64(g.parent.Planes()) * int64(m.BytesPerPixel())
}

// Generate rasterizes the block. The returned payload is a
// *timage.MemoryImage[P] of the block's shape.
func (g *Generator[P]) Generate() (any, error) {
	m := &timage.MemoryImage[P]{}
	if err := g.parent.Rasterize(m, g.bbox); err != nil {
		return nil, fmt.Errorf("generating block %+v: %w", g.bbox, err)
	}
	return m, nil
}

// Manager holds the grid of cached block generators spanning one view. It is
// rebuilt whenever the block size changes.
type Manager[P any] struct {
	cache  *cache.TileCache
	blockW int
	blockH int
	tableW int
	tableH int
	table  []*cache.Handle
}

// Initialize builds one generator per block over the full extent of image
// and registers them with the cache.
func (m *Manager[P]) Initialize(c *cache.TileCache, blockW, blockH int, image timage.Image[P]) error {
	if blockW <= 0 || blockH <= 0 {
		return fmt.Errorf("%w: illegal block size %dx%d", timage.ErrInvalidConfig, blockW, blockH)
	}
	if c == nil {
		return fmt.Errorf("%w: no cache provided", timage.ErrUninitialized)
	}
	m.cache = c
	m.blockW = blockW
	m.blockH = blockH
	m.tableW = (image.Cols()-1)/blockW + 1
	m.tableH = (image.Rows()-1)/blockH + 1
	m.table = make([]*cache.Handle, m.tableW*m.tableH)

	full := timage.FullBBox(image)
	for iy := 0; iy < m.tableH; iy++ {
		for ix := 0; ix < m.tableW; ix++ {
			bbox := timage.Rect{
				MinX:   ix * blockW,
				MinY:   iy * blockH,
				Width:  blockW,
				Height: blockH,
			}.Intersect(full)
			m.table[iy*m.tableW+ix] = c.Insert(NewGenerator(image, bbox))
		}
	}
	return nil
}

// Initialized reports whether the manager holds a block table.
func (m *Manager[P]) Initialized() bool { return m.table != nil }

// BlockIndex returns the grid index of the block covering the pixel (x, y).
func (m *Manager[P]) BlockIndex(x, y int) (ix, iy int) {
	return x / m.blockW, y / m.blockH
}

// BlockOrigin returns the top-left pixel of block (ix, iy). The origin is
// the unclipped grid position, independent of any clipping applied to edge
// blocks.
func (m *Manager[P]) BlockOrigin(ix, iy int) (x, y int) {
	return ix * m.blockW, iy * m.blockH
}

// Block returns the cache handle for block (ix, iy). An out-of-range index
// is a logic error and panics.
func (m *Manager[P]) Block(ix, iy int) *cache.Handle {
	if ix < 0 || ix >= m.tableW || iy < 0 || iy >= m.tableH {
		panic(fmt.Sprintf("block: index (%d, %d) outside %dx%d table", ix, iy, m.tableW, m.tableH))
	}
	return m.table[iy*m.tableW+ix]
}

// OnlyOneBlock reports whether the whole view fits one block.
func (m *Manager[P]) OnlyOneBlock() bool { return len(m.table) == 1 }

// SingleBlock returns the handle of the sole block of a single-block view.
func (m *Manager[P]) SingleBlock() *cache.Handle { return m.table[0] }
