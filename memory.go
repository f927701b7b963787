package timage

import (
	"fmt"
	"unsafe"
)

// Allocation caps enforced by SetSize. They bound accidental huge requests,
// not legitimate large mosaics, which should go through block-based I/O.
const (
	maxPixelsPerSide = 100_000
	maxPlaneCount    = 1024
	maxTotalPixels   = 6_400_000_000
)

// MemoryImage is an owning, resizable raster of pixels of type P stored
// contiguously in plane-major, row-major order.
//
// The zero value is an empty image; use SetSize or NewMemoryImage to
// allocate. MemoryImage satisfies both Image[P] and Raster[P], and it is the
// materialization target of every lazy view.
type MemoryImage[P any] struct {
	data   []P
	cols   int
	rows   int
	planes int

	meta *Metadata
}

// Compile-time interface checks.
var (
	_ Image[uint8]  = (*MemoryImage[uint8])(nil)
	_ Raster[uint8] = (*MemoryImage[uint8])(nil)
	_ Resizable     = (*MemoryImage[uint8])(nil)
)

// NewMemoryImage allocates an image of the given shape.
// It panics if the shape violates the allocation caps; use SetSize for a
// recoverable error.
func NewMemoryImage[P any](cols, rows, planes int) *MemoryImage[P] {
	m := &MemoryImage[P]{}
	if err := m.SetSize(cols, rows, planes); err != nil {
		panic(err)
	}
	return m
}

// Materialize rasterizes an arbitrary view into a fresh MemoryImage.
func Materialize[P any](src Image[P]) (*MemoryImage[P], error) {
	m := &MemoryImage[P]{}
	if err := src.Rasterize(m, FullBBox(src)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryImage[P]) Cols() int   { return m.cols }
func (m *MemoryImage[P]) Rows() int   { return m.rows }
func (m *MemoryImage[P]) Planes() int { return m.planes }

// PixelAt returns the pixel value at (x, y, p).
func (m *MemoryImage[P]) PixelAt(x, y, p int) P {
	return m.data[x+y*m.cols+p*m.cols*m.rows]
}

// SetPixelAt stores a pixel value at (x, y, p).
func (m *MemoryImage[P]) SetPixelAt(x, y, p int, v P) {
	m.data[x+y*m.cols+p*m.cols*m.rows] = v
}

// Prerasterize returns the image itself: memory images are already
// materialized.
func (m *MemoryImage[P]) Prerasterize(Rect) Image[P] { return m }

// Rasterize copies the requested region into dst.
func (m *MemoryImage[P]) Rasterize(dst Raster[P], bbox Rect) error {
	return RasterizeInto[P](m, dst, bbox)
}

// SetSize reallocates the image to the given shape. Resizing to the current
// shape is a no-op that preserves contents; any other resize discards them.
// Requests beyond the allocation caps fail with ErrOutOfMemory.
func (m *MemoryImage[P]) SetSize(cols, rows, planes int) error {
	if cols == m.cols && rows == m.rows && planes == m.planes {
		return nil
	}
	if cols < 0 || rows < 0 || planes < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%dx%d", ErrInvalidConfig, cols, rows, planes)
	}
	if cols >= maxPixelsPerSide && rows >= maxPixelsPerSide {
		return fmt.Errorf("%w: will not allocate more than %d pixels on a side",
			ErrOutOfMemory, maxPixelsPerSide-1)
	}
	if planes >= maxPlaneCount {
		return fmt.Errorf("%w: will not allocate more than %d planes",
			ErrOutOfMemory, maxPlaneCount-1)
	}
	total := uint64(cols) * uint64(rows) * uint64(planes)
	if total >= maxTotalPixels {
		return fmt.Errorf("%w: will not allocate more than %d total pixels",
			ErrOutOfMemory, uint64(maxTotalPixels)-1)
	}
	if total == 0 {
		m.data = nil
	} else {
		m.data = make([]P, total)
	}
	m.cols = cols
	m.rows = rows
	m.planes = planes
	return nil
}

// Reset releases the backing storage and zeroes the shape.
func (m *MemoryImage[P]) Reset() {
	m.data = nil
	m.cols, m.rows, m.planes = 0, 0, 0
}

// Valid reports whether the image has backing storage.
func (m *MemoryImage[P]) Valid() bool { return m.data != nil }

// Data returns the backing pixel slice in plane-major, row-major order.
func (m *MemoryImage[P]) Data() []P { return m.data }

// BytesPerPixel returns the in-memory size of one pixel of type P.
func (m *MemoryImage[P]) BytesPerPixel() int {
	var zero P
	return int(unsafe.Sizeof(zero))
}

// Format describes the image's runtime format. The pixel format and channel
// kind are resolved from P; bare scalars describe themselves as Scalar
// rasters.
func (m *MemoryImage[P]) Format() ImageFormat {
	pf, ck := pixelDescription[P]()
	return ImageFormat{
		Cols:        m.cols,
		Rows:        m.rows,
		Planes:      m.planes,
		PixelType:   pf,
		ChannelKind: ck,
	}
}

// Buffer exposes the raster as a byte-level ImageBuffer for conversion and
// driver I/O. The buffer aliases the image's storage.
func (m *MemoryImage[P]) Buffer() ImageBuffer {
	f := m.Format()
	bpp := m.BytesPerPixel()
	return ImageBuffer{
		Data:    rawBytes(m.data),
		Format:  f,
		CStride: bpp,
		RStride: bpp * m.cols,
		PStride: bpp * m.cols * m.rows,
	}
}

// Metadata returns the image's metadata container, creating it on first use.
func (m *MemoryImage[P]) Metadata() *Metadata {
	if m.meta == nil {
		m.meta = NewMetadata()
	}
	return m.meta
}

// CopyPayloadFrom forwards the metadata payload from another carrier, such
// as the source image of an assignment.
func (m *MemoryImage[P]) CopyPayloadFrom(src interface{ Metadata() *Metadata }) {
	m.meta = src.Metadata()
}
