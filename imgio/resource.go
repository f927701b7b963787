// Package imgio provides the disk I/O layer of timage: resource interfaces
// over image files, an ordered driver registry selecting a backend per path,
// and whole-image read/write helpers.
//
// Concrete format backends live in sub-packages (pngdrv, tiffdrv, webpdrv,
// tilestore) and register themselves on import, following the
// image.RegisterFormat idiom:
//
//	import _ "github.com/terminus-geospatial/timage/imgio/pngdrv"
package imgio

import (
	"sync"

	"github.com/terminus-geospatial/timage"
)

// ReadResource is a read-only producer of image data bound to a backing
// store.
//
// Read fills dest with the region bbox of the resource, converting from the
// resource's native format into the destination buffer's format.
type ReadResource interface {
	Format() timage.ImageFormat
	Read(dest timage.ImageBuffer, bbox timage.Rect) error

	// HasBlockRead reports whether the backing store reads efficiently in
	// blocks; BlockReadSize then returns the preferred block shape. A
	// resource that cannot deduce a block size reports the full extent.
	HasBlockRead() bool
	BlockReadSize() (w, h int)

	// HasNoDataRead reports whether the store designates a nodata sentinel.
	HasNoDataRead() bool
	NoDataRead() float64
}

// WriteResource is a write-only consumer of image data bound to a backing
// store.
type WriteResource interface {
	Write(src timage.ImageBuffer, bbox timage.Rect) error

	HasBlockWrite() bool
	BlockWriteSize() (w, h int)
	SetBlockWriteSize(w, h int)

	HasNoDataWrite() bool
	SetNoDataWrite(v float64)

	// Flush forces buffered data to the backing store.
	Flush() error
}

// Resource combines the read and write interfaces.
type Resource interface {
	ReadResource
	WriteResource
}

// FullBBox returns the full extent of a readable resource.
func FullBBox(r ReadResource) timage.Rect {
	return r.Format().BBox()
}

// rescale preference applied when drivers convert between their native
// channel kind and a caller's buffer. Mirrors the per-resource override with
// a process-wide default.
var (
	rescaleMu      sync.RWMutex
	defaultRescale = true
)

// SetDefaultRescale sets the process-wide default for whether drivers
// rescale channel ranges during format conversion.
func SetDefaultRescale(v bool) {
	rescaleMu.Lock()
	defaultRescale = v
	rescaleMu.Unlock()
}

// DefaultRescale returns the process-wide rescale preference.
func DefaultRescale() bool {
	rescaleMu.RLock()
	defer rescaleMu.RUnlock()
	return defaultRescale
}

// ConvertedRead is the shared helper drivers use to serve Read requests:
// it converts the native window into the destination buffer, honoring the
// rescale preference.
func ConvertedRead(dest timage.ImageBuffer, native timage.ImageBuffer, rescale bool) error {
	return timage.Convert(dest, native, rescale)
}
