package timage

// SparseView overlays a sequence of blobs on a parent view. Sampling checks
// the blobs in order and the first blob containing the coordinate wins;
// otherwise the parent's pixel shows through. Overlays are single-plane.
type SparseView[P any] struct {
	parent Image[P]
	blobs  []*UniformBlob[P]
}

var _ Image[uint8] = (*SparseView[uint8])(nil)

// Overlay wraps parent with the given blobs, first blob on top.
func Overlay[P any](parent Image[P], blobs ...*UniformBlob[P]) *SparseView[P] {
	return &SparseView[P]{parent: parent, blobs: blobs}
}

// Blobs returns the overlay blobs, first blob on top.
func (v *SparseView[P]) Blobs() []*UniformBlob[P] { return v.blobs }

// PushBlob adds a blob above the existing overlays.
func (v *SparseView[P]) PushBlob(b *UniformBlob[P]) {
	v.blobs = append([]*UniformBlob[P]{b}, v.blobs...)
}

func (v *SparseView[P]) Cols() int   { return v.parent.Cols() }
func (v *SparseView[P]) Rows() int   { return v.parent.Rows() }
func (v *SparseView[P]) Planes() int { return 1 }

func (v *SparseView[P]) PixelAt(x, y, p int) P {
	for _, b := range v.blobs {
		if b.Contains(x, y) {
			return b.Color()
		}
	}
	return v.parent.PixelAt(x, y, p)
}

func (v *SparseView[P]) Prerasterize(Rect) Image[P] { return v }

func (v *SparseView[P]) Rasterize(dst Raster[P], bbox Rect) error {
	return RasterizeInto[P](v, dst, bbox)
}
