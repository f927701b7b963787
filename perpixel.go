package timage

// PerPixelUnaryView applies a pure function elementwise to its parent's
// pixels. Shape passes through; sampling composes the function with the
// parent's sampling.
type PerPixelUnaryView[S, D any] struct {
	parent Image[S]
	fn     func(S) D
}

var _ Image[uint16] = (*PerPixelUnaryView[uint8, uint16])(nil)

// PerPixel lifts fn over parent.
func PerPixel[S, D any](parent Image[S], fn func(S) D) *PerPixelUnaryView[S, D] {
	return &PerPixelUnaryView[S, D]{parent: parent, fn: fn}
}

func (v *PerPixelUnaryView[S, D]) Cols() int   { return v.parent.Cols() }
func (v *PerPixelUnaryView[S, D]) Rows() int   { return v.parent.Rows() }
func (v *PerPixelUnaryView[S, D]) Planes() int { return v.parent.Planes() }

func (v *PerPixelUnaryView[S, D]) PixelAt(x, y, p int) D {
	return v.fn(v.parent.PixelAt(x, y, p))
}

func (v *PerPixelUnaryView[S, D]) Prerasterize(bbox Rect) Image[D] {
	return &PerPixelUnaryView[S, D]{parent: v.parent.Prerasterize(bbox), fn: v.fn}
}

func (v *PerPixelUnaryView[S, D]) Rasterize(dst Raster[D], bbox Rect) error {
	return RasterizeInto[D](v, dst, bbox)
}
