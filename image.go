package timage

import "fmt"

// Image is a lazy, composable image node. Implementations are cheap values
// composed into trees; pixels are produced on demand through PixelAt or in
// bulk through Rasterize.
//
// Coordinates passed to PixelAt are in the view's own space: column in
// [0, Cols), row in [0, Rows), plane in [0, Planes).
type Image[P any] interface {
	Cols() int
	Rows() int
	Planes() int

	// PixelAt returns the pixel at (x, y, p). Out-of-range coordinates are
	// a logic error.
	PixelAt(x, y, p int) P

	// Prerasterize returns a view that, when sampled at absolute
	// coordinates inside bbox, yields this view's pixels there. It may
	// return the view itself; eager views use it to materialize a region
	// once before repeated sampling.
	Prerasterize(bbox Rect) Image[P]

	// Rasterize fills dst[0..bbox.Width, 0..bbox.Height, 0..Planes) with
	// this view's pixels over bbox.
	Rasterize(dst Raster[P], bbox Rect) error
}

// Raster is a writable pixel destination.
type Raster[P any] interface {
	Image[P]
	SetPixelAt(x, y, p int, v P)
}

// Resizable is implemented by destinations that can adopt the shape of the
// source before a rasterize.
type Resizable interface {
	SetSize(cols, rows, planes int) error
}

// FullBBox returns the full extent of a view as a rectangle at the origin.
func FullBBox[P any](img Image[P]) Rect {
	return Rect{Width: img.Cols(), Height: img.Rows()}
}

// RasterizeInto is the generic pixel-by-pixel rasterization used by views
// without a specialized bulk path. If dst is resizable it is first resized to
// the requested region; otherwise its dimensions must match bbox and the
// source plane count.
func RasterizeInto[P any](src Image[P], dst Raster[P], bbox Rect) error {
	if r, ok := dst.(Resizable); ok {
		if err := r.SetSize(bbox.Width, bbox.Height, src.Planes()); err != nil {
			return err
		}
	}
	if dst.Cols() != bbox.Width || dst.Rows() != bbox.Height || dst.Planes() != src.Planes() {
		return fmt.Errorf("%w: destination is %dx%dx%d, request is %dx%dx%d",
			ErrInvalidConfig, dst.Cols(), dst.Rows(), dst.Planes(),
			bbox.Width, bbox.Height, src.Planes())
	}
	pre := src.Prerasterize(bbox)
	for p := 0; p < src.Planes(); p++ {
		for y := 0; y < bbox.Height; y++ {
			for x := 0; x < bbox.Width; x++ {
				dst.SetPixelAt(x, y, p, pre.PixelAt(bbox.MinX+x, bbox.MinY+y, p))
			}
		}
	}
	return nil
}
