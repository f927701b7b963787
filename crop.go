package timage

// CropView exposes a rectangular window of its parent. Sampling adds the
// crop origin, so the window behaves as an image of its own with the origin
// at (0, 0).
type CropView[P any] struct {
	parent Image[P]
	ox, oy int
	w, h   int
}

var _ Image[uint8] = (*CropView[uint8])(nil)

// Crop creates a window of the given origin and size over parent.
func Crop[P any](parent Image[P], ox, oy, w, h int) *CropView[P] {
	return &CropView[P]{parent: parent, ox: ox, oy: oy, w: w, h: h}
}

// CropBBox creates a window covering bbox in the parent's coordinates.
func CropBBox[P any](parent Image[P], bbox Rect) *CropView[P] {
	return Crop(parent, bbox.MinX, bbox.MinY, bbox.Width, bbox.Height)
}

func (v *CropView[P]) Cols() int   { return v.w }
func (v *CropView[P]) Rows() int   { return v.h }
func (v *CropView[P]) Planes() int { return v.parent.Planes() }

// Origin returns the crop offset into the parent.
func (v *CropView[P]) Origin() (int, int) { return v.ox, v.oy }

// Parent returns the wrapped view.
func (v *CropView[P]) Parent() Image[P] { return v.parent }

func (v *CropView[P]) PixelAt(x, y, p int) P {
	return v.parent.PixelAt(v.ox+x, v.oy+y, p)
}

// Prerasterize pushes the crop offset into the child's prerasterize request.
func (v *CropView[P]) Prerasterize(bbox Rect) Image[P] {
	return Crop(v.parent.Prerasterize(bbox.Translate(v.ox, v.oy)), v.ox, v.oy, v.w, v.h)
}

func (v *CropView[P]) Rasterize(dst Raster[P], bbox Rect) error {
	return RasterizeInto[P](v, dst, bbox)
}

// FloatSampler is implemented by views that can be sampled at fractional
// coordinates; interpolation is the view's own responsibility.
type FloatSampler[P any] interface {
	PixelAtF(x, y float64, p int) P
}

// FloatCropView is a crop with a fractional origin over a parent that
// supports fractional sampling. Integer sampling forwards the fractional
// offset unchanged to the parent.
type FloatCropView[P any] struct {
	parent interface {
		Image[P]
		FloatSampler[P]
	}
	ox, oy float64
	w, h   int
}

// CropF creates a fractional-origin window over a float-samplable parent.
func CropF[P any](parent interface {
	Image[P]
	FloatSampler[P]
}, ox, oy float64, w, h int) *FloatCropView[P] {
	return &FloatCropView[P]{parent: parent, ox: ox, oy: oy, w: w, h: h}
}

func (v *FloatCropView[P]) Cols() int   { return v.w }
func (v *FloatCropView[P]) Rows() int   { return v.h }
func (v *FloatCropView[P]) Planes() int { return v.parent.Planes() }

func (v *FloatCropView[P]) PixelAt(x, y, p int) P {
	return v.parent.PixelAtF(v.ox+float64(x), v.oy+float64(y), p)
}

func (v *FloatCropView[P]) PixelAtF(x, y float64, p int) P {
	return v.parent.PixelAtF(v.ox+x, v.oy+y, p)
}

func (v *FloatCropView[P]) Prerasterize(Rect) Image[P] { return v }

func (v *FloatCropView[P]) Rasterize(dst Raster[P], bbox Rect) error {
	return RasterizeInto[P](v, dst, bbox)
}
