package timage

// ImageBuffer is a non-owning descriptor of a rectangular pixel region:
// a byte slice, its format, and col/row/plane byte strides. Strides may be
// larger than the format defaults to describe padded or cropped windows.
//
// ImageBuffer never frees its backing memory; the slice must stay valid for
// the buffer's visible extent.
type ImageBuffer struct {
	Data   []byte
	Format ImageFormat

	CStride, RStride, PStride int
}

// NewImageBuffer wraps data with the format's default strides.
func NewImageBuffer(data []byte, format ImageFormat) ImageBuffer {
	return ImageBuffer{
		Data:    data,
		Format:  format,
		CStride: format.CStride(),
		RStride: format.RStride(),
		PStride: format.PStride(),
	}
}

// AllocateBuffer creates a buffer with freshly allocated backing storage and
// default strides.
func AllocateBuffer(format ImageFormat) ImageBuffer {
	return NewImageBuffer(make([]byte, format.RasterBytes()), format)
}

// At returns the bytes of the pixel at (col, row, plane). The returned slice
// aliases the buffer and extends to the end of the backing data.
func (b ImageBuffer) At(col, row, plane int) []byte {
	return b.Data[col*b.CStride+row*b.RStride+plane*b.PStride:]
}

// Cropped returns a window onto the sub-region bbox. The window shares the
// backing data; only the origin and visible extent change.
func (b ImageBuffer) Cropped(bbox Rect) ImageBuffer {
	out := b
	out.Data = b.Data[bbox.MinX*b.CStride+bbox.MinY*b.RStride:]
	out.Format.Cols = bbox.Width
	out.Format.Rows = bbox.Height
	return out
}
