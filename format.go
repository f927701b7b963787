package timage

import "fmt"

// ImageFormat fully describes the shape and storage of a raster: its
// dimensions, pixel format, channel kind, and whether alpha-associated
// channels are premultiplied.
//
// Multi-plane and multi-channel are mutually exclusive at the format level:
// at most one of Planes > 1 and Channels > 1 may hold.
type ImageFormat struct {
	Cols, Rows, Planes int
	PixelType          PixelFormat
	ChannelKind        ChannelType

	// Premultiply indicates alpha-associated channels are already
	// multiplied by alpha.
	Premultiply bool
}

// NewImageFormat creates a format with the given shape and a single plane.
func NewImageFormat(cols, rows int, pixelType PixelFormat, kind ChannelType) ImageFormat {
	return ImageFormat{
		Cols:        cols,
		Rows:        rows,
		Planes:      1,
		PixelType:   pixelType,
		ChannelKind: kind,
	}
}

// Validate checks the structural invariants of the format.
func (f ImageFormat) Validate() error {
	if f.Cols < 0 || f.Rows < 0 || f.Planes < 1 {
		return fmt.Errorf("%w: bad dimensions %dx%dx%d", ErrInvalidConfig, f.Cols, f.Rows, f.Planes)
	}
	ch, err := f.Channels()
	if err != nil {
		return err
	}
	if f.Planes > 1 && ch > 1 {
		return fmt.Errorf("%w: format cannot be both multi-plane (%d) and multi-channel (%d)",
			ErrInvalidConfig, f.Planes, ch)
	}
	return nil
}

// Channels returns the stored channel count of the pixel format, including
// the validity channel of masked variants.
func (f ImageFormat) Channels() (int, error) {
	return f.PixelType.StorageChannels()
}

// BBox returns the full extent of the format as a rectangle at the origin.
func (f ImageFormat) BBox() Rect {
	return Rect{Width: f.Cols, Height: f.Rows}
}

// BytesPerPixel returns the byte size of one whole pixel.
func (f ImageFormat) BytesPerPixel() (int, error) {
	ch, err := f.Channels()
	if err != nil {
		return 0, err
	}
	cs, err := f.ChannelKind.SizeBytes()
	if err != nil {
		return 0, err
	}
	return ch * cs, nil
}

// CStride returns the default column stride in bytes.
func (f ImageFormat) CStride() int {
	n, err := f.BytesPerPixel()
	if err != nil {
		return 0
	}
	return n
}

// RStride returns the default row stride in bytes.
func (f ImageFormat) RStride() int { return f.CStride() * f.Cols }

// PStride returns the default plane stride in bytes.
func (f ImageFormat) PStride() int { return f.RStride() * f.Rows }

// RasterBytes returns the total byte size of a raster in this format with
// default strides.
func (f ImageFormat) RasterBytes() int { return f.PStride() * f.Planes }

func (f ImageFormat) String() string {
	return fmt.Sprintf("%dx%dx%d %v/%v premult=%v",
		f.Cols, f.Rows, f.Planes, f.PixelType, f.ChannelKind, f.Premultiply)
}
