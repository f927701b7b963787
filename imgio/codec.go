package imgio

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"unsafe"

	"github.com/terminus-geospatial/timage"
)

// Shared plumbing for codec drivers that decode or encode whole images
// through the standard image.Image interface (PNG, TIFF, WebP). Such codecs
// have no native block access: the resource holds one decoded raster and
// reports the full extent as its block size.

// BufferFromStdImage converts a decoded image into a native ImageBuffer.
// Grayscale images map to Gray U8 or U16; everything else lands in RGBA U8.
func BufferFromStdImage(img image.Image) (timage.ImageBuffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		f := timage.NewImageFormat(w, h, timage.FormatGray, timage.ChannelU8)
		buf := timage.AllocateBuffer(f)
		for y := 0; y < h; y++ {
			copy(buf.Data[y*buf.RStride:(y+1)*buf.RStride], src.Pix[y*src.Stride:y*src.Stride+w])
		}
		return buf, nil
	case *image.Gray16:
		f := timage.NewImageFormat(w, h, timage.FormatGray, timage.ChannelU16)
		buf := timage.AllocateBuffer(f)
		vals := unsafe.Slice((*uint16)(unsafe.Pointer(&buf.Data[0])), w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				vals[y*w+x] = src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return buf, nil
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	f := timage.NewImageFormat(w, h, timage.FormatRGBA, timage.ChannelU8)
	buf := timage.AllocateBuffer(f)
	for y := 0; y < h; y++ {
		copy(buf.Data[y*buf.RStride:(y+1)*buf.RStride], rgba.Pix[y*rgba.Stride:y*rgba.Stride+w*4])
	}
	return buf, nil
}

// StdImageFromBuffer converts a native buffer with default strides into an
// encodable image. The inverse of BufferFromStdImage for the formats codec
// sinks allocate.
func StdImageFromBuffer(buf timage.ImageBuffer) (image.Image, error) {
	w, h := buf.Format.Cols, buf.Format.Rows
	switch {
	case buf.Format.PixelType == timage.FormatGray && buf.Format.ChannelKind == timage.ChannelU8:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], buf.Data[y*buf.RStride:])
		}
		return img, nil
	case buf.Format.PixelType == timage.FormatGray && buf.Format.ChannelKind == timage.ChannelU16:
		img := image.NewGray16(image.Rect(0, 0, w, h))
		vals := unsafe.Slice((*uint16)(unsafe.Pointer(&buf.Data[0])), w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, color.Gray16{Y: vals[y*w+x]})
			}
		}
		return img, nil
	case buf.Format.PixelType == timage.FormatRGBA && buf.Format.ChannelKind == timage.ChannelU8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w*4], buf.Data[y*buf.RStride:])
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %v buffers", timage.ErrInvalidPixelFormat, buf.Format.PixelType)
}

// NativeWriteFormat picks the codec storage format closest to a requested
// output format: grayscale stays grayscale (wide kinds keep 16 bits),
// everything else becomes RGBA U8.
func NativeWriteFormat(requested timage.ImageFormat) timage.ImageFormat {
	out := requested
	out.Planes = 1
	out.Premultiply = false
	if requested.PixelType.Base() == timage.FormatGray || requested.PixelType == timage.FormatScalar {
		out.PixelType = timage.FormatGray
		if requested.ChannelKind == timage.ChannelU8 || requested.ChannelKind == timage.ChannelI8 {
			out.ChannelKind = timage.ChannelU8
		} else {
			out.ChannelKind = timage.ChannelU16
		}
		return out
	}
	out.PixelType = timage.FormatRGBA
	out.ChannelKind = timage.ChannelU8
	return out
}

// DecodedReader serves Read requests from one decoded raster held in
// memory.
type DecodedReader struct {
	Native  timage.ImageBuffer
	Rescale bool
}

var _ ReadResource = (*DecodedReader)(nil)

func (r *DecodedReader) Format() timage.ImageFormat { return r.Native.Format }

func (r *DecodedReader) Read(dest timage.ImageBuffer, bbox timage.Rect) error {
	if !r.Native.Format.BBox().ContainsRect(bbox) {
		return fmt.Errorf("%w: read %+v outside %v", timage.ErrBounds, bbox, r.Native.Format)
	}
	return ConvertedRead(dest, r.Native.Cropped(bbox), r.Rescale)
}

func (r *DecodedReader) HasBlockRead() bool { return false }
func (r *DecodedReader) BlockReadSize() (int, int) {
	return r.Native.Format.Cols, r.Native.Format.Rows
}
func (r *DecodedReader) HasNoDataRead() bool { return false }
func (r *DecodedReader) NoDataRead() float64 { return 0 }

// EncodeSink accumulates written blocks into a native raster and encodes the
// whole image on Flush.
type EncodeSink struct {
	Native  timage.ImageBuffer
	Rescale bool

	// Encode writes the finished image to the backing store.
	Encode func(image.Image) error
}

var _ WriteResource = (*EncodeSink)(nil)

func (s *EncodeSink) Write(src timage.ImageBuffer, bbox timage.Rect) error {
	if !s.Native.Format.BBox().ContainsRect(bbox) {
		return fmt.Errorf("%w: write %+v outside %v", timage.ErrBounds, bbox, s.Native.Format)
	}
	return timage.Convert(s.Native.Cropped(bbox), src, s.Rescale)
}

func (s *EncodeSink) HasBlockWrite() bool           { return false }
func (s *EncodeSink) BlockWriteSize() (int, int)    { return s.Native.Format.Cols, s.Native.Format.Rows }
func (s *EncodeSink) SetBlockWriteSize(w, h int)    {}
func (s *EncodeSink) HasNoDataWrite() bool          { return false }
func (s *EncodeSink) SetNoDataWrite(float64)        {}

func (s *EncodeSink) Flush() error {
	img, err := StdImageFromBuffer(s.Native)
	if err != nil {
		return err
	}
	return s.Encode(img)
}
