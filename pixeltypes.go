package timage

// Pixel is implemented by compound pixel value types so that generic views
// can recover their runtime format description.
type Pixel interface {
	PixelFormat() PixelFormat
	ChannelType() ChannelType
}

// Gray is a single-channel grayscale pixel.
type Gray[C Scalar] struct {
	V C
}

func (Gray[C]) PixelFormat() PixelFormat { return FormatGray }
func (Gray[C]) ChannelType() ChannelType { return channelOf[C]() }

// GrayA is a grayscale pixel with alpha.
type GrayA[C Scalar] struct {
	V, A C
}

func (GrayA[C]) PixelFormat() PixelFormat { return FormatGrayA }
func (GrayA[C]) ChannelType() ChannelType { return channelOf[C]() }

// RGB is a three-channel color pixel.
type RGB[C Scalar] struct {
	R, G, B C
}

func (RGB[C]) PixelFormat() PixelFormat { return FormatRGB }
func (RGB[C]) ChannelType() ChannelType { return channelOf[C]() }

// RGBA is a four-channel color pixel with alpha.
type RGBA[C Scalar] struct {
	R, G, B, A C
}

func (RGBA[C]) PixelFormat() PixelFormat { return FormatRGBA }
func (RGBA[C]) ChannelType() ChannelType { return channelOf[C]() }

// GrayMasked is a grayscale pixel with a trailing validity channel stored as
// 0 (invalid) or the channel maximum (valid).
type GrayMasked[C Scalar] struct {
	V, Valid C
}

func (GrayMasked[C]) PixelFormat() PixelFormat { return FormatGrayMasked }
func (GrayMasked[C]) ChannelType() ChannelType { return channelOf[C]() }

// RGBMasked is a color pixel with a trailing validity channel.
type RGBMasked[C Scalar] struct {
	R, G, B, Valid C
}

func (RGBMasked[C]) PixelFormat() PixelFormat { return FormatRGBMasked }
func (RGBMasked[C]) ChannelType() ChannelType { return channelOf[C]() }

// pixelDescription resolves the runtime format of a pixel type parameter.
// Compound pixels answer through the Pixel interface; bare scalars describe
// themselves as Scalar rasters. Anything else is unknown.
func pixelDescription[P any]() (PixelFormat, ChannelType) {
	var zero P
	if px, ok := any(zero).(Pixel); ok {
		return px.PixelFormat(), px.ChannelType()
	}
	switch any(zero).(type) {
	case int8:
		return FormatScalar, ChannelI8
	case uint8:
		return FormatScalar, ChannelU8
	case int16:
		return FormatScalar, ChannelI16
	case uint16:
		return FormatScalar, ChannelU16
	case int32:
		return FormatScalar, ChannelI32
	case uint32:
		return FormatScalar, ChannelU32
	case int64:
		return FormatScalar, ChannelI64
	case uint64:
		return FormatScalar, ChannelU64
	case float32:
		return FormatScalar, ChannelF32
	case float64:
		return FormatScalar, ChannelF64
	}
	return FormatUnknown, ChannelUnknown
}
