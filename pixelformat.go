package timage

import "fmt"

// PixelFormat identifies the arrangement and semantics of a pixel's channels.
//
// Masked variants carry the same visible channels as their base format plus
// one trailing validity channel. The validity channel is part of the storage
// layout (see StorageChannels) but not of the visible channel count.
type PixelFormat uint8

const (
	FormatUnknown PixelFormat = iota
	FormatScalar
	FormatGray
	FormatGrayA
	FormatRGB
	FormatRGBA
	FormatHSV
	FormatXYZ
	FormatLUV
	FormatLAB

	FormatScalarMasked
	FormatGrayMasked
	FormatGrayAMasked
	FormatRGBMasked
	FormatRGBAMasked
	FormatHSVMasked
	FormatXYZMasked
	FormatLUVMasked
	FormatLABMasked

	FormatGeneric1
	FormatGeneric2
	FormatGeneric3
	FormatGeneric4
	FormatGeneric5
	FormatGeneric6
	FormatGeneric7
	FormatGeneric8
	FormatGeneric9
)

var pixelFormatNames = map[PixelFormat]string{
	FormatUnknown:      "Unknown",
	FormatScalar:       "Scalar",
	FormatGray:         "Gray",
	FormatGrayA:        "GrayA",
	FormatRGB:          "RGB",
	FormatRGBA:         "RGBA",
	FormatHSV:          "HSV",
	FormatXYZ:          "XYZ",
	FormatLUV:          "LUV",
	FormatLAB:          "LAB",
	FormatScalarMasked: "ScalarMasked",
	FormatGrayMasked:   "GrayMasked",
	FormatGrayAMasked:  "GrayAMasked",
	FormatRGBMasked:    "RGBMasked",
	FormatRGBAMasked:   "RGBAMasked",
	FormatHSVMasked:    "HSVMasked",
	FormatXYZMasked:    "XYZMasked",
	FormatLUVMasked:    "LUVMasked",
	FormatLABMasked:    "LABMasked",
	FormatGeneric1:     "Generic1",
	FormatGeneric2:     "Generic2",
	FormatGeneric3:     "Generic3",
	FormatGeneric4:     "Generic4",
	FormatGeneric5:     "Generic5",
	FormatGeneric6:     "Generic6",
	FormatGeneric7:     "Generic7",
	FormatGeneric8:     "Generic8",
	FormatGeneric9:     "Generic9",
}

func (f PixelFormat) String() string {
	if s, ok := pixelFormatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("PixelFormat(%d)", uint8(f))
}

// Masked reports whether the format carries a validity channel.
func (f PixelFormat) Masked() bool {
	return f >= FormatScalarMasked && f <= FormatLABMasked
}

// Base returns the non-masked counterpart of a masked format, or f itself.
func (f PixelFormat) Base() PixelFormat {
	if f.Masked() {
		return f - FormatScalarMasked + FormatScalar
	}
	return f
}

// Channels returns the visible channel count of the format. The validity
// channel of masked variants is not counted. FormatUnknown fails the query.
func (f PixelFormat) Channels() (int, error) {
	switch f.Base() {
	case FormatScalar, FormatGray:
		return 1, nil
	case FormatGrayA:
		return 2, nil
	case FormatRGB, FormatHSV, FormatXYZ, FormatLUV, FormatLAB:
		return 3, nil
	case FormatRGBA:
		return 4, nil
	}
	if f >= FormatGeneric1 && f <= FormatGeneric9 {
		return int(f-FormatGeneric1) + 1, nil
	}
	return 0, fmt.Errorf("%w: no channel count for pixel format %v", ErrInvalidPixelFormat, f)
}

// StorageChannels returns the number of stored channels, including the
// validity channel of masked variants.
func (f PixelFormat) StorageChannels() (int, error) {
	n, err := f.Channels()
	if err != nil {
		return 0, err
	}
	if f.Masked() {
		n++
	}
	return n, nil
}

// HasAlpha reports whether the format's last visible channel is an alpha
// channel.
func (f PixelFormat) HasAlpha() bool {
	b := f.Base()
	return b == FormatGrayA || b == FormatRGBA
}
