package timage

import (
	"fmt"
	"math"
)

// channelConvertFunc converts one channel value from the head of src into
// the head of dst.
type channelConvertFunc func(src, dst []byte)

// channelSetMaxFunc writes the kind's maximum value to the head of dst.
type channelSetMaxFunc func(dst []byte)

// channelAverageFunc averages n channel values laid out at stride bytes in
// src and writes the mean to the head of dst. Accumulation is widened to
// avoid overflow.
type channelAverageFunc func(src, dst []byte, n, stride int)

// channelAlphaFunc applies or removes alpha association over one pixel of n
// channels at stride bytes, the last channel being alpha. src and dst may
// alias.
type channelAlphaFunc func(src, dst []byte, n, stride int)

// Conversion registries, keyed by storage channel kind. Populated once at
// package initialization; read-only afterwards, so no locking is needed.
var (
	channelConvertMap        = map[[2]ChannelType]channelConvertFunc{}
	channelConvertRescaleMap = map[[2]ChannelType]channelConvertFunc{}
	channelSetMaxMap         = map[ChannelType]channelSetMaxFunc{}
	channelAverageMap        = map[ChannelType]channelAverageFunc{}
	channelPremultiplyMap    = map[ChannelType]channelAlphaFunc{}
	channelUnpremultiplyMap  = map[ChannelType]channelAlphaFunc{}
)

func convertCast[S, D Scalar](src, dst []byte) {
	storeScalar(dst, D(loadScalar[S](src)))
}

// convertIntToFloat rescales an integer channel into [0, 1].
func convertIntToFloat[S, D Scalar](srcMax float64) channelConvertFunc {
	return func(src, dst []byte) {
		storeScalar(dst, D(float64(loadScalar[S](src))/srcMax))
	}
}

// convertFloatToInt clamps a float channel to [0, 1] and scales it to the
// destination integer range, rounding to nearest.
func convertFloatToInt[S, D Scalar](dstMax float64, setMax channelSetMaxFunc) channelConvertFunc {
	return func(src, dst []byte) {
		v := float64(loadScalar[S](src))
		switch {
		case v >= 1:
			setMax(dst)
		case v <= 0:
			storeScalar(dst, D(0))
		default:
			storeScalar(dst, D(math.Round(v*dstMax)))
		}
	}
}

func convertU16ToU8(src, dst []byte) {
	storeScalar(dst, uint8(loadScalar[uint16](src)/(65535/255)))
}

func convertU8ToU16(src, dst []byte) {
	storeScalar(dst, uint16(loadScalar[uint8](src))*(65535/255))
}

// registerPair installs the plain and rescaling conversions for one
// (src, dst) storage-kind pair.
func registerPair[S, D Scalar](s, d ChannelType) {
	plain := channelConvertFunc(convertCast[S, D])
	rescale := plain
	switch {
	case s == ChannelU16 && d == ChannelU8:
		rescale = convertU16ToU8
	case s == ChannelU8 && d == ChannelU16:
		rescale = convertU8ToU16
	case s.IsInteger() && !d.IsInteger():
		rescale = convertIntToFloat[S, D](channelMaxFloat(s))
	case !s.IsInteger() && d.IsInteger():
		rescale = convertFloatToInt[S, D](channelMaxFloat(d), channelSetMaxMap[d])
	}
	channelConvertMap[[2]ChannelType{s, d}] = plain
	channelConvertRescaleMap[[2]ChannelType{s, d}] = rescale
}

// registerFrom installs conversions from one source kind to every storage
// kind.
func registerFrom[S Scalar](s ChannelType) {
	registerPair[S, int8](s, ChannelI8)
	registerPair[S, uint8](s, ChannelU8)
	registerPair[S, int16](s, ChannelI16)
	registerPair[S, uint16](s, ChannelU16)
	registerPair[S, int32](s, ChannelI32)
	registerPair[S, uint32](s, ChannelU32)
	registerPair[S, int64](s, ChannelI64)
	registerPair[S, uint64](s, ChannelU64)
	registerPair[S, float32](s, ChannelF32)
	registerPair[S, float64](s, ChannelF64)
}

func channelAverage[T, A Scalar](src, dst []byte, n, stride int) {
	var acc A
	for i := 0; i < n; i++ {
		acc += A(loadScalar[T](src[i*stride:]))
	}
	storeScalar(dst, T(acc/A(n)))
}

// alphaScaleInt builds a premultiply or unpremultiply function for an
// integer kind. The scale is alpha over the kind's maximum; unpremultiply
// divides instead of multiplying. A zero alpha leaves color channels
// untouched so unpremultiplying fully transparent pixels stays defined.
func alphaScaleInt[T Scalar](maxv float64, unpremultiply bool) channelAlphaFunc {
	return func(src, dst []byte, n, stride int) {
		alpha := loadScalar[T](src[(n-1)*stride:])
		scale := float64(alpha) / maxv
		for i := 0; i < n-1; i++ {
			v := float64(loadScalar[T](src[i*stride:]))
			if scale == 0 {
				storeScalar(dst[i*stride:], T(v))
				continue
			}
			if unpremultiply {
				storeScalar(dst[i*stride:], T(math.Round(v/scale)))
			} else {
				storeScalar(dst[i*stride:], T(math.Round(v*scale)))
			}
		}
		storeScalar(dst[(n-1)*stride:], alpha)
	}
}

func alphaScaleFloat[T Scalar](unpremultiply bool) channelAlphaFunc {
	return func(src, dst []byte, n, stride int) {
		alpha := loadScalar[T](src[(n-1)*stride:])
		scale := float64(alpha)
		for i := 0; i < n-1; i++ {
			v := float64(loadScalar[T](src[i*stride:]))
			if scale == 0 {
				storeScalar(dst[i*stride:], T(v))
				continue
			}
			if unpremultiply {
				storeScalar(dst[i*stride:], T(v/scale))
			} else {
				storeScalar(dst[i*stride:], T(v*scale))
			}
		}
		storeScalar(dst[(n-1)*stride:], alpha)
	}
}

func registerIntKind[T Scalar](c ChannelType, maxStore func(dst []byte)) {
	channelSetMaxMap[c] = maxStore
	channelAverageMap[c] = channelAverage[T, int64]
	channelPremultiplyMap[c] = alphaScaleInt[T](channelMaxFloat(c), false)
	channelUnpremultiplyMap[c] = alphaScaleInt[T](channelMaxFloat(c), true)
}

func registerUintKind[T Scalar](c ChannelType, maxStore func(dst []byte)) {
	channelSetMaxMap[c] = maxStore
	channelAverageMap[c] = channelAverage[T, uint64]
	channelPremultiplyMap[c] = alphaScaleInt[T](channelMaxFloat(c), false)
	channelUnpremultiplyMap[c] = alphaScaleInt[T](channelMaxFloat(c), true)
}

func registerFloatKind[T Scalar](c ChannelType) {
	channelSetMaxMap[c] = func(dst []byte) { storeScalar(dst, T(1.0)) }
	channelAverageMap[c] = channelAverage[T, float64]
	channelPremultiplyMap[c] = alphaScaleFloat[T](false)
	channelUnpremultiplyMap[c] = alphaScaleFloat[T](true)
}

func init() {
	registerUintKind[uint8](ChannelU8, func(b []byte) { storeScalar[uint8](b, math.MaxUint8) })
	registerUintKind[uint16](ChannelU16, func(b []byte) { storeScalar[uint16](b, math.MaxUint16) })
	registerUintKind[uint32](ChannelU32, func(b []byte) { storeScalar[uint32](b, math.MaxUint32) })
	registerUintKind[uint64](ChannelU64, func(b []byte) { storeScalar[uint64](b, math.MaxUint64) })
	registerIntKind[int8](ChannelI8, func(b []byte) { storeScalar[int8](b, math.MaxInt8) })
	registerIntKind[int16](ChannelI16, func(b []byte) { storeScalar[int16](b, math.MaxInt16) })
	registerIntKind[int32](ChannelI32, func(b []byte) { storeScalar[int32](b, math.MaxInt32) })
	registerIntKind[int64](ChannelI64, func(b []byte) { storeScalar[int64](b, math.MaxInt64) })
	registerFloatKind[float32](ChannelF32)
	registerFloatKind[float64](ChannelF64)

	registerFrom[int8](ChannelI8)
	registerFrom[uint8](ChannelU8)
	registerFrom[int16](ChannelI16)
	registerFrom[uint16](ChannelU16)
	registerFrom[int32](ChannelI32)
	registerFrom[uint32](ChannelU32)
	registerFrom[int64](ChannelI64)
	registerFrom[uint64](ChannelU64)
	registerFrom[float32](ChannelF32)
	registerFrom[float64](ChannelF64)
}

// convertibleFormats checks whether two pixel formats may be converted into
// each other. Beyond identical formats, generic and masked formats pair with
// any format of the same stored channel count; everything else must be one
// of the core interchange formats.
func convertibleFormats(dst, src PixelFormat) error {
	if dst == src {
		return nil
	}
	sch, serr := src.StorageChannels()
	dch, derr := dst.StorageChannels()
	if serr != nil || derr != nil {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidPixelFormat, src, dst)
	}
	special := src.Masked() || dst.Masked() ||
		(src >= FormatGeneric1 && src <= FormatGeneric9) ||
		(dst >= FormatGeneric1 && dst <= FormatGeneric9)
	if special {
		if sch == dch {
			return nil
		}
		return fmt.Errorf("%w: %v and %v have different stored channel counts",
			ErrInvalidPixelFormat, src, dst)
	}
	core := func(f PixelFormat) bool {
		switch f {
		case FormatGray, FormatGrayA, FormatRGB, FormatRGBA, FormatXYZ:
			return true
		}
		return false
	}
	if !core(src) || !core(dst) {
		return fmt.Errorf("%w: incompatible pixel formats %v -> %v",
			ErrInvalidPixelFormat, src, dst)
	}
	return nil
}

// Convert copies pixel data from src into dst, converting pixel format and
// channel kind elementwise. Both buffers must cover the same number of
// columns and rows. With rescale set, channel values are remapped across the
// kinds' nominal ranges instead of cast.
//
// Channel-count changes follow the copy/triplicate policy: a single color
// channel fans out to the first three destination color channels, three or
// more collapse to the first of them, alpha channels are copied when both
// sides carry alpha, and a destination-only alpha is set fully opaque. Alpha
// association is adjusted according to the Premultiply flags of the two
// formats.
//
// A buffer whose counterpart is multi-channel with a single plane may be a
// single-channel Scalar raster with a matching plane count; the multi-channel
// buffer is then addressed as a multi-plane Scalar raster, one plane per
// channel, and converted plane by plane.
func Convert(dst, src ImageBuffer, rescale bool) error {
	if dst.Format.Cols != src.Format.Cols || dst.Format.Rows != src.Format.Rows {
		return fmt.Errorf("%w: destination buffer is %dx%d, source is %dx%d",
			ErrInvalidConfig, dst.Format.Cols, dst.Format.Rows, src.Format.Cols, src.Format.Rows)
	}

	if dst.Format.PixelType != src.Format.PixelType {
		// A multi-channel buffer freely aliases as multi-plane scalar.
		if src.Format.PixelType == FormatScalar && dst.Format.Planes == 1 {
			if dch, err := dst.Format.Channels(); err == nil && src.Format.Planes == dch {
				ndst := dst
				ndst.Format.PixelType = FormatScalar
				ndst.Format.Planes = src.Format.Planes
				cs, err := dst.Format.ChannelKind.SizeBytes()
				if err != nil {
					return err
				}
				ndst.PStride = cs
				return Convert(ndst, src, rescale)
			}
		}
		if dst.Format.PixelType == FormatScalar && src.Format.Planes == 1 {
			if sch, err := src.Format.Channels(); err == nil && dst.Format.Planes == sch {
				nsrc := src
				nsrc.Format.PixelType = FormatScalar
				nsrc.Format.Planes = dst.Format.Planes
				cs, err := src.Format.ChannelKind.SizeBytes()
				if err != nil {
					return err
				}
				nsrc.PStride = cs
				return Convert(dst, nsrc, rescale)
			}
		}
		if err := convertibleFormats(dst.Format.PixelType, src.Format.PixelType); err != nil {
			return err
		}
	}

	srcCh, err := src.Format.Channels()
	if err != nil {
		return err
	}
	dstCh, err := dst.Format.Channels()
	if err != nil {
		return err
	}
	srcCS, err := src.Format.ChannelKind.SizeBytes()
	if err != nil {
		return err
	}
	dstCS, err := dst.Format.ChannelKind.SizeBytes()
	if err != nil {
		return err
	}

	// Channel copy length: equal counts copy everything, two colorful sides
	// copy the three color channels, any narrow side reduces to a single
	// channel copied from channel zero.
	copyLength := 0
	switch {
	case srcCh == dstCh:
		copyLength = srcCh
	case srcCh >= 3 && dstCh >= 3:
		copyLength = 3
	default:
		copyLength = 1
	}

	srcAlpha := src.Format.PixelType.HasAlpha()
	dstAlpha := dst.Format.PixelType.HasAlpha()
	unpremultiplySrc := srcAlpha && src.Format.Premultiply && !dst.Format.Premultiply
	premultiplySrc := srcAlpha && !dstAlpha && !src.Format.Premultiply
	premultiplyDst := srcAlpha && dstAlpha && !src.Format.Premultiply && dst.Format.Premultiply

	triplicate := srcCh < 3 && dstCh >= 3
	average := srcCh >= 3 && dstCh < 3
	addAlpha := srcCh%2 == 1 && dstCh%2 == 0
	copyAlpha := srcCh != dstCh && srcCh%2 == 0 && dstCh%2 == 0

	srcKind := src.Format.ChannelKind.storage()
	dstKind := dst.Format.ChannelKind.storage()
	convMap := channelConvertMap
	if rescale {
		convMap = channelConvertRescaleMap
	}
	conv := convMap[[2]ChannelType{srcKind, dstKind}]
	maxFn := channelSetMaxMap[dstKind]
	avgFn := channelAverageMap[dstKind]
	unpremulSrcFn := channelUnpremultiplyMap[srcKind]
	premulSrcFn := channelPremultiplyMap[srcKind]
	premulDstFn := channelPremultiplyMap[dstKind]
	if conv == nil || maxFn == nil || avgFn == nil || unpremulSrcFn == nil ||
		premulSrcFn == nil || premulDstFn == nil {
		return fmt.Errorf("%w: unsupported conversion %v -> %v",
			ErrInvalidChannelType, src.Format.ChannelKind, dst.Format.ChannelKind)
	}

	maxCh := max(srcCh, dstCh)
	srcScratch := make([]byte, maxCh*srcCS)
	dstScratch := make([]byte, maxCh*dstCS)

	for p := 0; p < src.Format.Planes; p++ {
		for r := 0; r < src.Format.Rows; r++ {
			srcRow := src.At(0, r, p)
			dstRow := dst.At(0, r, p)
			for c := 0; c < src.Format.Cols; c++ {
				srcPix := srcRow[c*src.CStride:]
				dstPix := dstRow[c*dst.CStride:]

				if unpremultiplySrc {
					unpremulSrcFn(srcPix, srcScratch, srcCh, srcCS)
					srcPix = srcScratch
				} else if premultiplySrc {
					premulSrcFn(srcPix, srcScratch, srcCh, srcCS)
					srcPix = srcScratch
				}

				// The averaged mean lands first; the channel-zero copy below
				// takes precedence on the shared destination channel.
				if average {
					for ch := 0; ch < 3; ch++ {
						conv(srcPix[ch*srcCS:], dstScratch[ch*dstCS:])
					}
					avgFn(dstScratch, dstPix, 3, dstCS)
				}

				for ch := 0; ch < copyLength; ch++ {
					conv(srcPix[ch*srcCS:], dstPix[ch*dstCS:])
				}

				if triplicate {
					conv(srcPix, dstPix[dstCS:])
					conv(srcPix, dstPix[2*dstCS:])
				}
				if copyAlpha {
					conv(srcPix[(srcCh-1)*srcCS:], dstPix[(dstCh-1)*dstCS:])
				} else if addAlpha {
					maxFn(dstPix[(dstCh-1)*dstCS:])
				}

				if premultiplyDst {
					premulDstFn(dstPix, dstPix, dstCh, dstCS)
				}
			}
		}
	}
	return nil
}
