package timage

import (
	"math"
	"unsafe"
)

// Scalar is the constraint satisfied by every storable channel value type.
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~float32 | ~float64
}

// loadScalar reads a native-endian scalar from the head of b.
func loadScalar[T Scalar](b []byte) T {
	return *(*T)(unsafe.Pointer(&b[0]))
}

// storeScalar writes a native-endian scalar to the head of b.
func storeScalar[T Scalar](b []byte, v T) {
	*(*T)(unsafe.Pointer(&b[0])) = v
}

// rawBytes reinterprets a pixel slice as its backing bytes. Pixel types are
// arrays of a single scalar kind, so the layout has no padding.
func rawBytes[P any](data []P) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero P
	n := len(data) * int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), n)
}

// ScalarData reinterprets a buffer's backing bytes as channel values of
// type C. The buffer must hold channels whose storage size matches C;
// otherwise nil is returned. The slice aliases the buffer.
func ScalarData[C Scalar](buf ImageBuffer) []C {
	var zero C
	size := int(unsafe.Sizeof(zero))
	if cs, err := buf.Format.ChannelKind.SizeBytes(); err != nil || cs != size {
		return nil
	}
	if len(buf.Data) == 0 {
		return nil
	}
	return unsafe.Slice((*C)(unsafe.Pointer(&buf.Data[0])), len(buf.Data)/size)
}

// channelOf resolves the channel kind of a Go scalar type.
// Unrecognized types map to ChannelUnknown.
func channelOf[C Scalar]() ChannelType {
	var zero C
	switch any(zero).(type) {
	case int8:
		return ChannelI8
	case uint8:
		return ChannelU8
	case int16:
		return ChannelI16
	case uint16:
		return ChannelU16
	case int32:
		return ChannelI32
	case uint32:
		return ChannelU32
	case int64:
		return ChannelI64
	case uint64:
		return ChannelU64
	case float32:
		return ChannelF32
	case float64:
		return ChannelF64
	}
	return ChannelUnknown
}

// channelMaxFloat returns the maximum value of a channel kind as a float64:
// the native integer maximum for integer kinds, 1.0 for floats.
func channelMaxFloat(c ChannelType) float64 {
	switch c.storage() {
	case ChannelU8:
		return math.MaxUint8
	case ChannelU16:
		return math.MaxUint16
	case ChannelU32:
		return math.MaxUint32
	case ChannelU64:
		return math.MaxUint64
	case ChannelI8:
		return math.MaxInt8
	case ChannelI16:
		return math.MaxInt16
	case ChannelI32:
		return math.MaxInt32
	case ChannelI64:
		return math.MaxInt64
	}
	return 1.0
}
