package timage

import (
	"errors"
	"math"
	"testing"
)

func grayU8Buffer(cols, rows int, vals ...uint8) ImageBuffer {
	buf := AllocateBuffer(NewImageFormat(cols, rows, FormatGray, ChannelU8))
	copy(buf.Data, vals)
	return buf
}

func TestConvertFirstChannelCopyRGBToGray(t *testing.T) {
	// A 1x1 RGB u8 pixel converts to gray by copying the first channel,
	// not by averaging or luminance weighting.
	src := AllocateBuffer(NewImageFormat(1, 1, FormatRGB, ChannelU8))
	copy(src.Data, []uint8{12, 34, 56})
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU8))

	if err := Convert(dst, src, false); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if dst.Data[0] != 12 {
		t.Errorf("Gray = %d, want 12 (first-channel copy)", dst.Data[0])
	}
}

func TestConvertGrayToRGBAWithRescale(t *testing.T) {
	// Triplicate fans the single channel into R, G, B; the added alpha is
	// the destination kind's maximum.
	src := grayU8Buffer(1, 1, 128)
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatRGBA, ChannelU16))

	if err := Convert(dst, src, true); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	got := ScalarData[uint16](dst)
	want := []uint16{32896, 32896, 32896, 65535}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("channel %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestConvertPremultipliedRGBAToRGB(t *testing.T) {
	srcFormat := NewImageFormat(1, 1, FormatRGBA, ChannelF32)
	srcFormat.Premultiply = true
	src := AllocateBuffer(srcFormat)
	copy(ScalarData[float32](src), []float32{0.5, 0, 0, 0.5})

	dst := AllocateBuffer(NewImageFormat(1, 1, FormatRGB, ChannelU8))
	if err := Convert(dst, src, true); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	want := []uint8{255, 0, 0}
	for i := range want {
		if dst.Data[i] != want[i] {
			t.Errorf("channel %d = %d, want %d", i, dst.Data[i], want[i])
		}
	}
}

func TestConvertIdentityCopiesVerbatim(t *testing.T) {
	vals := []uint8{7, 99, 255, 0, 128, 13}
	src := AllocateBuffer(NewImageFormat(2, 1, FormatRGB, ChannelU8))
	copy(src.Data, vals)
	dst := AllocateBuffer(src.Format)

	for _, rescale := range []bool{false, true} {
		if err := Convert(dst, src, rescale); err != nil {
			t.Fatalf("Convert(rescale=%v) error: %v", rescale, err)
		}
		for i := range vals {
			if dst.Data[i] != vals[i] {
				t.Errorf("rescale=%v byte %d = %d, want %d", rescale, i, dst.Data[i], vals[i])
			}
		}
	}
}

func TestConvertRoundTripSameWidth(t *testing.T) {
	// Casting between kinds of equal byte width round-trips exactly,
	// including values that wrap the signed range.
	for _, v := range []uint16{0, 1, 32767, 32768, 50000, 65535} {
		src := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU16))
		ScalarData[uint16](src)[0] = v
		mid := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelI16))
		back := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU16))

		if err := Convert(mid, src, false); err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if err := Convert(back, mid, false); err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if got := ScalarData[uint16](back)[0]; got != v {
			t.Errorf("round trip of %d = %d", v, got)
		}
	}
}

func TestConvertRescaleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kind ChannelType
		step int
	}{
		{"u8 via u16", ChannelU16, 1},
		{"u8 via f32", ChannelF32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for v := 0; v <= 255; v += 17 {
				src := grayU8Buffer(1, 1, uint8(v))
				mid := AllocateBuffer(NewImageFormat(1, 1, FormatGray, tt.kind))
				back := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU8))
				if err := Convert(mid, src, true); err != nil {
					t.Fatalf("Convert() error: %v", err)
				}
				if err := Convert(back, mid, true); err != nil {
					t.Fatalf("Convert() error: %v", err)
				}
				diff := int(back.Data[0]) - v
				if diff < 0 {
					diff = -diff
				}
				if diff > tt.step {
					t.Errorf("round trip of %d = %d (off by %d)", v, back.Data[0], diff)
				}
			}
		})
	}
}

func TestConvertU16U8Rescale(t *testing.T) {
	src := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU16))
	ScalarData[uint16](src)[0] = 32896
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU8))
	if err := Convert(dst, src, true); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if dst.Data[0] != 128 {
		t.Errorf("u16 32896 -> u8 = %d, want 128", dst.Data[0])
	}
}

func TestConvertFloatToIntClampsToUnit(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-5, 0},
		{-0.001, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{42, 255},
		{float32(math.Inf(1)), 255},
	}
	for _, tt := range tests {
		src := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelF32))
		ScalarData[float32](src)[0] = tt.in
		dst := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU8))
		if err := Convert(dst, src, true); err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		if dst.Data[0] != tt.want {
			t.Errorf("f32 %g -> u8 = %d, want %d", tt.in, dst.Data[0], tt.want)
		}
	}
}

func TestConvertPremultiplyIdempotence(t *testing.T) {
	// Converting a premultiplied buffer into a premultiplied destination
	// applies no alpha scaling at all.
	srcFormat := NewImageFormat(1, 1, FormatRGBA, ChannelU8)
	srcFormat.Premultiply = true
	src := AllocateBuffer(srcFormat)
	copy(src.Data, []uint8{60, 30, 10, 120})
	dst := AllocateBuffer(srcFormat)
	if err := Convert(dst, src, false); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	for i := range src.Data {
		if dst.Data[i] != src.Data[i] {
			t.Errorf("byte %d = %d, want %d", i, dst.Data[i], src.Data[i])
		}
	}

	// Unpremultiplying a fully opaque buffer is a no-op.
	copy(src.Data, []uint8{60, 30, 10, 255})
	plain := NewImageFormat(1, 1, FormatRGBA, ChannelU8)
	dst2 := AllocateBuffer(plain)
	if err := Convert(dst2, src, false); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	for i := range src.Data {
		if dst2.Data[i] != src.Data[i] {
			t.Errorf("opaque unpremultiply byte %d = %d, want %d", i, dst2.Data[i], src.Data[i])
		}
	}
}

func TestConvertScalarPlaneReinterpretation(t *testing.T) {
	// A 3-plane scalar buffer converts into a single-plane RGB buffer.
	srcFormat := ImageFormat{Cols: 2, Rows: 1, Planes: 3, PixelType: FormatScalar, ChannelKind: ChannelU8}
	src := AllocateBuffer(srcFormat)
	copy(src.Data, []uint8{1, 2, 10, 20, 100, 200})
	dst := AllocateBuffer(NewImageFormat(2, 1, FormatRGB, ChannelU8))

	if err := Convert(dst, src, false); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	want := []uint8{1, 10, 100, 2, 20, 200}
	for i := range want {
		if dst.Data[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, dst.Data[i], want[i])
		}
	}
}

func TestConvertRejectsMismatchedSizes(t *testing.T) {
	src := grayU8Buffer(2, 2, 1, 2, 3, 4)
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatGray, ChannelU8))
	if err := Convert(dst, src, false); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Convert() error = %v, want ErrInvalidConfig", err)
	}
}

func TestConvertRejectsExoticFormats(t *testing.T) {
	src := AllocateBuffer(NewImageFormat(1, 1, FormatHSV, ChannelU8))
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatLAB, ChannelU8))
	if err := Convert(dst, src, false); !errors.Is(err, ErrInvalidPixelFormat) {
		t.Errorf("Convert() error = %v, want ErrInvalidPixelFormat", err)
	}
}

func TestConvertMaskedToAlphaCounterpart(t *testing.T) {
	// RGBMasked stores validity as a fourth channel, so it converts to and
	// from RGBA with the validity mapped onto alpha.
	src := AllocateBuffer(NewImageFormat(1, 1, FormatRGBMasked, ChannelU8))
	copy(src.Data, []uint8{10, 20, 30, 255})
	dst := AllocateBuffer(NewImageFormat(1, 1, FormatRGBA, ChannelU8))
	if err := Convert(dst, src, false); err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	want := []uint8{10, 20, 30, 255}
	for i := range want {
		if dst.Data[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, dst.Data[i], want[i])
		}
	}
}
