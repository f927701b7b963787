package timage

import (
	"errors"
	"testing"
)

// rampImage builds a deterministic test pattern: pixel(x, y) = x + 256*y.
func rampImage(cols, rows int) *MemoryImage[uint16] {
	m := NewMemoryImage[uint16](cols, rows, 1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.SetPixelAt(x, y, 0, uint16(x+256*y))
		}
	}
	return m
}

func TestMemoryImageSetSizeCaps(t *testing.T) {
	tests := []struct {
		name                string
		cols, rows, planes  int
		wantErr             error
	}{
		{"both sides too large", 100_000, 100_000, 1, ErrOutOfMemory},
		{"one side large is fine", 100_000, 1, 1, nil},
		{"too many planes", 4, 4, 1024, ErrOutOfMemory},
		{"negative", -1, 4, 1, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m MemoryImage[uint8]
			err := m.SetSize(tt.cols, tt.rows, tt.planes)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetSize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoryImageResizePreservesOnNoop(t *testing.T) {
	m := NewMemoryImage[uint8](2, 2, 1)
	m.SetPixelAt(1, 1, 0, 42)
	if err := m.SetSize(2, 2, 1); err != nil {
		t.Fatal(err)
	}
	if m.PixelAt(1, 1, 0) != 42 {
		t.Error("no-op resize discarded contents")
	}
}

func TestCropComposition(t *testing.T) {
	// Crop(Crop(v, a), b) samples identically to Crop(v, a+b) on the
	// shared domain.
	src := rampImage(32, 32)
	inner := Crop[uint16](src, 4, 6, 20, 20)
	nested := Crop[uint16](inner, 3, 2, 10, 10)
	direct := Crop[uint16](src, 7, 8, 10, 10)

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if nested.PixelAt(x, y, 0) != direct.PixelAt(x, y, 0) {
				t.Fatalf("pixel (%d, %d): nested %d != direct %d",
					x, y, nested.PixelAt(x, y, 0), direct.PixelAt(x, y, 0))
			}
		}
	}
}

func TestCropRasterize(t *testing.T) {
	src := rampImage(16, 16)
	crop := Crop[uint16](src, 2, 3, 8, 8)
	out, err := Materialize[uint16](crop)
	if err != nil {
		t.Fatal(err)
	}
	if out.Cols() != 8 || out.Rows() != 8 {
		t.Fatalf("materialized %dx%d", out.Cols(), out.Rows())
	}
	if got, want := out.PixelAt(0, 0, 0), uint16(2+256*3); got != want {
		t.Errorf("pixel (0,0) = %d, want %d", got, want)
	}
}

func TestPerPixelView(t *testing.T) {
	src := rampImage(4, 4)
	doubled := PerPixel[uint16, uint32](src, func(v uint16) uint32 { return 2 * uint32(v) })
	if got, want := doubled.PixelAt(3, 2, 0), uint32(2*(3+256*2)); got != want {
		t.Errorf("PixelAt = %d, want %d", got, want)
	}
	out, err := Materialize[uint32](doubled)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.PixelAt(1, 1, 0); got != 2*(1+256) {
		t.Errorf("materialized pixel = %d", got)
	}
}

func TestSelectPlaneView(t *testing.T) {
	m := NewMemoryImage[uint8](2, 2, 3)
	for p := 0; p < 3; p++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				m.SetPixelAt(x, y, p, uint8(10*p+x+2*y))
			}
		}
	}
	v := SelectPlane[uint8](m, 2)
	if v.Planes() != 1 {
		t.Fatalf("Planes() = %d", v.Planes())
	}
	if got := v.PixelAt(1, 1, 0); got != 23 {
		t.Errorf("PixelAt = %d, want 23", got)
	}
}

func TestSparseViewOverlay(t *testing.T) {
	src := rampImage(8, 8)
	blob := NewUniformBlob[uint16](9999)
	blob.Insert(2, 2)
	blob.Insert(3, 2)
	v := Overlay[uint16](src, blob)

	if got := v.PixelAt(2, 2, 0); got != 9999 {
		t.Errorf("overlay pixel = %d, want 9999", got)
	}
	if got := v.PixelAt(4, 4, 0); got != 4+256*4 {
		t.Errorf("pass-through pixel = %d", got)
	}
	if blob.Size() != 2 {
		t.Errorf("blob size = %d", blob.Size())
	}
}

func TestRasterizeIntoRejectsBadDest(t *testing.T) {
	src := rampImage(8, 8)
	// A fixed-size destination of the wrong shape fails.
	w := &fixedRaster{cols: 8, rows: 8, pix: make([]uint16, 64)}
	err := RasterizeInto[uint16](src, w, NewRect(0, 0, 4, 4))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

// fixedRaster is a destination without SetSize, so it cannot adapt its
// shape to the request.
type fixedRaster struct {
	cols, rows int
	pix        []uint16
}

func (f *fixedRaster) Cols() int   { return f.cols }
func (f *fixedRaster) Rows() int   { return f.rows }
func (f *fixedRaster) Planes() int { return 1 }

func (f *fixedRaster) PixelAt(x, y, p int) uint16 { return f.pix[y*f.cols+x] }

func (f *fixedRaster) SetPixelAt(x, y, p int, v uint16) { f.pix[y*f.cols+x] = v }

func (f *fixedRaster) Prerasterize(Rect) Image[uint16] { return f }

func (f *fixedRaster) Rasterize(dst Raster[uint16], bbox Rect) error {
	return RasterizeInto[uint16](f, dst, bbox)
}
