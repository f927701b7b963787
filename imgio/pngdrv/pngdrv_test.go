package pngdrv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

func TestPNGRoundTripGray(t *testing.T) {
	src := timage.NewMemoryImage[timage.Gray[uint8]](32, 16, 1)
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			src.SetPixelAt(x, y, 0, timage.Gray[uint8]{V: uint8(x*7 + y*3)})
		}
	}
	path := filepath.Join(t.TempDir(), "gray.png")
	if err := imgio.WriteImageFile[timage.Gray[uint8]](path, src, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	got, err := imgio.ReadImage[timage.Gray[uint8]](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			if got.PixelAt(x, y, 0) != src.PixelAt(x, y, 0) {
				t.Fatalf("pixel (%d, %d) = %d, want %d",
					x, y, got.PixelAt(x, y, 0).V, src.PixelAt(x, y, 0).V)
			}
		}
	}
}

func TestPNGRoundTripRGBA(t *testing.T) {
	src := timage.NewMemoryImage[timage.RGBA[uint8]](8, 8, 1)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetPixelAt(x, y, 0, timage.RGBA[uint8]{
				R: uint8(x * 30), G: uint8(y * 30), B: 77, A: 255,
			})
		}
	}
	path := filepath.Join(t.TempDir(), "color.png")
	if err := imgio.WriteImageFile[timage.RGBA[uint8]](path, src, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	got, err := imgio.ReadImage[timage.RGBA[uint8]](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got.PixelAt(x, y, 0) != src.PixelAt(x, y, 0) {
				t.Fatalf("pixel (%d, %d) mismatch", x, y)
			}
		}
	}
}

func TestPNGProbeRejectsNonPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	if err := os.WriteFile(path, []byte("not a png at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if (Factory{}).IsReadSupported(path) {
		t.Error("probe accepted a non-PNG file")
	}
	if (Factory{}).IsReadSupported(filepath.Join(t.TempDir(), "missing.png")) {
		t.Error("probe accepted a missing file")
	}
}
