package tiffdrv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

func TestTIFFRoundTripGray16(t *testing.T) {
	src := timage.NewMemoryImage[timage.Gray[uint16]](20, 10, 1)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			src.SetPixelAt(x, y, 0, timage.Gray[uint16]{V: uint16(x*1000 + y)})
		}
	}
	path := filepath.Join(t.TempDir(), "dem.tif")
	if err := imgio.WriteImageFile[timage.Gray[uint16]](path, src, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	got, err := imgio.ReadImage[timage.Gray[uint16]](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if got.PixelAt(x, y, 0) != src.PixelAt(x, y, 0) {
				t.Fatalf("pixel (%d, %d) = %d, want %d",
					x, y, got.PixelAt(x, y, 0).V, src.PixelAt(x, y, 0).V)
			}
		}
	}
}

func TestTIFFCompressionOptions(t *testing.T) {
	src := timage.NewMemoryImage[timage.Gray[uint8]](8, 8, 1)
	for _, compression := range []string{"none", "deflate", "lzw"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "img.tif")
			opts := map[string]string{"compression": compression}
			if err := imgio.WriteImageFile[timage.Gray[uint8]](path, src, opts, nil, nil); err != nil {
				t.Fatal(err)
			}
			if _, err := imgio.ReadImage[timage.Gray[uint8]](path, nil); err != nil {
				t.Fatal(err)
			}
		})
	}

	_, err := Factory{}.CreateWriteDriver("x.tif", src.Format(), map[string]string{"compression": "bogus"}, 0, 0)
	if !errors.Is(err, timage.ErrInvalidConfig) {
		t.Errorf("bogus compression error = %v, want ErrInvalidConfig", err)
	}
}
