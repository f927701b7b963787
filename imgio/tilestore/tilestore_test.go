package tilestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

func rampImage(cols, rows int) *timage.MemoryImage[timage.Gray[uint16]] {
	m := timage.NewMemoryImage[timage.Gray[uint16]](cols, rows, 1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.SetPixelAt(x, y, 0, timage.Gray[uint16]{V: uint16(x + 256*y)})
		}
	}
	return m
}

func writeRamp(t *testing.T, path string, cols, rows, blockW, blockH int, options map[string]string) {
	t.Helper()
	src := rampImage(cols, rows)
	res, err := Factory{}.CreateWriteDriver(path, src.Format(), options, blockW, blockH)
	if err != nil {
		t.Fatal(err)
	}
	if err := imgio.WriteImage[timage.Gray[uint16]](res, src, nil); err != nil {
		t.Fatal(err)
	}
}

func TestTileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.tls")
	writeRamp(t, path, 100, 70, 32, 32, nil)

	got, err := imgio.ReadImage[timage.Gray[uint16]](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cols() != 100 || got.Rows() != 70 {
		t.Fatalf("read %dx%d", got.Cols(), got.Rows())
	}
	for y := 0; y < 70; y++ {
		for x := 0; x < 100; x++ {
			if got.PixelAt(x, y, 0).V != uint16(x+256*y) {
				t.Fatalf("pixel (%d, %d) = %d, want %d", x, y, got.PixelAt(x, y, 0).V, x+256*y)
			}
		}
	}
}

func TestTileStoreBlockReadRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.tls")
	writeRamp(t, path, 64, 64, 16, 16, nil)

	res, err := Factory{}.CreateReadDriver(path)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasBlockRead() {
		t.Error("tile store should advertise block reads")
	}
	if w, h := res.BlockReadSize(); w != 16 || h != 16 {
		t.Errorf("block size = %dx%d", w, h)
	}

	// A region straddling four tiles with an unaligned origin.
	bbox := timage.NewRect(10, 12, 20, 18)
	got, err := imgio.ReadImageFromResource[timage.Gray[uint16]](res, bbox)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < bbox.Height; y++ {
		for x := 0; x < bbox.Width; x++ {
			want := uint16(bbox.MinX + x + 256*(bbox.MinY+y))
			if got.PixelAt(x, y, 0).V != want {
				t.Fatalf("pixel (%d, %d) = %d, want %d", x, y, got.PixelAt(x, y, 0).V, want)
			}
		}
	}
}

func TestTileStoreNoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodata.tls")
	writeRamp(t, path, 8, 8, 8, 8, map[string]string{"nodata": "-9999"})

	res, err := Factory{}.CreateReadDriver(path)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasNoDataRead() {
		t.Fatal("nodata flag lost")
	}
	if got := res.NoDataRead(); got != -9999 {
		t.Errorf("nodata = %g, want -9999", got)
	}
}

func TestTileStoreProbeRejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.tls")
	if err := os.WriteFile(path, []byte("not a tile store"), 0o644); err != nil {
		t.Fatal(err)
	}
	if (Factory{}).IsReadSupported(path) {
		t.Error("probe accepted a foreign file")
	}
	if _, err := imgio.ReadImage[timage.Gray[uint16]](path, nil); err == nil {
		t.Error("reading a foreign file should fail")
	}
}

func TestTileStoreMultiPlane(t *testing.T) {
	src := timage.NewMemoryImage[float32](16, 16, 3)
	for p := 0; p < 3; p++ {
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				src.SetPixelAt(x, y, p, float32(p*1000+y*16+x))
			}
		}
	}
	path := filepath.Join(t.TempDir(), "planes.tls")
	res, err := Factory{}.CreateWriteDriver(path, src.Format(), nil, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := imgio.WriteImage[float32](res, src, nil); err != nil {
		t.Fatal(err)
	}

	got, err := imgio.ReadImage[float32](path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Planes() != 3 {
		t.Fatalf("planes = %d", got.Planes())
	}
	for p := 0; p < 3; p++ {
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				if got.PixelAt(x, y, p) != src.PixelAt(x, y, p) {
					t.Fatalf("pixel (%d, %d, %d) mismatch", x, y, p)
				}
			}
		}
	}
}
