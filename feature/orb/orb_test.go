package orb

import (
	"errors"
	"testing"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/feature"
)

// brightSquare builds a dark gray image with one bright square, whose
// corners trip the FAST segment test.
func brightSquare(cols, rows int, sq timage.Rect) *timage.MemoryImage[timage.Gray[uint8]] {
	m := timage.NewMemoryImage[timage.Gray[uint8]](cols, rows, 1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := uint8(15)
			if sq.Contains(x, y) {
				v = 240
			}
			m.SetPixelAt(x, y, 0, timage.Gray[uint8]{V: v})
		}
	}
	return m
}

func TestORBDetectsSquareCorners(t *testing.T) {
	img := brightSquare(128, 128, timage.NewRect(40, 40, 48, 48))
	cfg := DefaultConfig()
	cfg.NumPyrLevels = 1
	det, err := Generator{}.NewDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	points, err := feature.DetectImage[timage.Gray[uint8]](det, img, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) == 0 {
		t.Fatal("no features found")
	}
	for _, pt := range points {
		// Features cluster at the square's corners, never in flat areas.
		nearCorner := false
		for _, c := range [][2]int{{40, 40}, {87, 40}, {40, 87}, {87, 87}} {
			dx := int(pt.RasterX) - c[0]
			dy := int(pt.RasterY) - c[1]
			if dx*dx+dy*dy <= 36 {
				nearCorner = true
				break
			}
		}
		if !nearCorner {
			t.Errorf("feature at (%d, %d) is far from every corner", pt.RasterX, pt.RasterY)
		}
		if pt.AngleRad == -1 {
			t.Error("feature has no orientation")
		}
	}
}

func TestORBRespectsBudget(t *testing.T) {
	img := brightSquare(128, 128, timage.NewRect(40, 40, 48, 48))
	det, err := Generator{}.NewDetector(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	points, err := feature.DetectImage[timage.Gray[uint8]](det, img, true, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) > 2 {
		t.Errorf("budget exceeded: %d points", len(points))
	}
}

func TestORBExtractFillsDescriptors(t *testing.T) {
	img := brightSquare(128, 128, timage.NewRect(40, 40, 48, 48))
	cfg := DefaultConfig()
	cfg.NumPyrLevels = 1
	det, err := Generator{}.NewDetector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	points, err := feature.DetectImage[timage.Gray[uint8]](det, img, true, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) == 0 {
		t.Fatal("no features to describe")
	}
	if err := feature.ExtractImage[timage.Gray[uint8]](det, img, points, true); err != nil {
		t.Fatal(err)
	}
	for i, pt := range points {
		if len(pt.Descriptor) != 32 {
			t.Fatalf("point %d descriptor length %d, want 32", i, len(pt.Descriptor))
		}
	}

	// The descriptor pattern is deterministic: extracting twice yields
	// identical descriptors.
	again := make([]feature.InterestPoint, len(points))
	copy(again, points)
	for i := range again {
		again[i].Descriptor = nil
	}
	if err := feature.ExtractImage[timage.Gray[uint8]](det, img, again, true); err != nil {
		t.Fatal(err)
	}
	for i := range points {
		for j := range points[i].Descriptor {
			if points[i].Descriptor[j] != again[i].Descriptor[j] {
				t.Fatalf("point %d descriptor differs between runs", i)
			}
		}
	}
}

func TestORBConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WTAK = 3
	if _, err := (Generator{}).NewDetector(cfg); !errors.Is(err, timage.ErrInvalidConfig) {
		t.Errorf("wta_k=3 error = %v", err)
	}
	cfg = DefaultConfig()
	cfg.ScoreType = "SOMETHING"
	if _, err := (Generator{}).NewDetector(cfg); !errors.Is(err, timage.ErrInvalidConfig) {
		t.Errorf("bad score type error = %v", err)
	}
	cfg = DefaultConfig()
	if !cfg.SupportsDescriptors() {
		t.Error("orb should support descriptors")
	}
}
