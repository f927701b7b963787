// Package gftt implements a good-features-to-track corner detector: Sobel
// gradients, a windowed structure tensor scored by minimum eigenvalue or
// the Harris measure, and greedy minimum-distance suppression.
package gftt

import (
	"fmt"
	"math"
	"sort"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/feature"
)

// Config parameterizes the detector.
type Config struct {
	// MaxCorners bounds the number of returned corners; 0 keeps the
	// strongest 1000.
	MaxCorners int

	// QualityLevel rejects corners scoring below this fraction of the
	// strongest corner's score.
	QualityLevel float64

	// MinDistance is the minimum Euclidean spacing between corners in
	// pixels.
	MinDistance float64

	// BlockSize is the structure-tensor window size.
	BlockSize int

	// UseHarris selects the Harris measure instead of the minimum
	// eigenvalue.
	UseHarris bool

	// K is the Harris detector free parameter.
	K float64

	// TileW and TileH set the preferred tile size for tiled detection.
	TileW, TileH int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		MaxCorners:   1000,
		QualityLevel: 0.01,
		MinDistance:  1,
		BlockSize:    3,
		K:            0.04,
		TileW:        1024,
		TileH:        1024,
	}
}

func (c Config) MaxFeatures() int { return c.MaxCorners }

func (c Config) TileSize() (int, int) {
	if c.TileW <= 0 || c.TileH <= 0 {
		return 1024, 1024
	}
	return c.TileW, c.TileH
}

func (c Config) AllowCustomTileSize() bool { return true }
func (c Config) SupportsDescriptors() bool { return false }

// Generator recognizes gftt.Config values.
type Generator struct{}

func (Generator) Recognizes(cfg feature.Config) bool {
	_, ok := cfg.(Config)
	return ok
}

func (Generator) NewDetector(cfg feature.Config) (feature.Detector, error) {
	c, ok := cfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: not a gftt configuration", timage.ErrDriverNotFound)
	}
	return &Detector{cfg: c}, nil
}

// Detector is the good-features-to-track corner detector.
// It works on single-channel F32 data; other inputs are converted through
// the shared preparation utility.
type Detector struct {
	cfg Config
}

var _ feature.Detector = (*Detector)(nil)

func (d *Detector) Name() string           { return "gftt" }
func (d *Detector) Config() feature.Config { return d.cfg }

func (d *Detector) Detect(buf timage.ImageBuffer, castIfUnsupported bool, maxPointsOverride int) ([]feature.InterestPoint, error) {
	prep, err := feature.PrepareBuffer(buf, castIfUnsupported,
		timage.FormatGray, timage.ChannelF32, d.Name())
	if err != nil {
		return nil, err
	}
	cols, rows := prep.Format.Cols, prep.Format.Rows
	gray := timage.ScalarData[float32](prep)
	if gray == nil {
		return nil, fmt.Errorf("%w: unexpected working buffer layout", timage.ErrConversion)
	}

	limit := d.cfg.MaxCorners
	if maxPointsOverride > 0 {
		limit = maxPointsOverride
	}
	if limit <= 0 {
		limit = 1000
	}

	scores := d.cornerScores(gray, cols, rows)

	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	threshold := d.cfg.QualityLevel * maxScore

	type candidate struct {
		x, y  int
		score float64
	}
	var cands []candidate
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			s := scores[y*cols+x]
			if s <= threshold || s <= 0 {
				continue
			}
			// Local non-maximum suppression over the 8-neighborhood.
			if s < scores[(y-1)*cols+x] || s < scores[(y+1)*cols+x] ||
				s < scores[y*cols+x-1] || s < scores[y*cols+x+1] ||
				s < scores[(y-1)*cols+x-1] || s < scores[(y-1)*cols+x+1] ||
				s < scores[(y+1)*cols+x-1] || s < scores[(y+1)*cols+x+1] {
				continue
			}
			cands = append(cands, candidate{x: x, y: y, score: s})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	minDist2 := d.cfg.MinDistance * d.cfg.MinDistance
	var out []feature.InterestPoint
	for _, c := range cands {
		if len(out) >= limit {
			break
		}
		if minDist2 > 0 {
			ok := true
			for i := range out {
				dx := float64(c.x) - float64(out[i].RasterX)
				dy := float64(c.y) - float64(out[i].RasterY)
				if dx*dx+dy*dy < minDist2 {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		pt := feature.NewInterestPoint(float32(c.x), float32(c.y))
		pt.Response = float32(c.score)
		out = append(out, pt)
	}
	return out, nil
}

// Extract is unsupported: the detector computes no descriptors.
func (d *Detector) Extract(timage.ImageBuffer, []feature.InterestPoint, bool) error {
	return fmt.Errorf("%w: gftt computes no descriptors", timage.ErrNotImplemented)
}

// cornerScores computes the per-pixel corner measure over a windowed
// structure tensor.
func (d *Detector) cornerScores(gray []float32, cols, rows int) []float64 {
	gx := make([]float64, cols*rows)
	gy := make([]float64, cols*rows)
	at := func(x, y int) float64 { return float64(gray[y*cols+x]) }
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			gx[y*cols+x] = (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy[y*cols+x] = (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
		}
	}

	half := d.cfg.BlockSize / 2
	if half < 1 {
		half = 1
	}
	scores := make([]float64, cols*rows)
	for y := half; y < rows-half; y++ {
		for x := half; x < cols-half; x++ {
			var sxx, syy, sxy float64
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					ix := gx[(y+dy)*cols+x+dx]
					iy := gy[(y+dy)*cols+x+dx]
					sxx += ix * ix
					syy += iy * iy
					sxy += ix * iy
				}
			}
			if d.cfg.UseHarris {
				det := sxx*syy - sxy*sxy
				trace := sxx + syy
				scores[y*cols+x] = det - d.cfg.K*trace*trace
			} else {
				// Minimum eigenvalue of the 2x2 structure tensor.
				scores[y*cols+x] = (sxx + syy -
					math.Sqrt((sxx-syy)*(sxx-syy)+4*sxy*sxy)) / 2
			}
		}
	}
	return scores
}
