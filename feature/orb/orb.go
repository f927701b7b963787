// Package orb implements an ORB-style detector: FAST corners scored by the
// segment test or the Harris measure over an image pyramid, oriented by
// intensity centroid, with rotated binary-test patch descriptors.
package orb

import (
	"fmt"
	"math"
	"sort"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/feature"
)

// Score type selectors.
const (
	ScoreHarris = "HARRIS"
	ScoreFast   = "FAST"
)

// Config parameterizes the detector.
type Config struct {
	// MaxFeaturesCount bounds the total number of keypoints; 0 keeps 500.
	MaxFeaturesCount int

	// ScaleFactor is the pyramid decimation ratio, > 1.
	ScaleFactor float64

	// NumPyrLevels is the number of pyramid levels.
	NumPyrLevels int

	// EdgeThreshold is the border margin where no features are detected.
	EdgeThreshold int

	// BasePyrLevel is the pyramid level the source image is placed on.
	BasePyrLevel int

	// WTAK is the number of points producing each descriptor element;
	// only 2 is supported.
	WTAK int

	// ScoreType selects ScoreHarris or ScoreFast.
	ScoreType string

	// PatchSize is the descriptor patch diameter.
	PatchSize int

	// FastThreshold is the FAST segment-test intensity threshold.
	FastThreshold int

	// TileW and TileH set the preferred tile size for tiled detection.
	TileW, TileH int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		MaxFeaturesCount: 500,
		ScaleFactor:      1.2,
		NumPyrLevels:     8,
		EdgeThreshold:    31,
		WTAK:             2,
		ScoreType:        ScoreHarris,
		PatchSize:        31,
		FastThreshold:    20,
		TileW:            1024,
		TileH:            1024,
	}
}

func (c Config) MaxFeatures() int {
	return c.MaxFeaturesCount
}

func (c Config) TileSize() (int, int) {
	if c.TileW <= 0 || c.TileH <= 0 {
		return 1024, 1024
	}
	return c.TileW, c.TileH
}

func (c Config) AllowCustomTileSize() bool { return true }
func (c Config) SupportsDescriptors() bool { return true }

// Generator recognizes orb.Config values.
type Generator struct{}

func (Generator) Recognizes(cfg feature.Config) bool {
	_, ok := cfg.(Config)
	return ok
}

func (Generator) NewDetector(cfg feature.Config) (feature.Detector, error) {
	c, ok := cfg.(Config)
	if !ok {
		return nil, fmt.Errorf("%w: not an orb configuration", timage.ErrDriverNotFound)
	}
	if c.WTAK != 0 && c.WTAK != 2 {
		return nil, fmt.Errorf("%w: orb supports only wta_k=2", timage.ErrInvalidConfig)
	}
	switch c.ScoreType {
	case "", ScoreHarris, ScoreFast:
	default:
		return nil, fmt.Errorf("%w: unknown orb score type %q", timage.ErrInvalidConfig, c.ScoreType)
	}
	return &Detector{cfg: c}, nil
}

// Detector is the ORB-style FAST detector. It works on single-channel U8
// data; other inputs are converted through the shared preparation utility.
type Detector struct {
	cfg Config
}

var _ feature.Detector = (*Detector)(nil)

func (d *Detector) Name() string           { return "orb" }
func (d *Detector) Config() feature.Config { return d.cfg }

// grayImage is one pyramid level.
type grayImage struct {
	pix        []uint8
	cols, rows int
}

func (g grayImage) at(x, y int) int { return int(g.pix[y*g.cols+x]) }

// Offsets of the 16-pixel Bresenham circle of radius 3 used by FAST.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

func (d *Detector) Detect(buf timage.ImageBuffer, castIfUnsupported bool, maxPointsOverride int) ([]feature.InterestPoint, error) {
	base, err := d.prepare(buf, castIfUnsupported)
	if err != nil {
		return nil, err
	}

	limit := d.cfg.MaxFeaturesCount
	if maxPointsOverride > 0 {
		limit = maxPointsOverride
	}
	if limit <= 0 {
		limit = 500
	}
	levels := d.cfg.NumPyrLevels
	if levels < 1 {
		levels = 1
	}
	scaleFactor := d.cfg.ScaleFactor
	if scaleFactor <= 1 {
		scaleFactor = 1.2
	}
	edge := d.cfg.EdgeThreshold
	if edge < 3 {
		edge = 3
	}

	var points []feature.InterestPoint
	level := base
	scale := 1.0
	for l := 0; l < levels; l++ {
		if l > 0 {
			scale *= scaleFactor
			level = downsample(base, scale)
		}
		if level.cols <= 2*edge || level.rows <= 2*edge {
			break
		}
		for _, c := range d.fastCorners(level, edge) {
			pt := feature.NewInterestPoint(
				float32(float64(c.x)*scale), float32(float64(c.y)*scale))
			pt.Response = float32(c.score)
			pt.Octave = int32(d.cfg.BasePyrLevel + l)
			pt.Scale = float32(scale)
			pt.AngleRad = orientation(level, c.x, c.y, d.cfg.PatchSize/2)
			points = append(points, pt)
		}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Response > points[j].Response })
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

// Extract fills descriptors by running the rotated binary test pattern at
// each point's location on the prepared base image.
func (d *Detector) Extract(buf timage.ImageBuffer, points []feature.InterestPoint, castIfUnsupported bool) error {
	img, err := d.prepare(buf, castIfUnsupported)
	if err != nil {
		return err
	}
	half := d.cfg.PatchSize / 2
	if half < 1 {
		half = 15
	}
	pattern := testPattern(half)
	for i := range points {
		points[i].Descriptor = describe(img, &points[i], pattern)
	}
	return nil
}

func (d *Detector) prepare(buf timage.ImageBuffer, castIfUnsupported bool) (grayImage, error) {
	prep, err := feature.PrepareBuffer(buf, castIfUnsupported,
		timage.FormatGray, timage.ChannelU8, d.Name())
	if err != nil {
		return grayImage{}, err
	}
	pix := timage.ScalarData[uint8](prep)
	if pix == nil {
		return grayImage{}, fmt.Errorf("%w: unexpected working buffer layout", timage.ErrConversion)
	}
	return grayImage{pix: pix, cols: prep.Format.Cols, rows: prep.Format.Rows}, nil
}

// downsample produces the pyramid level at the given scale by nearest
// sampling of the base image.
func downsample(base grayImage, scale float64) grayImage {
	cols := int(float64(base.cols) / scale)
	rows := int(float64(base.rows) / scale)
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	out := grayImage{pix: make([]uint8, cols*rows), cols: cols, rows: rows}
	for y := 0; y < rows; y++ {
		sy := int(float64(y) * scale)
		if sy >= base.rows {
			sy = base.rows - 1
		}
		for x := 0; x < cols; x++ {
			sx := int(float64(x) * scale)
			if sx >= base.cols {
				sx = base.cols - 1
			}
			out.pix[y*cols+x] = base.pix[sy*base.cols+sx]
		}
	}
	return out
}

type corner struct {
	x, y  int
	score float64
}

// fastCorners runs the FAST-9 segment test with non-maximum suppression
// over the level, skipping the edge margin.
func (d *Detector) fastCorners(img grayImage, edge int) []corner {
	threshold := d.cfg.FastThreshold
	if threshold <= 0 {
		threshold = 20
	}
	scores := make([]float64, img.cols*img.rows)
	for y := edge; y < img.rows-edge; y++ {
		for x := edge; x < img.cols-edge; x++ {
			if s, ok := fastTest(img, x, y, threshold); ok {
				if d.cfg.ScoreType == ScoreHarris {
					scores[y*img.cols+x] = harrisScore(img, x, y)
				} else {
					scores[y*img.cols+x] = s
				}
			}
		}
	}
	var out []corner
	for y := edge; y < img.rows-edge; y++ {
		for x := edge; x < img.cols-edge; x++ {
			s := scores[y*img.cols+x]
			if s == 0 {
				continue
			}
			if s < scores[(y-1)*img.cols+x] || s < scores[(y+1)*img.cols+x] ||
				s < scores[y*img.cols+x-1] || s < scores[y*img.cols+x+1] {
				continue
			}
			out = append(out, corner{x: x, y: y, score: s})
		}
	}
	return out
}

// fastTest checks for 9 contiguous circle pixels all brighter or all darker
// than the center by the threshold, returning the segment-test score.
func fastTest(img grayImage, x, y, threshold int) (float64, bool) {
	center := img.at(x, y)
	var brighter, darker uint32
	for i, off := range fastCircle {
		v := img.at(x+off[0], y+off[1])
		if v >= center+threshold {
			brighter |= 1 << i
		} else if v <= center-threshold {
			darker |= 1 << i
		}
	}
	if !hasContiguous(brighter, 9) && !hasContiguous(darker, 9) {
		return 0, false
	}
	score := 0.0
	for _, off := range fastCircle {
		diff := img.at(x+off[0], y+off[1]) - center
		if diff < 0 {
			diff = -diff
		}
		if diff > threshold {
			score += float64(diff - threshold)
		}
	}
	return score, true
}

// hasContiguous reports whether the 16-bit ring mask contains n contiguous
// set bits, with wraparound.
func hasContiguous(mask uint32, n int) bool {
	ring := mask | mask<<16
	run := 0
	for i := 0; i < 32; i++ {
		if ring&(1<<i) != 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// harrisScore computes the Harris measure over a 7x7 window of simple
// central-difference gradients.
func harrisScore(img grayImage, x, y int) float64 {
	var sxx, syy, sxy float64
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			px, py := x+dx, y+dy
			if px < 1 || px >= img.cols-1 || py < 1 || py >= img.rows-1 {
				continue
			}
			ix := float64(img.at(px+1, py) - img.at(px-1, py))
			iy := float64(img.at(px, py+1) - img.at(px, py-1))
			sxx += ix * ix
			syy += iy * iy
			sxy += ix * iy
		}
	}
	const k = 0.04
	trace := sxx + syy
	return (sxx*syy - sxy*sxy) - k*trace*trace
}

// orientation computes the intensity-centroid angle of the patch around
// (x, y).
func orientation(img grayImage, x, y, half int) float32 {
	if half < 1 {
		half = 15
	}
	var m01, m10 float64
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			px, py := x+dx, y+dy
			if px < 0 || px >= img.cols || py < 0 || py >= img.rows {
				continue
			}
			v := float64(img.at(px, py))
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return float32(math.Atan2(m01, m10))
}

// testPattern produces the deterministic set of 256 point pairs used for
// the binary descriptor, drawn from a fixed linear congruential sequence so
// every detector instance shares the same pattern.
func testPattern(half int) [][4]int {
	const tests = 256
	state := uint64(0x9E3779B97F4A7C15)
	next := func() int {
		state = state*6364136223846793005 + 1442695040888963407
		return int(state>>33)%(2*half+1) - half
	}
	out := make([][4]int, tests)
	for i := range out {
		out[i] = [4]int{next(), next(), next(), next()}
	}
	return out
}

// describe runs the rotated test pattern at the point and packs the results
// into 32 bytes, returned as float values.
func describe(img grayImage, pt *feature.InterestPoint, pattern [][4]int) []float32 {
	sin, cos := math.Sincos(float64(pt.AngleRad))
	sample := func(dx, dy int) int {
		rx := int(math.Round(cos*float64(dx) - sin*float64(dy)))
		ry := int(math.Round(sin*float64(dx) + cos*float64(dy)))
		px := int(pt.RasterX) + rx
		py := int(pt.RasterY) + ry
		if px < 0 {
			px = 0
		}
		if px >= img.cols {
			px = img.cols - 1
		}
		if py < 0 {
			py = 0
		}
		if py >= img.rows {
			py = img.rows - 1
		}
		return img.at(px, py)
	}
	desc := make([]float32, len(pattern)/8)
	for i, t := range pattern {
		if sample(t[0], t[1]) < sample(t[2], t[3]) {
			desc[i/8] += float32(int(1) << (i % 8))
		}
	}
	return desc
}
