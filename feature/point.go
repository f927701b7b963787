// Package feature provides interest-point detection over timage views:
// the detector and extractor contracts, a driver factory, and a tiled
// detection pipeline that fans tiles out across workers while keeping the
// result list in deterministic tile order.
package feature

import "math"

// InterestPoint is one detected feature location. PixelX/PixelY are the
// sub-pixel location; RasterX/RasterY the nearest integer pixel.
type InterestPoint struct {
	PixelX, PixelY   float32
	RasterX, RasterY int32

	// Scale of the feature, 1 when the detector is single-scale.
	Scale float32

	// AngleRad is the orientation in radians, -1 when not computed.
	AngleRad float32

	// Response is the detector's strength measure.
	Response float32

	// Octave is the pyramid level the point was found on.
	Octave int32

	// ClassID is a detector-specific label, -1 when unused.
	ClassID int32

	// Descriptor is filled by an extractor; empty until then.
	Descriptor []float32
}

// NewInterestPoint creates a point at the given sub-pixel location with
// default scale, orientation, and class.
func NewInterestPoint(x, y float32) InterestPoint {
	return InterestPoint{
		PixelX:  x,
		PixelY:  y,
		RasterX: int32(math.Round(float64(x))),
		RasterY: int32(math.Round(float64(y))),
		Scale:   1,
		AngleRad: -1,
		ClassID: -1,
	}
}

// Translate shifts the point by (dx, dy) in both pixel and raster
// coordinates.
func (p *InterestPoint) Translate(dx, dy int) {
	p.PixelX += float32(dx)
	p.PixelY += float32(dy)
	p.RasterX += int32(dx)
	p.RasterY += int32(dy)
}
