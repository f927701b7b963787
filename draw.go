package timage

import (
	"image"
	"math"
)

// Drawing routines produce sparse overlays: each returns a SparseView
// wrapping a single UniformBlob so the parent is never mutated.

// computeLinePointsThin traces a one-pixel line between two points into the
// blob. Axis-aligned segments fill their bounding rectangle; everything else
// uses the midpoint algorithm with doubled deltas, inserting an auxiliary
// pixel on each major-axis advance to keep the set 8-connected.
func computeLinePointsThin[P any](p1, p2 image.Point, out *UniformBlob[P]) {
	if p1.X == p2.X || p1.Y == p2.Y {
		r := RectFromCorners(p1.X, p1.Y, p2.X, p2.Y)
		for c := r.MinX; c < r.MaxX(); c++ {
			for row := r.MinY; row < r.MaxY(); row++ {
				out.Insert(c, row)
			}
		}
		return
	}

	delta := p2.Sub(p1)
	step := image.Pt(1, 1)
	if delta.X < 0 {
		delta.X = -delta.X
		step.X = -1
	}
	if delta.Y < 0 {
		delta.Y = -delta.Y
		step.Y = -1
	}
	dx2, dy2 := delta.X<<1, delta.Y<<1

	out.Insert(p1.X, p1.Y)
	if delta.X > delta.Y {
		err := dy2 - delta.X
		for p1.X != p2.X {
			p1.X += step.X
			if err >= 0 {
				out.Insert(p1.X, p1.Y)
				p1.Y += step.Y
				out.Insert(p1.X-step.X, p1.Y)
				err -= dx2
			}
			err += dy2
			out.Insert(p1.X, p1.Y)
		}
	} else {
		err := dx2 - delta.Y
		for p1.Y != p2.Y {
			p1.Y += step.Y
			if err >= 0 {
				out.Insert(p1.X, p1.Y)
				p1.X += step.X
				out.Insert(p1.X, p1.Y-step.Y)
				err -= dy2
			}
			err += dx2
			out.Insert(p1.X, p1.Y)
		}
	}
}

// computeLinePoints traces a line of the given thickness into the blob.
// Thick diagonal lines sweep a pencil of thin lines between the two offset
// edges of the stroke.
func computeLinePoints[P any](p1, p2 image.Point, thickness int, out *UniformBlob[P]) {
	if thickness == 1 {
		computeLinePointsThin(p1, p2, out)
		return
	}
	if p1.X == p2.X || p1.Y == p2.Y {
		r := RectFromCorners(p1.X, p1.Y, p2.X, p2.Y).Expand(thickness / 2)
		for c := r.MinX; c < r.MaxX(); c++ {
			for row := r.MinY; row < r.MaxY(); row++ {
				out.Insert(c, row)
			}
		}
		return
	}

	vx := float64(p2.X - p1.X)
	vy := float64(p2.Y - p1.Y)
	mag := math.Hypot(vy, vx)
	nx, ny := vy/mag, -vx/mag
	half := float64(thickness) / 2

	p1minX, p1minY := float64(p1.X)-half*nx, float64(p1.Y)-half*ny
	p1maxX, p1maxY := float64(p1.X)+half*nx, float64(p1.Y)+half*ny
	p2minX, p2minY := float64(p2.X)-half*nx, float64(p2.Y)-half*ny
	p2maxX, p2maxY := float64(p2.X)+half*nx, float64(p2.Y)+half*ny

	length := math.Max(1, math.Round(math.Hypot(p1maxX-p1minX, p1maxY-p1minY)))
	for i := 0; i < int(length); i++ {
		t := float64(i) / length
		a := image.Pt(
			int(p1minX+(p1maxX-p1minX)*t),
			int(p1minY+(p1maxY-p1minY)*t),
		)
		b := image.Pt(
			int(p2minX+(p2maxX-p2minX)*t),
			int(p2minY+(p2maxY-p2minY)*t),
		)
		computeLinePointsThin(a, b, out)
	}
}

// computeCirclePoints approximates a circle by chords. Each step advances the
// angle by atan2(maxSegmentLength, radius) plus 0.1 radian, so a chord can be
// longer than maxSegmentLength pixels.
func computeCirclePoints[P any](center image.Point, radius float64, thickness, maxSegmentLength int, out *UniformBlob[P]) {
	angle := 0.0
	step := math.Atan2(float64(maxSegmentLength), radius)
	start := image.Pt(
		int(math.Round(math.Cos(angle)*radius))+center.X,
		int(math.Round(math.Sin(angle)*radius))+center.Y,
	)
	for angle < 2*math.Pi {
		angle += step + 0.1
		end := image.Pt(
			int(math.Round(math.Cos(angle)*radius))+center.X,
			int(math.Round(math.Sin(angle)*radius))+center.Y,
		)
		computeLinePoints(start, end, thickness, out)
		start = end
	}
}

// DrawLine overlays a line of the given color and thickness on img.
func DrawLine[P any](img Image[P], p1, p2 image.Point, color P, thickness int) *SparseView[P] {
	blob := NewUniformBlob(color)
	computeLinePoints(p1, p2, thickness, blob)
	return Overlay(img, blob)
}

// DrawCircle overlays a circle outline centered at center on img.
// maxSegmentLength sets the angular step of the chords used to approximate
// the arc (atan2(maxSegmentLength, radius) plus 0.1 radian); 10 is a
// reasonable default.
func DrawCircle[P any](img Image[P], center image.Point, radius float64, color P, thickness, maxSegmentLength int) *SparseView[P] {
	blob := NewUniformBlob(color)
	computeCirclePoints(center, radius, thickness, maxSegmentLength, blob)
	return Overlay(img, blob)
}

// DrawRectangle overlays a rectangle on img. A negative thickness fills the
// interior; otherwise the four edges are stroked with the given thickness.
func DrawRectangle[P any](img Image[P], bbox Rect, color P, thickness int) *SparseView[P] {
	blob := NewUniformBlob(color)
	if thickness < 0 {
		r := bbox.Expand(thickness / 2)
		for x := r.MinX; x < r.MaxX(); x++ {
			for y := r.MinY; y < r.MaxY(); y++ {
				blob.Insert(x, y)
			}
		}
		return Overlay(img, blob)
	}
	tl := image.Pt(bbox.MinX, bbox.MinY)
	tr := image.Pt(bbox.MaxX()-1, bbox.MinY)
	br := image.Pt(bbox.MaxX()-1, bbox.MaxY()-1)
	bl := image.Pt(bbox.MinX, bbox.MaxY()-1)
	computeLinePoints(tl, tr, thickness, blob)
	computeLinePoints(tr, br, thickness, blob)
	computeLinePoints(br, bl, thickness, blob)
	computeLinePoints(bl, tl, thickness, blob)
	return Overlay(img, blob)
}
