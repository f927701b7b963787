package timage

// Rect is an axis-aligned integer rectangle described by its minimum corner
// and size. A Rect with non-positive Width or Height is empty.
type Rect struct {
	MinX, MinY    int
	Width, Height int
}

// NewRect creates a rectangle from its minimum corner and size.
func NewRect(minX, minY, width, height int) Rect {
	return Rect{MinX: minX, MinY: minY, Width: width, Height: height}
}

// RectFromCorners creates the bounding rectangle of two arbitrary corner
// points. The points may be given in any order; both are included.
func RectFromCorners(x1, y1, x2, y2 int) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rect{MinX: x1, MinY: y1, Width: x2 - x1 + 1, Height: y2 - y1 + 1}
}

// MaxX returns the exclusive right edge.
func (r Rect) MaxX() int { return r.MinX + r.Width }

// MaxY returns the exclusive bottom edge.
func (r Rect) MaxY() int { return r.MinY + r.Height }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Area returns the number of pixels covered, or 0 for an empty rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.MinX && x < r.MaxX() && y >= r.MinY && y < r.MaxY()
}

// ContainsRect reports whether o lies entirely inside r.
// An empty o is contained by any rectangle.
func (r Rect) ContainsRect(o Rect) bool {
	if o.Empty() {
		return true
	}
	return o.MinX >= r.MinX && o.MinY >= r.MinY &&
		o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// Intersect returns the intersection of two rectangles. The result may be
// empty.
func (r Rect) Intersect(o Rect) Rect {
	minX := max(r.MinX, o.MinX)
	minY := max(r.MinY, o.MinY)
	maxX := min(r.MaxX(), o.MaxX())
	maxY := min(r.MaxY(), o.MaxY())
	return Rect{MinX: minX, MinY: minY, Width: maxX - minX, Height: maxY - minY}
}

// Translate returns the rectangle shifted by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	r.MinX += dx
	r.MinY += dy
	return r
}

// Expand grows the rectangle by n pixels on every side. A negative n
// shrinks it.
func (r Rect) Expand(n int) Rect {
	return Rect{MinX: r.MinX - n, MinY: r.MinY - n, Width: r.Width + 2*n, Height: r.Height + 2*n}
}

// Subdivide covers the rectangle with a row-major grid of tiles of the given
// size, anchored at the rectangle's minimum corner. Edge tiles are clipped to
// the parent, so they may be smaller than the requested size.
func (r Rect) Subdivide(tileW, tileH int) []Rect {
	if r.Empty() || tileW <= 0 || tileH <= 0 {
		return nil
	}
	tilesX := (r.Width + tileW - 1) / tileW
	tilesY := (r.Height + tileH - 1) / tileH
	out := make([]Rect, 0, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			t := Rect{
				MinX:   r.MinX + tx*tileW,
				MinY:   r.MinY + ty*tileH,
				Width:  tileW,
				Height: tileH,
			}
			out = append(out, t.Intersect(r))
		}
	}
	return out
}

// RoundDown rounds v down to the nearest multiple of mod, correctly for
// negative values. mod must be positive.
func RoundDown(v, mod int) int {
	if v >= 0 {
		return v - v%mod
	}
	return v + ((-v-1)%mod - mod + 1)
}
