package timage

import "sort"

// UniformBlob is a sparse set of pixel coordinates sharing one color,
// stored as a set of columns per row. The per-row representation keeps
// horizontal spans dense, which fits the drawing routines that emit them.
type UniformBlob[P any] struct {
	color P
	rows  map[int]map[int]struct{}
}

// NewUniformBlob creates an empty blob of the given color.
func NewUniformBlob[P any](color P) *UniformBlob[P] {
	return &UniformBlob[P]{color: color, rows: map[int]map[int]struct{}{}}
}

// Insert registers the pixel (col, row) in the blob.
func (b *UniformBlob[P]) Insert(col, row int) {
	set, ok := b.rows[row]
	if !ok {
		set = map[int]struct{}{}
		b.rows[row] = set
	}
	set[col] = struct{}{}
}

// InsertColored registers a pixel and optionally overrides the blob color.
func (b *UniformBlob[P]) InsertColored(col, row int, color P, override bool) {
	if override {
		b.color = color
	}
	b.Insert(col, row)
}

// Contains reports whether the pixel (col, row) is registered.
func (b *UniformBlob[P]) Contains(col, row int) bool {
	set, ok := b.rows[row]
	if !ok {
		return false
	}
	_, ok = set[col]
	return ok
}

// Pixel returns the blob color for a registered pixel.
func (b *UniformBlob[P]) Pixel(col, row int) (P, error) {
	if !b.Contains(col, row) {
		var zero P
		return zero, ErrBounds
	}
	return b.color, nil
}

// Color returns the blob's color.
func (b *UniformBlob[P]) Color() P { return b.color }

// Size returns the number of registered pixels.
func (b *UniformBlob[P]) Size() int {
	n := 0
	for _, set := range b.rows {
		n += len(set)
	}
	return n
}

// Clear removes all registered pixels.
func (b *UniformBlob[P]) Clear() {
	b.rows = map[int]map[int]struct{}{}
}

// PixelList returns the registered coordinates as (col, row) pairs in
// row-major order.
func (b *UniformBlob[P]) PixelList() [][2]int {
	rowKeys := make([]int, 0, len(b.rows))
	for r := range b.rows {
		rowKeys = append(rowKeys, r)
	}
	sort.Ints(rowKeys)
	out := make([][2]int, 0, b.Size())
	for _, r := range rowKeys {
		cols := make([]int, 0, len(b.rows[r]))
		for c := range b.rows[r] {
			cols = append(cols, c)
		}
		sort.Ints(cols)
		for _, c := range cols {
			out = append(out, [2]int{c, r})
		}
	}
	return out
}
