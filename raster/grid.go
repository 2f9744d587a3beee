package raster

import (
	"fmt"
	"math"
)

// Grid is a single-band raster of float64 samples in row-major order.
// Masked or missing samples are NaN; every consumer in the toolkit
// skips NaN rather than treating it as a value.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: %dx%d", width, height)
	}

	return &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}, nil
}

// At returns the sample at (x, y). Callers are expected to stay in
// bounds; the pixel loops below all iterate the grid's own extent.
func (g *Grid) At(x, y int) float64 {
	return g.Data[y*g.Width+x]
}

// Set stores a sample at (x, y).
func (g *Grid) Set(x, y int, v float64) {
	g.Data[y*g.Width+x] = v
}

// SetNaN masks the sample at (x, y).
func (g *Grid) SetNaN(x, y int) {
	g.Data[y*g.Width+x] = math.NaN()
}

// SameShape reports whether two grids share dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return other != nil && g.Width == other.Width && g.Height == other.Height
}

// ValidCount returns the number of non-NaN samples.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// GeoRef carries the affine geotransform and projection of a scene.
// The transform follows the GDAL convention: world coordinates are
//
//	X = T[0] + T[1]*(px+0.5) + T[2]*(py+0.5)
//	Y = T[3] + T[4]*(px+0.5) + T[5]*(py+0.5)
//
// with the half-pixel shift placing coordinates at pixel centers.
type GeoRef struct {
	Transform [6]float64
	EPSG      int
	Valid     bool
}

// PixelToWorld converts a pixel coordinate to world coordinates. For
// ungeoreferenced scenes the pixel coordinate is returned unchanged.
func (ref GeoRef) PixelToWorld(px, py float64) (float64, float64) {
	if !ref.Valid {
		return px, py
	}
	t := ref.Transform
	x := t[0] + t[1]*(px+0.5) + t[2]*(py+0.5)
	y := t[3] + t[4]*(px+0.5) + t[5]*(py+0.5)
	return x, y
}
