package shoreline

import (
	"fmt"
	"math"

	"coastline/raster"
)

// WaterMask is a byte mask in row-major order: 255 water, 0 land or
// invalid. The uint8 layout matches what the OpenCV cleanup stage and
// the raster writers consume directly.
type WaterMask struct {
	Width  int
	Height int
	Pixels []uint8

	// WaterFraction is the water share of the valid (non-NaN) pixels.
	WaterFraction float64
	// ValidFraction is the non-NaN share of the whole grid.
	ValidFraction float64
}

const (
	maskLand  uint8 = 0
	maskWater uint8 = 255
)

// BuildWaterMask classifies a water-index grid against a threshold.
// All supported indices score water high, so pixels strictly above the
// threshold classify as water. NaN pixels classify as land for mask
// purposes but are excluded from the water fraction.
func BuildWaterMask(index *raster.Grid, threshold float64) (*WaterMask, error) {
	if index == nil {
		return nil, fmt.Errorf("index grid is nil")
	}

	mask := &WaterMask{
		Width:  index.Width,
		Height: index.Height,
		Pixels: make([]uint8, len(index.Data)),
	}

	water, valid := 0, 0
	for i, v := range index.Data {
		if math.IsNaN(v) {
			continue
		}
		valid++
		if v > threshold {
			mask.Pixels[i] = maskWater
			water++
		}
	}

	if valid > 0 {
		mask.WaterFraction = float64(water) / float64(valid)
	}
	mask.ValidFraction = float64(valid) / float64(len(index.Data))

	return mask, nil
}

// At returns the mask value at (x, y).
func (m *WaterMask) At(x, y int) uint8 {
	return m.Pixels[y*m.Width+x]
}
