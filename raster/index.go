package raster

import (
	"fmt"
	"math"
)

// WaterIndexKind selects the band combination used to separate water
// from land.
type WaterIndexKind string

const (
	// NDWI (McFeeters): (green - nir) / (green + nir).
	NDWI WaterIndexKind = "ndwi"
	// MNDWI (Xu): (green - swir1) / (green + swir1). More robust on
	// built-up coasts.
	MNDWI WaterIndexKind = "mndwi"
	// AWEI (no-shadow variant): 4*(green - swir1) - (0.25*nir + 2.75*swir1).
	AWEI WaterIndexKind = "awei"
)

// RequiredBands lists the bands an index needs.
func (kind WaterIndexKind) RequiredBands() ([]Band, error) {
	switch kind {
	case NDWI:
		return []Band{BandGreen, BandNIR}, nil
	case MNDWI:
		return []Band{BandGreen, BandSWIR1}, nil
	case AWEI:
		return []Band{BandGreen, BandNIR, BandSWIR1}, nil
	default:
		return nil, fmt.Errorf("unknown water index %q", kind)
	}
}

// Range returns the nominal value range of the index, used to size the
// threshold histogram. Normalized-difference indices live in [-1, 1];
// AWEI is unbounded in theory but clamps to a practical band.
func (kind WaterIndexKind) Range() (float64, float64) {
	if kind == AWEI {
		return -4, 4
	}
	return -1, 1
}

// WaterIndex computes the selected index over a scene. Pixels flagged
// in mask (true = excluded) and pixels with a zero denominator come
// out NaN. In all three indices water scores high.
func WaterIndex(scene *Scene, kind WaterIndexKind, mask []bool) (*Grid, error) {
	required, err := kind.RequiredBands()
	if err != nil {
		return nil, err
	}

	grids := make(map[Band]*Grid, len(required))
	for _, band := range required {
		grid, ok := scene.Bands[band]
		if !ok {
			return nil, fmt.Errorf("scene %s is missing band %s required by %s",
				scene.Date.Format("2006-01-02"), band, kind)
		}
		grids[band] = grid
	}

	first := grids[required[0]]
	if mask != nil && len(mask) != len(first.Data) {
		return nil, fmt.Errorf("mask length %d does not match grid size %d", len(mask), len(first.Data))
	}

	out, err := NewGrid(first.Width, first.Height)
	if err != nil {
		return nil, err
	}

	for i := range out.Data {
		if mask != nil && mask[i] {
			out.Data[i] = math.NaN()
			continue
		}

		switch kind {
		case NDWI:
			out.Data[i] = normalizedDifference(grids[BandGreen].Data[i], grids[BandNIR].Data[i])
		case MNDWI:
			out.Data[i] = normalizedDifference(grids[BandGreen].Data[i], grids[BandSWIR1].Data[i])
		case AWEI:
			out.Data[i] = aweiNS(grids[BandGreen].Data[i], grids[BandNIR].Data[i], grids[BandSWIR1].Data[i])
		}
	}

	return out, nil
}

// normalizedDifference computes (a-b)/(a+b), propagating NaN inputs
// and masking zero denominators.
func normalizedDifference(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	denominator := a + b
	if denominator == 0 {
		return math.NaN()
	}
	return (a - b) / denominator
}

func aweiNS(green, nir, swir1 float64) float64 {
	if math.IsNaN(green) || math.IsNaN(nir) || math.IsNaN(swir1) {
		return math.NaN()
	}
	v := 4*(green-swir1) - (0.25*nir + 2.75*swir1)
	if v < -4 {
		v = -4
	} else if v > 4 {
		v = 4
	}
	return v
}
