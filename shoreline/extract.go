package shoreline

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Params tunes mask cleanup and shoreline vectorization.
type Params struct {
	// MorphKernel is the odd structuring-element size for the opening
	// and closing passes. Zero disables morphology.
	MorphKernel int

	// MinBlobArea removes water bodies smaller than this pixel count
	// before tracing, which drops wave foam and sensor speckle.
	MinBlobArea int

	// MinVertices drops traced chains shorter than this. Short chains
	// are almost always blob remnants, not shoreline.
	MinVertices int
}

// DefaultParams mirrors the site defaults.
func DefaultParams() Params {
	return Params{
		MorphKernel: 3,
		MinBlobArea: 64,
		MinVertices: 10,
	}
}

// Result holds the cleaned mask and the traced shoreline chains in
// pixel coordinates.
type Result struct {
	Mask   *WaterMask
	Chains [][]image.Point
}

// Extract cleans a water mask and traces the water/land boundary. The
// returned chains are closed contours of the water regions, ordered as
// OpenCV emits them.
func Extract(mask *WaterMask, params Params) (*Result, error) {
	if mask == nil {
		return nil, fmt.Errorf("water mask is nil")
	}
	if mask.Width <= 0 || mask.Height <= 0 {
		return nil, fmt.Errorf("water mask has invalid dimensions: %dx%d", mask.Width, mask.Height)
	}
	if params.MorphKernel > 0 && params.MorphKernel%2 == 0 {
		return nil, fmt.Errorf("morphology kernel must be odd, got %d", params.MorphKernel)
	}

	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, mask.Pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer mat.Close()

	cleaned := gocv.NewMat()
	defer cleaned.Close()

	if params.MorphKernel > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(params.MorphKernel, params.MorphKernel))
		defer kernel.Close()

		opened := gocv.NewMat()
		defer opened.Close()

		// Opening drops isolated water speckle, closing fills pinholes
		// inside the water body.
		gocv.MorphologyEx(mat, &opened, gocv.MorphOpen, kernel)
		gocv.MorphologyEx(opened, &cleaned, gocv.MorphClose, kernel)
	} else {
		mat.CopyTo(&cleaned)
	}

	if params.MinBlobArea > 0 {
		if err := removeSmallBlobs(&cleaned, params.MinBlobArea); err != nil {
			return nil, err
		}
	}

	chains := traceContours(cleaned, params.MinVertices)

	out := &WaterMask{
		Width:         mask.Width,
		Height:        mask.Height,
		Pixels:        cleaned.ToBytes(),
		ValidFraction: mask.ValidFraction,
	}
	out.WaterFraction = recountWater(out)

	return &Result{Mask: out, Chains: chains}, nil
}

// removeSmallBlobs zeroes connected water components below the area
// floor.
func removeSmallBlobs(mask *gocv.Mat, minArea int) error {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	nLabels := gocv.ConnectedComponentsWithStats(*mask, &labels, &stats, &centroids)

	small := make(map[int32]bool)
	for label := 1; label < nLabels; label++ {
		area := stats.GetIntAt(label, 4)
		if int(area) < minArea {
			small[int32(label)] = true
		}
	}

	if len(small) == 0 {
		return nil
	}

	rows, cols := mask.Rows(), mask.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if small[labels.GetIntAt(y, x)] {
				mask.SetUCharAt(y, x, maskLand)
			}
		}
	}

	return nil
}

// traceContours extracts the water region boundaries as pixel chains.
func traceContours(mask gocv.Mat, minVertices int) [][]image.Point {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	chains := make([][]image.Point, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		points := contour.ToPoints()
		if len(points) < minVertices {
			continue
		}
		chain := make([]image.Point, len(points))
		copy(chain, points)
		chains = append(chains, chain)
	}

	return chains
}

func recountWater(mask *WaterMask) float64 {
	if len(mask.Pixels) == 0 {
		return 0
	}
	water := 0
	for _, p := range mask.Pixels {
		if p == maskWater {
			water++
		}
	}

	// Keep the same denominator as BuildWaterMask: the valid pixels.
	valid := mask.ValidFraction * float64(len(mask.Pixels))
	if valid <= 0 {
		return 0
	}
	return float64(water) / valid
}
