package raster

import (
	"fmt"
	"math"
)

// CloudParams tunes the per-pixel cloud screen.
type CloudParams struct {
	// Tau gates the SWIR1 (B11) reflectance in the Braaten-Cohen-Yang
	// test. 0.2 is the published default.
	Tau float64

	// UseSceneClassification additionally flags pixels whose SCL band
	// classifies them as cloud shadow, cloud, or cirrus.
	UseSceneClassification bool
}

// CloudScreen is the result of screening one scene.
type CloudScreen struct {
	// Mask is true where a pixel is cloudy or otherwise unusable.
	Mask []bool
	// Fraction is the flagged share of the scene.
	Fraction float64
}

// SCL classes flagged as unusable: 3 cloud shadow, 8 cloud medium
// probability, 9 cloud high probability, 10 thin cirrus.
func sclUnusable(class float64) bool {
	switch int(class) {
	case 3, 8, 9, 10:
		return true
	}
	return false
}

// ScreenClouds runs the Braaten-Cohen-Yang cloud test over a scene,
// optionally tightened by the scene-classification band. A pixel is
// cloud when
//
//	swir1 > tau AND ((green > 0.175 AND NGDR > 0) OR green > 0.39)
//
// with NGDR = (green - red) / (green + red). Scenes missing the red
// or SWIR1 band fall back to SCL/CLD screening alone.
func ScreenClouds(scene *Scene, params CloudParams) (*CloudScreen, error) {
	reference, ok := scene.Bands[BandGreen]
	if !ok {
		return nil, fmt.Errorf("cloud screen requires the green band")
	}

	if params.Tau <= 0 {
		params.Tau = 0.2
	}

	green := reference.Data
	red := bandData(scene, BandRed, len(green))
	swir1 := bandData(scene, BandSWIR1, len(green))
	cld := bandData(scene, BandCLD, len(green))
	scl := bandData(scene, BandSCL, len(green))

	mask := make([]bool, len(green))
	flagged := 0

	for i := range green {
		cloudy := false

		if swir1 != nil && red != nil {
			cloudy = bcyPixel(green[i], red[i], swir1[i], params.Tau)
		}

		if !cloudy && cld != nil && cld[i] > 0 {
			cloudy = true
		}

		if !cloudy && params.UseSceneClassification && scl != nil && sclUnusable(scl[i]) {
			cloudy = true
		}

		// NaN reflectance is unusable regardless of the cloud tests.
		if math.IsNaN(green[i]) {
			cloudy = true
		}

		if cloudy {
			mask[i] = true
			flagged++
		}
	}

	return &CloudScreen{
		Mask:     mask,
		Fraction: float64(flagged) / float64(len(mask)),
	}, nil
}

func bcyPixel(green, red, swir1, tau float64) bool {
	if math.IsNaN(green) || math.IsNaN(red) || math.IsNaN(swir1) {
		return false
	}
	if swir1 <= tau {
		return false
	}
	if green > 0.39 {
		return true
	}
	ngdr := normalizedDifference(green, red)
	return green > 0.175 && ngdr > 0
}

// bandData returns a band's samples when present with the expected
// size, nil otherwise.
func bandData(scene *Scene, band Band, size int) []float64 {
	grid, ok := scene.Bands[band]
	if !ok || len(grid.Data) != size {
		return nil
	}
	return grid.Data
}
