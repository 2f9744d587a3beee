package raster

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func gridFrom(t *testing.T, width, height int, values []float64) *Grid {
	t.Helper()
	grid, err := NewGrid(width, height)
	require.NoError(t, err)
	copy(grid.Data, values)
	return grid
}

func TestWaterIndexNDWI(t *testing.T) {
	scene := &Scene{
		Bands: map[Band]*Grid{
			// One water pixel (green >> nir), one land pixel, one
			// zero-denominator pixel, one NaN pixel.
			BandGreen: gridFrom(t, 2, 2, []float64{0.30, 0.10, 0.00, math.NaN()}),
			BandNIR:   gridFrom(t, 2, 2, []float64{0.05, 0.40, 0.00, 0.20}),
		},
	}

	index, err := WaterIndex(scene, NDWI, nil)
	require.NoError(t, err)

	assert.InDelta(t, (0.30-0.05)/(0.30+0.05), index.At(0, 0), 1e-12)
	assert.InDelta(t, (0.10-0.40)/(0.10+0.40), index.At(1, 0), 1e-12)
	assert.True(t, math.IsNaN(index.At(0, 1)), "zero denominator must mask")
	assert.True(t, math.IsNaN(index.At(1, 1)), "NaN input must propagate")
}

func TestWaterIndexHonorsMask(t *testing.T) {
	scene := &Scene{
		Bands: map[Band]*Grid{
			BandGreen: gridFrom(t, 2, 1, []float64{0.3, 0.3}),
			BandNIR:   gridFrom(t, 2, 1, []float64{0.1, 0.1}),
		},
	}

	index, err := WaterIndex(scene, NDWI, []bool{true, false})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(index.At(0, 0)))
	assert.False(t, math.IsNaN(index.At(1, 0)))
}

func TestWaterIndexMissingBand(t *testing.T) {
	scene := &Scene{
		Bands: map[Band]*Grid{
			BandGreen: gridFrom(t, 1, 1, []float64{0.3}),
		},
	}

	_, err := WaterIndex(scene, MNDWI, nil)
	assert.ErrorContains(t, err, "swir1")
}

func TestWaterIndexKinds(t *testing.T) {
	for _, tc := range []struct {
		kind  WaterIndexKind
		bands int
	}{
		{NDWI, 2},
		{MNDWI, 2},
		{AWEI, 3},
	} {
		required, err := tc.kind.RequiredBands()
		require.NoError(t, err)
		assert.Len(t, required, tc.bands, "index %s", tc.kind)
	}

	_, err := WaterIndexKind("ndsi").RequiredBands()
	assert.Error(t, err)
}

func TestScreenCloudsBCY(t *testing.T) {
	scene := &Scene{
		Bands: map[Band]*Grid{
			// Pixel 0: bright cloud (swir1 and green high).
			// Pixel 1: clear water (everything low).
			// Pixel 2: swir1 high but green dark, stays clear.
			// Pixel 3: NaN green, unusable.
			BandGreen: gridFrom(t, 4, 1, []float64{0.45, 0.08, 0.05, math.NaN()}),
			BandRed:   gridFrom(t, 4, 1, []float64{0.40, 0.06, 0.04, 0.05}),
			BandSWIR1: gridFrom(t, 4, 1, []float64{0.35, 0.02, 0.30, 0.02}),
		},
	}

	screen, err := ScreenClouds(scene, CloudParams{Tau: 0.2})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false, true}, screen.Mask)
	assert.InDelta(t, 0.5, screen.Fraction, 1e-12)
}

func TestScreenCloudsSceneClassification(t *testing.T) {
	scene := &Scene{
		Bands: map[Band]*Grid{
			BandGreen: gridFrom(t, 4, 1, []float64{0.1, 0.1, 0.1, 0.1}),
			BandSCL:   gridFrom(t, 4, 1, []float64{4, 3, 9, 10}),
		},
	}

	screen, err := ScreenClouds(scene, CloudParams{UseSceneClassification: true})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true, true}, screen.Mask)

	// Same scene with classification disabled keeps everything.
	screen, err = ScreenClouds(scene, CloudParams{})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false}, screen.Mask)
}

func TestParseSceneDate(t *testing.T) {
	date, err := ParseSceneDate("2021-03-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 6, 0, 0, 0, 0, time.UTC), date)

	date, err = ParseSceneDate("2019-11-22_L2A")
	require.NoError(t, err)
	assert.Equal(t, 2019, date.Year())

	_, err = ParseSceneDate("scene-one")
	assert.Error(t, err)
}

func TestLoadSceneFromPlainTIFF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2020-07-15")
	require.NoError(t, os.Mkdir(dir, 0o755))

	writeBand := func(name string, levels []uint8) {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		copy(img.Pix, levels)
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		defer f.Close()
		require.NoError(t, tiff.Encode(f, img, nil))
	}

	writeBand("green.tif", []uint8{200, 40, 200, 40})
	writeBand("nir.tif", []uint8{20, 120, 20, 120})

	scene, err := LoadScene(dir, map[Band]string{
		BandGreen: "green.tif",
		BandNIR:   "nir.tif",
	}, LoadOptions{Reader: "tiff"})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2020, 7, 15, 0, 0, 0, 0, time.UTC), scene.Date)
	assert.False(t, scene.Ref.Valid)
	require.Len(t, scene.Bands, 2)
	assert.InDelta(t, 200.0/255.0, scene.Bands[BandGreen].At(0, 0), 1e-9)
	assert.InDelta(t, 120.0/255.0, scene.Bands[BandNIR].At(1, 1), 1e-9)
}

func TestLoadSceneMissingBandFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2020-07-15")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := LoadScene(dir, map[Band]string{BandGreen: "green.tif"}, LoadOptions{Reader: "tiff"})
	assert.ErrorContains(t, err, "band file missing")
}

func TestGeoRefPixelToWorld(t *testing.T) {
	ref := GeoRef{
		Transform: [6]float64{500000, 10, 0, 8200000, 0, -10},
		Valid:     true,
	}

	x, y := ref.PixelToWorld(0, 0)
	assert.InDelta(t, 500005.0, x, 1e-9)
	assert.InDelta(t, 8199995.0, y, 1e-9)

	// Ungeoreferenced scenes pass pixel coordinates through.
	plain := GeoRef{}
	x, y = plain.PixelToWorld(3, 4)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
}
