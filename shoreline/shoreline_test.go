package shoreline

import (
	"encoding/json"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coastline/raster"
)

func indexGrid(t *testing.T, width, height int, values []float64) *raster.Grid {
	t.Helper()
	grid, err := raster.NewGrid(width, height)
	require.NoError(t, err)
	copy(grid.Data, values)
	return grid
}

func TestBuildWaterMask(t *testing.T) {
	grid := indexGrid(t, 2, 2, []float64{0.5, -0.3, math.NaN(), 0.1})

	mask, err := BuildWaterMask(grid, 0.0)
	require.NoError(t, err)

	assert.Equal(t, uint8(255), mask.At(0, 0))
	assert.Equal(t, uint8(0), mask.At(1, 0))
	assert.Equal(t, uint8(0), mask.At(0, 1), "NaN classifies as land")
	assert.Equal(t, uint8(255), mask.At(1, 1))

	assert.InDelta(t, 2.0/3.0, mask.WaterFraction, 1e-12, "fraction over valid pixels only")
	assert.InDelta(t, 0.75, mask.ValidFraction, 1e-12)
}

func TestBuildWaterMaskThresholdIsExclusive(t *testing.T) {
	grid := indexGrid(t, 2, 1, []float64{0.2, 0.2000001})

	mask, err := BuildWaterMask(grid, 0.2)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), mask.At(0, 0))
	assert.Equal(t, uint8(255), mask.At(1, 0))
}

// syntheticCoast builds a mask with the left half water, plus a small
// speckle blob on land.
func syntheticCoast(width, height int) *WaterMask {
	mask := &WaterMask{
		Width:         width,
		Height:        height,
		Pixels:        make([]uint8, width*height),
		ValidFraction: 1,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width/2; x++ {
			mask.Pixels[y*width+x] = 255
		}
	}
	// 2x2 speckle well inside the land half.
	for _, pt := range []image.Point{{30, 10}, {31, 10}, {30, 11}, {31, 11}} {
		mask.Pixels[pt.Y*width+pt.X] = 255
	}
	return mask
}

func TestExtractRemovesSpeckleAndTracesCoast(t *testing.T) {
	mask := syntheticCoast(40, 24)

	result, err := Extract(mask, Params{
		MorphKernel: 3,
		MinBlobArea: 16,
		MinVertices: 10,
	})
	require.NoError(t, err)

	// The speckle blob is gone.
	assert.Equal(t, uint8(0), result.Mask.At(30, 10))
	// The water half survives.
	assert.Equal(t, uint8(255), result.Mask.At(5, 5))

	// One contour remains, the outer boundary of the water half.
	require.Len(t, result.Chains, 1)
	assert.GreaterOrEqual(t, len(result.Chains[0]), 2*24)
}

func TestExtractRejectsEvenKernel(t *testing.T) {
	mask := syntheticCoast(16, 16)

	_, err := Extract(mask, Params{MorphKernel: 4})
	assert.ErrorContains(t, err, "odd")
}

func TestWriteGeoJSONPixelSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoreline.geojson")
	chains := [][]image.Point{
		{{0, 0}, {1, 0}, {2, 1}},
		{{5, 5}, {6, 5}},
	}

	err := WriteGeoJSON(path, time.Date(2020, 7, 15, 0, 0, 0, 0, time.UTC), chains, VectorOptions{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var collection featureCollection
	require.NoError(t, json.Unmarshal(data, &collection))
	assert.Equal(t, "FeatureCollection", collection.Type)

	// One LineString feature per chain.
	require.Len(t, collection.Features, 2)
	for ci, f := range collection.Features {
		assert.Equal(t, "LineString", f.Geometry.Type)
		assert.Len(t, f.Geometry.Coordinates, len(chains[ci]))
		assert.Equal(t, "2020-07-15", f.Properties["date"])
		assert.EqualValues(t, ci, f.Properties["chain"])
	}
}

func TestWriteGeoJSONAppliesGeoTransform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shoreline.geojson")
	chains := [][]image.Point{{{0, 0}, {1, 0}}}

	opts := VectorOptions{
		Ref: raster.GeoRef{
			Transform: [6]float64{1000, 10, 0, 2000, 0, -10},
			Valid:     true,
		},
	}

	require.NoError(t, WriteGeoJSON(path, time.Now(), chains, opts))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var collection featureCollection
	require.NoError(t, json.Unmarshal(data, &collection))

	require.Len(t, collection.Features, 1)
	coords := collection.Features[0].Geometry.Coordinates
	require.Len(t, coords, 2)
	assert.InDelta(t, 1005.0, coords[0][0], 1e-9)
	assert.InDelta(t, 1995.0, coords[0][1], 1e-9)
	assert.InDelta(t, 1015.0, coords[1][0], 1e-9)
}

func TestWriteGeoJSONEmpty(t *testing.T) {
	err := WriteGeoJSON(filepath.Join(t.TempDir(), "empty.geojson"), time.Now(), nil, VectorOptions{})
	assert.Error(t, err)
}

func TestAppendSceneMetaWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.csv")

	meta := SceneMeta{
		Date:          time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
		Index:         "ndwi",
		Threshold:     0.12,
		CloudFraction: 0.05,
		Chains:        2,
	}

	require.NoError(t, AppendSceneMeta(path, meta))
	meta.Date = meta.Date.AddDate(0, 1, 0)
	require.NoError(t, AppendSceneMeta(path, meta))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := splitLines(string(data))
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "date,index,threshold")
	assert.Contains(t, lines[1], "2021-01-02,ndwi,0.120000")
	assert.Contains(t, lines[2], "2021-02-02")
}

func TestWriteMaskPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask.png")
	mask := syntheticCoast(8, 8)

	require.NoError(t, WriteMaskPNG(path, mask))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
