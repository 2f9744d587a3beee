package shoreline

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"time"

	"github.com/airbusgeo/godal"

	"coastline/raster"
)

// SceneMeta is the per-scene metadata row appended to the extraction
// log CSV. One row per successfully processed scene.
type SceneMeta struct {
	Date          time.Time
	Index         string
	Threshold     float64
	Variance      float64
	Separability  float64
	CloudFraction float64
	WaterFraction float64
	Chains        int
}

var sceneMetaHeader = []string{
	"date", "index", "threshold", "variance", "separability",
	"cloud_fraction", "water_fraction", "chains",
}

// WriteMaskPNG saves the water mask as an 8-bit grayscale PNG
// quick-look.
func WriteMaskPNG(path string, mask *WaterMask) error {
	if mask == nil {
		return fmt.Errorf("no mask to save")
	}

	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	copy(img.Pix, mask.Pixels)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return png.Encode(f, img)
}

// WriteMaskGeoTIFF saves the water mask as a single-band byte GeoTIFF
// carrying the scene's georeferencing.
func WriteMaskGeoTIFF(path string, mask *WaterMask, ref raster.GeoRef, projectionWKT string) error {
	if mask == nil {
		return fmt.Errorf("no mask to save")
	}
	if !ref.Valid {
		return fmt.Errorf("scene has no georeferencing, use the PNG output instead")
	}

	raster.RegisterDrivers()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Byte, mask.Width, mask.Height)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer ds.Close()

	if err := ds.SetGeoTransform(ref.Transform); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}

	if projectionWKT != "" {
		sr, srErr := godal.NewSpatialRefFromWKT(projectionWKT)
		if srErr != nil {
			return fmt.Errorf("failed to parse projection: %w", srErr)
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("failed to set projection: %w", err)
		}
	}

	band := ds.Bands()[0]
	if err := band.Write(0, 0, mask.Pixels, mask.Width, mask.Height); err != nil {
		return fmt.Errorf("failed to write mask band: %w", err)
	}

	return nil
}

// AppendSceneMeta appends a metadata row to the extraction log,
// writing the header first when the file is new.
func AppendSceneMeta(path string, meta SceneMeta) error {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(sceneMetaHeader); err != nil {
			return err
		}
	}

	row := []string{
		meta.Date.Format("2006-01-02"),
		meta.Index,
		formatFloat(meta.Threshold),
		formatFloat(meta.Variance),
		formatFloat(meta.Separability),
		formatFloat(meta.CloudFraction),
		formatFloat(meta.WaterFraction),
		strconv.Itoa(meta.Chains),
	}
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
