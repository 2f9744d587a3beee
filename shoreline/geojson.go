package shoreline

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"time"

	"coastline/raster"
)

// geojson feature structures, shaped to what the downstream GIS
// plugins accept. Kept minimal on purpose; this is interchange, not a
// geometry library.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                 `json:"type"`
	Geometry   geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates,omitempty"`
}

// VectorOptions controls coordinate handling of the exported
// shoreline.
type VectorOptions struct {
	// Ref converts pixel chains to world coordinates. An invalid ref
	// exports pixel coordinates as-is.
	Ref raster.GeoRef

	// ProjectionWKT, when set, reprojects world coordinates to WGS84
	// longitude/latitude for the GeoJSON output.
	ProjectionWKT string
}

// WriteGeoJSON exports shoreline chains as a FeatureCollection of
// LineString features, one feature per chain.
func WriteGeoJSON(path string, date time.Time, chains [][]image.Point, opts VectorOptions) error {
	if len(chains) == 0 {
		return fmt.Errorf("no shoreline chains to export")
	}

	features := make([]feature, 0, len(chains))
	for ci, chain := range chains {
		xs := make([]float64, len(chain))
		ys := make([]float64, len(chain))
		for i, pt := range chain {
			xs[i], ys[i] = opts.Ref.PixelToWorld(float64(pt.X), float64(pt.Y))
		}

		if opts.ProjectionWKT != "" {
			if err := raster.ReprojectToWGS84(opts.ProjectionWKT, xs, ys); err != nil {
				return err
			}
		}

		line := make([][]float64, len(chain))
		for i := range chain {
			line[i] = []float64{xs[i], ys[i]}
		}

		features = append(features, feature{
			Type: "Feature",
			Geometry: geometry{
				Type:        "LineString",
				Coordinates: line,
			},
			Properties: map[string]interface{}{
				"date":     date.Format("2006-01-02"),
				"chain":    ci,
				"vertices": len(chain),
			},
		})
	}

	collection := featureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
