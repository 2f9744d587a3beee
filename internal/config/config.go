package config

import (
	"fmt"
	"os"
	"time"

	json "github.com/KevinWang15/go-json5"
	"github.com/joho/godotenv"
)

// SiteConfig describes one study site: which bands the scenes carry,
// how the water index and threshold search are parameterized, and the
// date range the analysis is allowed to touch. Stored as JSON5 so site
// files can carry inline commentary.
type SiteConfig struct {
	Name string `json:"name"`

	// Band file name templates inside a scene directory, e.g.
	// "B03.tif". Green and NIR are required; SWIR1 is required for
	// MNDWI and AWEI.
	Bands BandFiles `json:"bands"`

	// WaterIndex selects the band combination: "ndwi", "mndwi" or
	// "awei".
	WaterIndex string `json:"water_index"`

	Otsu      OtsuConfig  `json:"otsu"`
	Cloud     CloudConfig `json:"cloud"`
	Shoreline ShoreConfig `json:"shoreline"`
	Tide      TideConfig  `json:"tide"`

	// Study range. Observations and generated tide dates outside this
	// window are rejected.
	StudyStart string `json:"study_start"`
	StudyEnd   string `json:"study_end"`

	// Reader selects the band reader: "auto", "gdal" or "tiff".
	Reader string `json:"reader"`

	// ReflectanceScale converts digital numbers read through GDAL to
	// reflectance, e.g. 0.0001 for Sentinel-2 L2A. Zero means raw.
	ReflectanceScale float64 `json:"reflectance_scale"`

	// EPSG code of the scene projection when band files are plain
	// TIFFs without embedded georeferencing. Zero means pixel space.
	EPSG int `json:"epsg"`
}

type BandFiles struct {
	Blue  string `json:"blue"`
	Green string `json:"green"`
	Red   string `json:"red"`
	NIR   string `json:"nir"`
	SWIR1 string `json:"swir1"`
	CLD   string `json:"cld"`
	SCL   string `json:"scl"`
}

type OtsuConfig struct {
	HistogramBins int     `json:"histogram_bins"`
	CoarseStep    int     `json:"coarse_step"`
	MinClassFrac  float64 `json:"min_class_fraction"`
}

type CloudConfig struct {
	// MaxFraction rejects a scene when the cloudy pixel fraction
	// exceeds it.
	MaxFraction float64 `json:"max_fraction"`
	// Tau is the B11 reflectance gate of the Braaten-Cohen-Yang test.
	Tau float64 `json:"tau"`
	// UseSceneClassification enables SCL-band screening when present.
	UseSceneClassification bool `json:"use_scene_classification"`
}

type ShoreConfig struct {
	MorphKernel int `json:"morph_kernel"`
	MinBlobArea int `json:"min_blob_area"`
	MinVertices int `json:"min_vertices"`
}

// TideConfig bounds the predicted stage accepted when generating
// candidate acquisition dates.
type TideConfig struct {
	WindowLow  float64 `json:"window_low"`
	WindowHigh float64 `json:"window_high"`
}

// Defaults returns the parameter set used when a site file leaves a
// section out. Bin count and coarse step follow the usual trade-off
// between histogram granularity and search cost.
func Defaults() SiteConfig {
	return SiteConfig{
		WaterIndex: "ndwi",
		Reader:     "auto",
		Bands: BandFiles{
			Blue:  "B02.tif",
			Green: "B03.tif",
			Red:   "B04.tif",
			NIR:   "B08.tif",
			SWIR1: "B11.tif",
		},
		Otsu: OtsuConfig{
			HistogramBins: 256,
			CoarseStep:    2,
			MinClassFrac:  0.001,
		},
		Cloud: CloudConfig{
			MaxFraction:            0.3,
			Tau:                    0.2,
			UseSceneClassification: true,
		},
		Shoreline: ShoreConfig{
			MorphKernel: 3,
			MinBlobArea: 64,
			MinVertices: 10,
		},
		Tide: TideConfig{
			WindowLow:  -0.3,
			WindowHigh: 0.3,
		},
	}
}

// Load reads a JSON5 site file over the defaults and validates it.
func Load(path string) (SiteConfig, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read site config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse site config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadEnv pulls optional environment overrides from a .env file. A
// missing file is not an error; explicit environment wins either way.
func LoadEnv() {
	_ = godotenv.Load()
}

func (cfg SiteConfig) Validate() error {
	switch cfg.WaterIndex {
	case "ndwi", "mndwi", "awei":
	default:
		return fmt.Errorf("unknown water index %q", cfg.WaterIndex)
	}

	if cfg.Bands.Green == "" || cfg.Bands.NIR == "" {
		return fmt.Errorf("green and nir bands are required")
	}
	if cfg.WaterIndex != "ndwi" && cfg.Bands.SWIR1 == "" {
		return fmt.Errorf("water index %q requires a swir1 band", cfg.WaterIndex)
	}

	switch cfg.Reader {
	case "", "auto", "gdal", "tiff":
	default:
		return fmt.Errorf("unknown band reader %q", cfg.Reader)
	}

	if cfg.Otsu.HistogramBins < 2 {
		return fmt.Errorf("histogram_bins must be at least 2, got %d", cfg.Otsu.HistogramBins)
	}
	if cfg.Otsu.CoarseStep < 1 {
		return fmt.Errorf("coarse_step must be at least 1, got %d", cfg.Otsu.CoarseStep)
	}
	// At 0.5 both classes fall below the floor and every split is
	// degenerate.
	if cfg.Otsu.MinClassFrac < 0 || cfg.Otsu.MinClassFrac >= 0.5 {
		return fmt.Errorf("min_class_fraction out of range [0, 0.5): %g", cfg.Otsu.MinClassFrac)
	}

	if cfg.Cloud.MaxFraction < 0 || cfg.Cloud.MaxFraction > 1 {
		return fmt.Errorf("cloud max_fraction out of range [0,1]: %g", cfg.Cloud.MaxFraction)
	}

	if cfg.Shoreline.MorphKernel > 0 && cfg.Shoreline.MorphKernel%2 == 0 {
		return fmt.Errorf("morph_kernel must be odd, got %d", cfg.Shoreline.MorphKernel)
	}

	if cfg.Tide.WindowHigh < cfg.Tide.WindowLow {
		return fmt.Errorf("tide window is inverted: low %g above high %g", cfg.Tide.WindowLow, cfg.Tide.WindowHigh)
	}

	if _, _, err := cfg.StudyRange(); err != nil {
		return err
	}

	return nil
}

// StudyRange parses the configured study window. An empty range means
// unconstrained.
func (cfg SiteConfig) StudyRange() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if cfg.StudyStart != "" {
		start, err = time.Parse("2006-01-02", cfg.StudyStart)
		if err != nil {
			return start, end, fmt.Errorf("invalid study_start %q: %w", cfg.StudyStart, err)
		}
	}
	if cfg.StudyEnd != "" {
		end, err = time.Parse("2006-01-02", cfg.StudyEnd)
		if err != nil {
			return start, end, fmt.Errorf("invalid study_end %q: %w", cfg.StudyEnd, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("study_end %s precedes study_start %s", cfg.StudyEnd, cfg.StudyStart)
	}

	return start, end, nil
}

// InRange reports whether t falls inside the configured study window.
func (cfg SiteConfig) InRange(t time.Time) bool {
	start, end, err := cfg.StudyRange()
	if err != nil {
		return false
	}
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
