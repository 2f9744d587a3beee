package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.json5")
	// JSON5: comments and trailing commas are fine in site files.
	data := `{
		// west beach study site
		name: "west-beach",
		water_index: "mndwi",
		study_start: "2018-01-01",
		study_end: "2023-12-31",
		otsu: { histogram_bins: 512, coarse_step: 2, min_class_fraction: 0.001 },
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "west-beach", cfg.Name)
	assert.Equal(t, "mndwi", cfg.WaterIndex)
	assert.Equal(t, 512, cfg.Otsu.HistogramBins)
	// Untouched sections keep their defaults.
	assert.Equal(t, "B03.tif", cfg.Bands.Green)
	assert.Equal(t, 3, cfg.Shoreline.MorphKernel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json5"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SiteConfig)
		wantErr string
	}{
		{"unknown index", func(c *SiteConfig) { c.WaterIndex = "ndvi" }, "unknown water index"},
		{"missing green", func(c *SiteConfig) { c.Bands.Green = "" }, "green and nir"},
		{"mndwi without swir1", func(c *SiteConfig) { c.WaterIndex = "mndwi"; c.Bands.SWIR1 = "" }, "requires a swir1"},
		{"unknown reader", func(c *SiteConfig) { c.Reader = "netcdf" }, "unknown band reader"},
		{"too few bins", func(c *SiteConfig) { c.Otsu.HistogramBins = 1 }, "histogram_bins"},
		{"zero step", func(c *SiteConfig) { c.Otsu.CoarseStep = 0 }, "coarse_step"},
		{"class fraction too high", func(c *SiteConfig) { c.Otsu.MinClassFrac = 0.5 }, "min_class_fraction"},
		{"negative class fraction", func(c *SiteConfig) { c.Otsu.MinClassFrac = -0.1 }, "min_class_fraction"},
		{"cloud fraction", func(c *SiteConfig) { c.Cloud.MaxFraction = 1.5 }, "max_fraction"},
		{"even kernel", func(c *SiteConfig) { c.Shoreline.MorphKernel = 4 }, "must be odd"},
		{"inverted tide window", func(c *SiteConfig) { c.Tide.WindowLow = 1; c.Tide.WindowHigh = 0 }, "inverted"},
		{"inverted study range", func(c *SiteConfig) { c.StudyStart = "2023-01-01"; c.StudyEnd = "2020-01-01" }, "precedes"},
		{"bad study date", func(c *SiteConfig) { c.StudyStart = "yesterday" }, "invalid study_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestStudyRangeAndInRange(t *testing.T) {
	cfg := Defaults()
	cfg.StudyStart = "2018-01-01"
	cfg.StudyEnd = "2023-12-31"

	start, end, err := cfg.StudyRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)

	assert.True(t, cfg.InRange(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cfg.InRange(time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cfg.InRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	unbounded := Defaults()
	assert.True(t, unbounded.InRange(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)))
}
