package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"coastline/otsu"
	"coastline/raster"
	"coastline/shoreline"
)

var (
	extractOut     string
	extractWorkers int
)

var extractCmd = &cobra.Command{
	Use:   "extract <scenes-dir>",
	Short: "Extract water masks and shoreline vectors from scene directories",
	Long: `Walks a directory of scene subdirectories (named YYYY-MM-DD, optionally
with a suffix), screens each scene for clouds, computes the configured
water index, selects a water/land threshold on its histogram, and
writes the cleaned mask (PNG and GeoTIFF), the shoreline GeoJSON, and
a per-scene metadata row to scenes.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "out", "output directory")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", runtime.NumCPU(), "concurrent scenes")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	raster.RegisterDrivers()

	scenes, err := listSceneDirs(args[0])
	if err != nil {
		return err
	}
	if len(scenes) == 0 {
		return fmt.Errorf("no scene directories inside the study range under %s", args[0])
	}

	if err := os.MkdirAll(extractOut, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory %s", extractOut)
	}

	logger.Info("extract", "processing scenes", map[string]interface{}{
		"scenes":  len(scenes),
		"workers": extractWorkers,
		"index":   cfg.WaterIndex,
	})

	bar := progressbar.Default(int64(len(scenes)), "extracting")
	metaPath := filepath.Join(extractOut, "scenes.csv")

	var (
		mu        sync.Mutex
		processed int
	)

	err = forEachScene(cmd.Context(), scenes, extractWorkers, func(dir string) error {
		meta, err := processScene(dir)

		mu.Lock()
		defer mu.Unlock()
		_ = bar.Add(1)

		if err != nil {
			// A bad scene should not sink the batch.
			logger.Warning("extract", "scene skipped", map[string]interface{}{
				"scene":  filepath.Base(dir),
				"reason": err.Error(),
			})
			return nil
		}

		processed++
		return shoreline.AppendSceneMeta(metaPath, *meta)
	})
	if err != nil {
		return err
	}
	if processed == 0 {
		return fmt.Errorf("no scene survived screening and extraction")
	}

	logger.Info("extract", "done", map[string]interface{}{
		"processed": processed,
		"skipped":   len(scenes) - processed,
		"meta":      metaPath,
	})
	return nil
}

// forEachScene fans fn out over the scenes with a bounded worker pool.
// Cancelling the context stops pending scenes, so a SIGINT drains the
// batch instead of letting it run to completion.
func forEachScene(ctx context.Context, scenes []string, workers int, fn func(dir string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, dir := range scenes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(dir)
		})
	}

	return g.Wait()
}

// listSceneDirs returns scene directories whose date parses and falls
// inside the study range.
func listSceneDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scene directory %s", root)
	}

	var scenes []string
	for _, entry := range entries {
		if !raster.IsSceneDir(entry) {
			continue
		}
		date, err := raster.ParseSceneDate(entry.Name())
		if err != nil {
			continue
		}
		if !cfg.InRange(date) {
			logger.Debug("extract", "scene outside study range", map[string]interface{}{
				"scene": entry.Name(),
			})
			continue
		}
		scenes = append(scenes, filepath.Join(root, entry.Name()))
	}

	return scenes, nil
}

// bandFiles maps configured band file names to their roles, leaving
// unset bands out.
func bandFiles() map[raster.Band]string {
	files := make(map[raster.Band]string)
	set := func(band raster.Band, name string) {
		if name != "" {
			files[band] = name
		}
	}
	set(raster.BandBlue, cfg.Bands.Blue)
	set(raster.BandGreen, cfg.Bands.Green)
	set(raster.BandRed, cfg.Bands.Red)
	set(raster.BandNIR, cfg.Bands.NIR)
	set(raster.BandSWIR1, cfg.Bands.SWIR1)
	set(raster.BandCLD, cfg.Bands.CLD)
	set(raster.BandSCL, cfg.Bands.SCL)
	return files
}

func processScene(dir string) (*shoreline.SceneMeta, error) {
	scene, err := raster.LoadScene(dir, bandFiles(), raster.LoadOptions{
		Reader: cfg.Reader,
		Scale:  cfg.ReflectanceScale,
	})
	if err != nil {
		return nil, err
	}

	screen, err := raster.ScreenClouds(scene, raster.CloudParams{
		Tau:                    cfg.Cloud.Tau,
		UseSceneClassification: cfg.Cloud.UseSceneClassification,
	})
	if err != nil {
		return nil, err
	}
	if screen.Fraction > cfg.Cloud.MaxFraction {
		return nil, fmt.Errorf("cloud fraction %.2f above limit %.2f", screen.Fraction, cfg.Cloud.MaxFraction)
	}

	kind := raster.WaterIndexKind(cfg.WaterIndex)
	index, err := raster.WaterIndex(scene, kind, screen.Mask)
	if err != nil {
		return nil, err
	}

	lo, hi := kind.Range()
	hist, err := otsu.NewHistogram(cfg.Otsu.HistogramBins, lo, hi)
	if err != nil {
		return nil, err
	}
	hist.AddAll(index.Data)

	threshold, err := otsu.FindThreshold(hist, otsu.Params{
		Method:           otsu.MethodOtsu,
		CoarseStep:       cfg.Otsu.CoarseStep,
		MinClassFraction: cfg.Otsu.MinClassFrac,
	})
	if err != nil {
		return nil, err
	}

	mask, err := shoreline.BuildWaterMask(index, threshold.Threshold)
	if err != nil {
		return nil, err
	}

	result, err := shoreline.Extract(mask, shoreline.Params{
		MorphKernel: cfg.Shoreline.MorphKernel,
		MinBlobArea: cfg.Shoreline.MinBlobArea,
		MinVertices: cfg.Shoreline.MinVertices,
	})
	if err != nil {
		return nil, err
	}

	stamp := scene.Date.Format("2006-01-02")
	if err := shoreline.WriteMaskPNG(filepath.Join(extractOut, stamp+"_mask.png"), result.Mask); err != nil {
		return nil, err
	}
	if scene.Ref.Valid {
		tifPath := filepath.Join(extractOut, stamp+"_mask.tif")
		if err := shoreline.WriteMaskGeoTIFF(tifPath, result.Mask, scene.Ref, scene.ProjectionWKT); err != nil {
			return nil, err
		}
	}
	if len(result.Chains) > 0 {
		geoPath := filepath.Join(extractOut, stamp+"_shoreline.geojson")
		err := shoreline.WriteGeoJSON(geoPath, scene.Date, result.Chains, shoreline.VectorOptions{
			Ref:           scene.Ref,
			ProjectionWKT: scene.ProjectionWKT,
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("extract", "scene processed", map[string]interface{}{
		"scene":        stamp,
		"threshold":    threshold.Threshold,
		"separability": threshold.Separability,
		"chains":       len(result.Chains),
	})

	return &shoreline.SceneMeta{
		Date:          scene.Date,
		Index:         cfg.WaterIndex,
		Threshold:     threshold.Threshold,
		Variance:      threshold.Variance,
		Separability:  threshold.Separability,
		CloudFraction: screen.Fraction,
		WaterFraction: result.Mask.WaterFraction,
		Chains:        len(result.Chains),
	}, nil
}
