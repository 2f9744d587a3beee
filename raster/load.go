package raster

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	"golang.org/x/image/tiff"
)

// Band identifies a spectral band inside a scene directory.
type Band string

const (
	BandBlue  Band = "blue"
	BandGreen Band = "green"
	BandRed   Band = "red"
	BandNIR   Band = "nir"
	BandSWIR1 Band = "swir1"
	BandCLD   Band = "cld"
	BandSCL   Band = "scl"
)

// Scene is one satellite acquisition: a set of band grids sharing a
// common extent, plus georeferencing when the source files carry it.
type Scene struct {
	Date  time.Time
	Bands map[Band]*Grid
	Ref   GeoRef

	// ProjectionWKT is the source projection for reprojection of
	// shoreline vertices. Empty for plain TIFF scenes.
	ProjectionWKT string
}

var gdalRegistered bool

// RegisterDrivers initializes the GDAL driver registry. Safe to call
// more than once; only the first call does work.
func RegisterDrivers() {
	if !gdalRegistered {
		godal.RegisterAll()
		gdalRegistered = true
	}
}

// LoadOptions selects how band files are read.
type LoadOptions struct {
	// Reader is "gdal" for georeferenced scenes, "tiff" for plain
	// grayscale band stacks, or "auto" (default) to try GDAL first.
	Reader string

	// Scale multiplies samples read through GDAL, converting digital
	// numbers to reflectance (e.g. 1/10000 for Sentinel-2 L2A). Zero
	// means no scaling. The plain-TIFF reader always normalizes by
	// bit depth instead.
	Scale float64
}

// LoadScene reads the requested bands from a scene directory. The
// scene date is parsed from the directory name (YYYY-MM-DD, optionally
// with a suffix such as 2021-03-06_L2A).
func LoadScene(dir string, files map[Band]string, opts LoadOptions) (*Scene, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no band files requested for scene %s", dir)
	}

	date, err := ParseSceneDate(filepath.Base(dir))
	if err != nil {
		return nil, err
	}

	scene := &Scene{
		Date:  date,
		Bands: make(map[Band]*Grid, len(files)),
	}

	for band, name := range files {
		if name == "" {
			continue
		}

		path := filepath.Join(dir, name)
		grid, ref, wkt, err := loadBandFile(path, opts)
		if err != nil {
			return nil, fmt.Errorf("band %s: %w", band, err)
		}

		if ref.Valid && !scene.Ref.Valid {
			scene.Ref = ref
			scene.ProjectionWKT = wkt
		}

		for _, existing := range scene.Bands {
			if !existing.SameShape(grid) {
				return nil, fmt.Errorf("band %s has extent %dx%d, scene is %dx%d",
					band, grid.Width, grid.Height, existing.Width, existing.Height)
			}
			break
		}

		scene.Bands[band] = grid
	}

	if len(scene.Bands) == 0 {
		return nil, fmt.Errorf("scene %s resolved no band files", dir)
	}

	return scene, nil
}

// ParseSceneDate extracts the acquisition date from a scene directory
// name.
func ParseSceneDate(name string) (time.Time, error) {
	candidate := name
	if len(candidate) > 10 {
		candidate = candidate[:10]
	}

	date, err := time.Parse("2006-01-02", candidate)
	if err != nil {
		return time.Time{}, fmt.Errorf("scene directory %q does not start with a YYYY-MM-DD date: %w", name, err)
	}

	return date, nil
}

// loadBandFile reads one band file with the configured reader.
func loadBandFile(path string, opts LoadOptions) (*Grid, GeoRef, string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, GeoRef{}, "", fmt.Errorf("band file missing: %w", err)
	}

	switch opts.Reader {
	case "tiff":
		grid, err := loadPlainTIFF(path)
		return grid, GeoRef{}, "", err
	case "gdal":
		return loadWithGDAL(path, opts.Scale)
	case "", "auto":
		grid, ref, wkt, err := loadWithGDAL(path, opts.Scale)
		if err == nil {
			return grid, ref, wkt, nil
		}
		grid, tiffErr := loadPlainTIFF(path)
		if tiffErr != nil {
			return nil, GeoRef{}, "", fmt.Errorf("gdal: %v; tiff: %w", err, tiffErr)
		}
		return grid, GeoRef{}, "", nil
	default:
		return nil, GeoRef{}, "", fmt.Errorf("unknown band reader %q", opts.Reader)
	}
}

func loadWithGDAL(path string, scale float64) (*Grid, GeoRef, string, error) {
	RegisterDrivers()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, GeoRef{}, "", err
	}
	defer ds.Close()

	structure := ds.Structure()
	if structure.SizeX <= 0 || structure.SizeY <= 0 {
		return nil, GeoRef{}, "", fmt.Errorf("dataset %s has invalid extent %dx%d", path, structure.SizeX, structure.SizeY)
	}
	if structure.NBands < 1 {
		return nil, GeoRef{}, "", fmt.Errorf("dataset %s has no bands", path)
	}

	band := ds.Bands()[0]
	data := make([]float64, structure.SizeX*structure.SizeY)
	if err := band.Read(0, 0, data, structure.SizeX, structure.SizeY); err != nil {
		return nil, GeoRef{}, "", fmt.Errorf("failed to read band data: %w", err)
	}

	if scale != 0 && scale != 1 {
		for i := range data {
			data[i] *= scale
		}
	}

	grid := &Grid{
		Width:  structure.SizeX,
		Height: structure.SizeY,
		Data:   data,
	}

	ref := GeoRef{}
	wkt := ""
	if gt, gtErr := ds.GeoTransform(); gtErr == nil {
		ref = GeoRef{Transform: gt, Valid: true}
		if sr := ds.SpatialRef(); sr != nil {
			if w, wErr := sr.WKT(); wErr == nil {
				wkt = w
			}
			sr.Close()
		}
	}

	return grid, ref, wkt, nil
}

// loadPlainTIFF decodes an ungeoreferenced grayscale TIFF. Samples are
// scaled to [0, 1] reflectance-like units so the index math treats
// both load paths uniformly.
func loadPlainTIFF(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	grid, err := NewGrid(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	switch typed := img.(type) {
	case *image.Gray:
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				grid.Set(x, y, float64(typed.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)/255.0)
			}
		}
	case *image.Gray16:
		for y := 0; y < grid.Height; y++ {
			for x := 0; x < grid.Width; x++ {
				grid.Set(x, y, float64(typed.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)/65535.0)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported TIFF pixel layout %T, expected grayscale", img)
	}

	return grid, nil
}

// ReprojectToWGS84 transforms world coordinates in place from the
// scene projection to longitude/latitude. Scenes without a projection
// pass through unchanged.
func ReprojectToWGS84(wkt string, xs, ys []float64) error {
	if wkt == "" || len(xs) == 0 {
		return nil
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("coordinate slices differ in length: %d vs %d", len(xs), len(ys))
	}

	RegisterDrivers()

	src, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return fmt.Errorf("failed to parse scene projection: %w", err)
	}
	defer src.Close()

	dst, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return fmt.Errorf("failed to build WGS84 reference: %w", err)
	}
	defer dst.Close()

	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return fmt.Errorf("failed to build coordinate transform: %w", err)
	}
	defer tr.Close()

	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return fmt.Errorf("transform error: %w", err)
	}

	return nil
}

// IsSceneDir reports whether a directory entry looks like a scene
// directory, guarding against working files when scanning a root.
func IsSceneDir(entry os.DirEntry) bool {
	if !entry.IsDir() {
		return false
	}
	name := entry.Name()
	if strings.HasPrefix(name, ".") {
		return false
	}
	_, err := ParseSceneDate(name)
	return err == nil
}
