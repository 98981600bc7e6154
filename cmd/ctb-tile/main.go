// Command ctb-tile builds a terrain tile pyramid (heightmap-1.0 or
// quantized-mesh-1.0) from a single georeferenced raster, following the
// on-disk layout and flag surface of the original cesium-terrain-builder
// ctb-tile tool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/debugexport"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/manifest"
	"github.com/geodata/ctb-tile/internal/pyramid"
	"github.com/geodata/ctb-tile/internal/raster"
	"github.com/geodata/ctb-tile/internal/serializer"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type creationOptions map[string]string

func (c creationOptions) String() string {
	var parts []string
	for k, v := range c {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (c creationOptions) Set(s string) error {
	name, value, err := pyramid.ParseCreationOption(s)
	if err != nil {
		return err
	}
	c[name] = value
	return nil
}

func main() {
	var (
		outDir             string
		formatName         string
		profileName        string
		concurrency        int
		tileSize           int
		startZoom          int
		endZoom            int
		resamplingName     string
		errorThreshold     float64
		warpMemoryLimit    int64
		resume             bool
		meshQualityFactor  float64
		metadataOnly       bool
		cesiumFriendly     bool
		writeVertexNormals bool
		quiet              bool
		verbose            bool
		showVersion        bool
		cpuProfile         string
		memProfile         string
		debugPreviewDir    string
		debugGeoJSONPath   string
	)
	creationOpts := make(creationOptions)

	flag.StringVar(&outDir, "o", ".", "Output directory")
	flag.StringVar(&formatName, "f", "heightmap", "Output format: heightmap, mesh, or a pass-through GDAL driver name")
	flag.StringVar(&profileName, "p", "geodetic", "Tiling profile: geodetic or mercator")
	flag.IntVar(&concurrency, "c", runtime.NumCPU(), "Thread count")
	flag.IntVar(&tileSize, "t", 0, "Tile size in pixels (default 65 for heightmap, 256 otherwise)")
	flag.IntVar(&startZoom, "s", -1, "Start (maximum) zoom level (default: native resolution match)")
	flag.IntVar(&endZoom, "e", 0, "End (minimum) zoom level")
	flag.StringVar(&resamplingName, "r", "average", "Resampling: nearest, bilinear, cubic, cubicspline, lanczos, average, mode, max, min, med, q1, q3")
	flag.Var(&creationOpts, "n", "GDAL creation option NAME=VALUE (repeatable)")
	flag.Float64Var(&errorThreshold, "z", 0.125, "Error threshold in pixels for approximate transforms")
	flag.Int64Var(&warpMemoryLimit, "m", 0, "Warp memory limit in bytes (0 = unbounded)")
	flag.BoolVar(&resume, "R", false, "Resume: do not overwrite existing tiles")
	flag.Float64Var(&meshQualityFactor, "g", 1.0, "Mesh geometric error quality factor")
	flag.BoolVar(&metadataOnly, "l", false, "Write only layer.json")
	flag.BoolVar(&cesiumFriendly, "C", false, "Synthesize a missing geodetic root tile for cesium clients")
	flag.BoolVar(&writeVertexNormals, "N", false, "Include oct-encoded per-vertex normals (mesh only)")
	flag.BoolVar(&quiet, "q", false, "Quiet: suppress progress output")
	flag.BoolVar(&verbose, "v", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")
	flag.StringVar(&debugPreviewDir, "debug-preview", "", "Write a WebP shaded-relief preview of each heightmap tile to this directory")
	flag.StringVar(&debugGeoJSONPath, "debug-geojson", "", "Write a GeoJSON footprint of the visited tile pyramid to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ctb-tile [flags] <input-raster>\n\n")
		fmt.Fprintf(os.Stderr, "Build a terrain tile pyramid from a single georeferenced raster.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("ctb-tile %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}
	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("Creating memory profile: %v", err)
			}
			defer f.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("Writing memory profile: %v", err)
			}
		}()
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := args[0]

	format, driverName := pyramid.FormatForName(formatName)
	if tileSize <= 0 {
		if format == pyramid.FormatHeightmap {
			tileSize = 65
		} else {
			tileSize = 256
		}
	}

	profile, err := grid.ForName(profileName, tileSize)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	resampling, err := raster.ResamplingForName(resamplingName)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	if _, err := os.Stat(outDir); err != nil {
		if os.IsNotExist(err) {
			log.Fatalf("Config: output directory %q does not exist", outDir)
		}
		log.Fatalf("Config: %v", err)
	}

	open := func() (raster.Source, error) {
		return raster.OpenCog(inputPath)
	}

	probe, err := open()
	if err != nil {
		log.Fatalf("Source: %v", err)
	}
	if startZoom < 0 {
		startZoom = int(pyramid.ResolveMaxZoom(profile, probe))
	}
	probe.Close()

	if startZoom < endZoom {
		log.Fatalf("Config: start zoom %d below end zoom %d", startZoom, endZoom)
	}

	cfg := pyramid.Config{
		Profile:            profile,
		Format:             format,
		DriverName:         driverName,
		MinZoom:            uint8(endZoom),
		MaxZoom:            uint8(startZoom),
		TileSize:           tileSize,
		Concurrency:        concurrency,
		Resampling:         resampling,
		ErrorThreshold:     errorThreshold,
		WarpMemoryLimit:    warpMemoryLimit,
		Resume:             resume,
		MetadataOnly:       metadataOnly,
		CesiumFriendly:     cesiumFriendly && profileName == "geodetic",
		WriteVertexNormals: writeVertexNormals && format == pyramid.FormatMesh,
		MeshQualityFactor:  meshQualityFactor,
		CreationOptions:    creationOpts,
		Quiet:              quiet,
		Verbose:            verbose,
	}

	mopts := manifest.Options{
		Name:               inputPath,
		Description:        fmt.Sprintf("Generated by ctb-tile %s", version),
		Version:            "1.0.0",
		Format:             format.ManifestFormatName(driverName),
		ProjectionName:     fmt.Sprintf("EPSG:%d", profile.EPSG),
		WriteVertexNormals: cfg.WriteVertexNormals,
		MinZoom:            cfg.MinZoom,
		MaxZoom:            cfg.MaxZoom,
	}

	if verbose {
		log.Printf("ctb-tile %s (commit %s, built %s)", version, commit, buildDate)
		log.Printf("  Input:       %s", inputPath)
		log.Printf("  Output:      %s", outDir)
		log.Printf("  Format:      %s", mopts.Format)
		log.Printf("  Profile:     %s", profile.Name)
		log.Printf("  Zoom:        %d - %d", endZoom, startZoom)
		log.Printf("  Tile size:   %d", tileSize)
		log.Printf("  Concurrency: %d", concurrency)
		log.Printf("  Resampling:  %s", resamplingName)
	}

	fs := afero.NewOsFs()
	ser := serializer.New(fs, outDir, resume)

	start := time.Now()
	result, err := pyramid.Run(open, ser, cfg, mopts)
	if err != nil {
		log.Printf("Fatal: %v", err)
		os.Exit(ctberr.ExitCode(err))
	}

	if debugPreviewDir != "" || debugGeoJSONPath != "" {
		if err := runDebugExports(fs, outDir, profile, result, debugPreviewDir, debugGeoJSONPath); err != nil {
			log.Printf("Debug export: %v", err)
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if !quiet {
		fmt.Printf("Done: %d tiles (%d empty), %v → %s\n", result.Stats.TileCount, result.Stats.EmptyTiles, elapsed, outDir)
	}
}

func runDebugExports(fs afero.Fs, outDir string, profile grid.Profile, result pyramid.Result, previewDir, geoJSONPath string) error {
	if previewDir != "" {
		if err := debugexport.WritePreviews(fs, outDir, previewDir, result.Layer); err != nil {
			return err
		}
	}
	if geoJSONPath != "" {
		if err := debugexport.WriteGeoJSON(fs, geoJSONPath, profile, result.Layer); err != nil {
			return err
		}
	}
	return nil
}
