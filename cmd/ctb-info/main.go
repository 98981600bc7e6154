// Command ctb-info prints the georeferencing metadata ctb-tile would use
// to plan a pyramid build from a raster, without writing any tiles.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/geodata/ctb-tile/internal/cog"
	"github.com/geodata/ctb-tile/internal/grid"
	"github.com/geodata/ctb-tile/internal/pyramid"
	"github.com/geodata/ctb-tile/internal/raster"
)

func main() {
	var profileName string
	flag.StringVar(&profileName, "p", "geodetic", "Tiling profile used to report the suggested start zoom: geodetic or mercator")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ctb-info [flags] <input-raster>\n\n")
		fmt.Fprintf(os.Stderr, "Print raster georeferencing metadata relevant to tiling.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	r, err := cog.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	fmt.Printf("File:          %s\n", path)
	fmt.Printf("EPSG:          %d\n", r.EPSG())
	fmt.Printf("Full-res size: %d x %d\n", r.Width(), r.Height())
	fmt.Printf("Pixel size:    %f (CRS units)\n", r.PixelSize())
	fmt.Printf("IFDs:          %d (1 full-res + %d overview(s))\n", r.IFDCount(), r.NumOverviews())
	fmt.Printf("Band format:   %s\n", r.FormatDescription())

	geo := r.GeoInfo()
	fmt.Printf("Origin:        X=%f, Y=%f\n", geo.OriginX, geo.OriginY)

	minX, minY, maxX, maxY := r.BoundsInCRS()
	fmt.Printf("Bounds (CRS):  X=[%f, %f], Y=[%f, %f]\n", minX, maxX, minY, maxY)

	for level := 0; level < r.IFDCount(); level++ {
		ts := r.IFDTileSize(level)
		fmt.Printf("  IFD %d: %dx%d, internal tile %dx%d, pixel size=%f\n",
			level, r.IFDWidth(level), r.IFDHeight(level), ts[0], ts[1], r.IFDPixelSize(level))
	}

	profile, err := grid.ForName(profileName, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	src, err := raster.OpenCog(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	maxZoom := pyramid.ResolveMaxZoom(profile, src)
	fmt.Printf("Suggested zoom: %d (profile=%s, matching native resolution)\n", maxZoom, profile.Name)
}
