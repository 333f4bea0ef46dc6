// placedump prints the place features the viewer would turn into markers
// around a coordinate. Useful for checking what a region's marker set will
// look like without starting the GPU viewer.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"markermap/internal/placesource"
	"markermap/pkg/tiles"
)

func main() {
	app := &cli.App{
		Name:        "placedump",
		Description: "dump vector-tile place features around a coordinate",
		Action:      commandDump,
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "latitude",
				Value: 52.3676,
			},
			&cli.Float64Flag{
				Name:  "lon",
				Usage: "longitude",
				Value: 4.9041,
			},
			&cli.IntFlag{
				Name:  "zoom",
				Usage: "lookup zoom level",
				Value: 10,
			},
			&cli.StringSliceFlag{
				Name:  "class",
				Usage: "place classes to keep",
				Value: cli.NewStringSlice("city", "town"),
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "maximum markers (0 = unlimited)",
				Value: 0,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandDump(ctx *cli.Context) error {
	lat := ctx.Float64("lat")
	lon := ctx.Float64("lon")
	zoom := ctx.Int("zoom")

	coord := tiles.LatLonToTile(lat, lon, zoom)
	fmt.Printf("Fetching places around %s...\n", coord)

	cache := placesource.New()

	data, err := cache.GetTile(coord.Zoom, coord.X, coord.Y)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Places in center tile: %d ===\n", len(data.Places))
	classes := make(map[string]int)
	for _, p := range data.Places {
		classes[p.Class]++
	}
	for class, count := range classes {
		fmt.Printf("  %s: %d\n", class, count)
	}

	ms, err := cache.MarkersAround(lat, lon, zoom, ctx.StringSlice("class"), ctx.Int("max"))
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Markers (%v): %d ===\n", ctx.StringSlice("class"), len(ms))
	for i, m := range ms {
		if i >= 25 {
			fmt.Printf("  ... and %d more\n", len(ms)-i)
			break
		}
		fmt.Printf("  %s [%s] at (%.4f, %.4f)\n", m.Name, m.Icon, m.Location.Lon(), m.Location.Lat())
	}

	return nil
}
