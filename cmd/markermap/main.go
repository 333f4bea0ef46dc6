package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"markermap/internal/app"
	"markermap/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:        "markermap",
		Description: "OpenStreetMap viewer with a textured marker overlay",
		Action:      commandView,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:  "config",
				Usage: "path to the configuration file",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "start latitude",
				Value: app.DefaultLat,
			},
			&cli.Float64Flag{
				Name:  "lon",
				Usage: "start longitude",
				Value: app.DefaultLon,
			},
			&cli.IntFlag{
				Name:  "zoom",
				Usage: "start zoom level",
				Value: app.DefaultZoom,
			},
			&cli.PathFlag{
				Name:  "icons",
				Usage: "directory of marker icon PNGs (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "local tile/marker server port (0 disables)",
				Value: 8428,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandView(ctx *cli.Context) error {
	if path := ctx.Path("config"); path != "" {
		if err := config.Load(path); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	fmt.Println("markermap")
	fmt.Println("Controls:")
	fmt.Println("  Mouse drag    : Pan")
	fmt.Println("  Mouse wheel   : Zoom")
	fmt.Println("  WASD / Arrows : Pan")
	fmt.Println("  Shift         : Zoom in")
	fmt.Println("  Space         : Zoom out")
	fmt.Println("  + / -         : Marker size")
	fmt.Println("  Escape        : Exit")
	fmt.Println()

	viewer, err := app.New(app.Options{
		Lat:        ctx.Float64("lat"),
		Lon:        ctx.Float64("lon"),
		Zoom:       ctx.Int("zoom"),
		IconDir:    ctx.Path("icons"),
		ServerPort: ctx.Int("port"),
	})
	if err != nil {
		return err
	}
	defer viewer.Cleanup()

	return viewer.Run()
}
