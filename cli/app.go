// Package cli contains the openmaskxr command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/AlexLike/OpenMaskXR/pointcloud"
)

const (
	flagConfig  = "config"
	flagDebug   = "debug"
	flagScan    = "scan"
	flagOut     = "out"
	flagScene   = "scene"
	flagPoints  = "points"
	flagAddress = "address"
)

// NewApp returns the openmaskxr application writing results to out and logs to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "openmaskxr",
		Usage:           "fuse headset scans into segmentable scenes and serve the segmentation model",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "preprocess",
				Usage:     "fuse a scan into a colored point cloud and the processed scene layout",
				UsageText: "openmaskxr preprocess --scan <dir> --out <dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagScan,
						Usage:    "scan directory with mesh.obj, images/, poses/ and calibration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagOut,
						Usage:    "directory to create for the processed scene",
						Required: true,
					},
				},
				Action: PreprocessAction,
			},
			{
				Name:      "postprocess",
				Usage:     "assign mesh triangles to the instances found by the segmentation model",
				UsageText: "openmaskxr postprocess --scene <dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagScene,
						Usage:    "processed scene directory containing the model output",
						Required: true,
					},
				},
				Action: PostprocessAction,
			},
			{
				Name:      "downsample",
				Usage:     "thin out the point cloud of a processed scene for display",
				UsageText: "openmaskxr downsample --scene <dir> [--points <n>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagScene,
						Usage:    "processed scene directory containing scene.ply",
						Required: true,
					},
					&cli.IntFlag{
						Name:  flagPoints,
						Usage: "approximate number of points to keep",
						Value: pointcloud.DefaultDownsampleTarget,
					},
				},
				Action: DownsampleAction,
			},
			{
				Name:  "serve",
				Usage: "serve the segmentation model trigger and query encoding over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagAddress,
						Usage: "address to listen on, overrides the config file",
					},
				},
				Action: ServeAction,
			},
			{
				Name:   "config-schema",
				Usage:  "print the JSON schema of the configuration file",
				Action: ConfigSchemaAction,
			},
		},
	}
}
