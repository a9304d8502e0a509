package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/AlexLike/OpenMaskXR/config"
	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/scene"
	"github.com/AlexLike/OpenMaskXR/services/openmask"
)

const logFileMaxSizeMB = 100

// setup loads the configuration and a logger writing to the application's error writer.
func setup(c *cli.Context) (*config.Config, logging.Logger, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, nil, errors.Wrapf(err, "cannot load config %q", path)
		}
	}
	logger := logging.NewBlankLogger("openmaskxr")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if cfg.LogFile != "" {
		logger.AddAppender(logging.NewFileAppender(cfg.LogFile, logFileMaxSizeMB))
	}
	logger.SetLevel(cfg.LogLevel(c.Bool(flagDebug)))
	return cfg, logger, nil
}

// PreprocessAction is the corresponding action for 'preprocess'.
func PreprocessAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)
	report, err := scene.Preprocess(c.String(flagScan), c.String(flagOut), cfg.Preprocess, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "fused %d frames into %d points in %s\n", report.Frames, report.Points, report.Duration)
	if len(report.SkippedFrames) > 0 {
		fmt.Fprintf(c.App.Writer, "skipped frames %v\n", report.SkippedFrames)
	}
	return nil
}

// PostprocessAction is the corresponding action for 'postprocess'.
func PostprocessAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)
	report, err := scene.Postprocess(c.String(flagScene), cfg.Postprocess, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, report.String())
	fmt.Fprintf(c.App.Writer, "assigned %d of %d triangles to %d instances\n",
		report.AssignedTriangles, report.TotalTriangles, report.Instances)
	return nil
}

// DownsampleAction is the corresponding action for 'downsample'.
func DownsampleAction(c *cli.Context) error {
	_, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)
	sceneDir := c.String(flagScene)
	cloud, err := pointcloud.NewFromPLYFile(filepath.Join(sceneDir, scene.PointCloudFile))
	if err != nil {
		return err
	}
	small, err := pointcloud.UniformDownsample(cloud, c.Int(flagPoints))
	if err != nil {
		return err
	}
	out := filepath.Join(sceneDir, scene.DownsampledFile)
	if err := pointcloud.WriteToPLYFile(small, out); err != nil {
		return err
	}
	logger.Debugw("downsampled point cloud", "from", cloud.Size(), "to", small.Size())
	fmt.Fprintf(c.App.Writer, "wrote %d points to %s\n", small.Size(), out)
	return nil
}

// ServeAction is the corresponding action for 'serve'.
func ServeAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(logger.Sync)
	if err := cfg.Server.Validate("server"); err != nil {
		return err
	}
	address := cfg.Server.Address
	if c.IsSet(flagAddress) {
		address = c.String(flagAddress)
	}
	runner := openmask.NewRunner(cfg.Server.Runner, logger.Sublogger("runner"))
	var encoder openmask.QueryEncoder
	if cfg.Server.Encoder != nil {
		encoder = openmask.NewCommandEncoder(*cfg.Server.Encoder, logger.Sublogger("encoder"))
	}
	return openmask.Serve(c.Context, address, openmask.NewHandler(runner, encoder, logger), logger)
}

// ConfigSchemaAction is the corresponding action for 'config-schema'.
func ConfigSchemaAction(c *cli.Context) error {
	md, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(md))
	return nil
}
