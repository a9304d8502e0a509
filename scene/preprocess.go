package scene

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/rimage"
	"github.com/AlexLike/OpenMaskXR/rimage/transform"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
	"github.com/AlexLike/OpenMaskXR/utils"
	"github.com/AlexLike/OpenMaskXR/utils/matrix"
)

// ErrOutputExists is returned when the output directory of a pipeline is already present.
var ErrOutputExists = errors.New("output directory already exists")

// PreprocessReport summarizes a Preprocess run.
type PreprocessReport struct {
	Frames        int
	SkippedFrames []int
	Points        int
	// MedianVisible is the median share of the cloud recolored by a single frame.
	MedianVisible  float64
	OutliersFilled int
	ColorImages    []string
	Duration       time.Duration
}

// Preprocess fuses the scan in scanDir into a colored point cloud and writes it, together with
// rendered depth maps and copies of the frames, poses and calibration, to outDir. outDir must not
// exist yet.
func Preprocess(scanDir, outDir string, cfg PreprocessConfig, logger logging.Logger) (*PreprocessReport, error) {
	start := time.Now()
	if err := cfg.Validate("preprocess"); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	frames, err := checkScan(scanDir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(outDir); err == nil {
		return nil, errors.Wrapf(ErrOutputExists, "%q, remove it first to process the scan again", outDir)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	for _, dir := range []string{DepthDir, ColorDir, PoseDir, IntrinsicDir} {
		if err := os.MkdirAll(filepath.Join(outDir, dir), dirPerm); err != nil {
			return nil, err
		}
	}

	mesh, err := spatialmath.NewMeshFromOBJFile(filepath.Join(scanDir, MeshFile))
	if err != nil {
		return nil, err
	}
	logger.Infow("loaded mesh", "vertices", len(mesh.Vertices()), "triangles", mesh.NumTriangles())

	cloud, err := pointcloud.NewFromMesh(mesh, pointcloud.SampleOptions{
		NumPoints: cfg.NumPoints,
		Ratio:     cfg.PoissonRatio,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("sampled point cloud", "points", cloud.Size())

	intrinsicMatrix, err := matrix.ReadDenseFile(filepath.Join(scanDir, IntrinsicsFile))
	if err != nil {
		return nil, err
	}
	caster := spatialmath.NewRayCaster(mesh)

	report := &PreprocessReport{}
	var visible stats.Float64Data
	for i := 0; i < frames; i++ {
		frameStats, err := fuseFrame(scanDir, outDir, i, cloud, caster, intrinsicMatrix, cfg)
		if err != nil {
			if cfg.SkipMissingFrames && errors.Is(err, os.ErrNotExist) {
				logger.Warnw("skipping frame", "frame", i, "error", err)
				report.SkippedFrames = append(report.SkippedFrames, i)
				continue
			}
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		report.Frames++
		visible = append(visible, frameStats.VisibleFraction(cloud.Size()))
		logger.Debugw("colorized frame", "frame", i, "projected", frameStats.Projected, "visible", frameStats.Visible)
	}
	if len(visible) > 0 {
		if report.MedianVisible, err = stats.Median(visible); err != nil {
			return nil, err
		}
	}

	if report.OutliersFilled, err = pointcloud.FillOutlierColors(cloud, cfg.OutlierNeighbors, *cfg.OutlierThreshold); err != nil {
		return nil, err
	}
	logger.Infow("filled outlier colors", "replaced", report.OutliersFilled)

	if err := pointcloud.WriteToPLYFile(cloud, filepath.Join(outDir, PointCloudFile)); err != nil {
		return nil, err
	}
	report.Points = cloud.Size()

	if report.ColorImages, err = copyScanFiles(scanDir, outDir); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	logger.Infow("preprocessed scan",
		"scan", scanDir,
		"output", outDir,
		"frames", report.Frames,
		"skipped", len(report.SkippedFrames),
		"median_visible", report.MedianVisible,
		"duration", report.Duration,
	)
	return report, nil
}

// checkScan verifies the scan layout and returns the number of frames, which is the number of
// files in the images directory.
func checkScan(scanDir string) (int, error) {
	for _, name := range []string{MeshFile, IntrinsicsFile, MarkerTransformFile, PosesDir} {
		if _, err := os.Stat(filepath.Join(scanDir, name)); err != nil {
			return 0, errors.Wrap(err, "incomplete scan")
		}
	}
	entries, err := os.ReadDir(filepath.Join(scanDir, ImagesDir))
	if err != nil {
		return 0, errors.Wrap(err, "incomplete scan")
	}
	return len(entries), nil
}

// loadFramePose reads the camera to world pose of frame i and converts it to a camera that looks
// down +Z with +Y down.
func loadFramePose(scanDir string, i int, convention string) (*spatialmath.Pose, error) {
	pose, err := spatialmath.ReadPoseFile(filepath.Join(scanDir, PosesDir, strconv.Itoa(i)+FrameMatrixExt))
	if err != nil {
		return nil, err
	}
	if convention == PoseConventionDevice {
		pose = pose.FlipYZ()
	}
	return pose, nil
}

// fuseFrame renders the depth of frame i, saves it, and recolors the points the frame sees.
func fuseFrame(
	scanDir, outDir string,
	i int,
	cloud *pointcloud.PointCloud,
	caster *spatialmath.RayCaster,
	intrinsicMatrix mat.Matrix,
	cfg PreprocessConfig,
) (transform.ColorizeStats, error) {
	var frameStats transform.ColorizeStats
	pose, err := loadFramePose(scanDir, i, cfg.PoseConvention)
	if err != nil {
		return frameStats, err
	}
	img, err := rimage.ReadColorImage(filepath.Join(scanDir, ImagesDir), strconv.Itoa(i))
	if err != nil {
		return frameStats, err
	}
	bounds := img.Bounds()
	params, err := transform.NewPinholeCameraIntrinsicsFromMatrix(intrinsicMatrix, bounds.Dx(), bounds.Dy())
	if err != nil {
		return frameStats, err
	}

	depth, err := transform.RenderDepth(caster, params, pose, cfg.DepthScale)
	if err != nil {
		return frameStats, err
	}
	if err := rimage.WriteDepthMapToFile(depth, filepath.Join(outDir, DepthDir, strconv.Itoa(i)+DepthImageExt)); err != nil {
		return frameStats, err
	}
	return transform.ColorizeFromFrame(cloud, img, depth, pose, params, transform.ColorizeOptions{
		DepthScale: cfg.DepthScale,
		Epsilon:    cfg.VisibilityEpsilon,
	})
}

// copyScanFiles copies frames, poses and calibration into the processed layout.
func copyScanFiles(scanDir, outDir string) ([]string, error) {
	colors, err := utils.CopyDirFiles(
		filepath.Join(scanDir, ImagesDir),
		filepath.Join(outDir, ColorDir),
		func(name string) string { return utils.ReplaceExt(name, ColorImageExt) },
	)
	if err != nil {
		return nil, err
	}
	if _, err := utils.CopyDirFiles(filepath.Join(scanDir, PosesDir), filepath.Join(outDir, PoseDir), nil); err != nil {
		return nil, err
	}
	copies := [][2]string{
		{IntrinsicsFile, filepath.Join(IntrinsicDir, IntrinsicColorFile)},
		{MarkerTransformFile, MarkerTransformFile},
		{MeshFile, MeshFile},
	}
	for _, c := range copies {
		if err := utils.CopyFile(filepath.Join(scanDir, c[0]), filepath.Join(outDir, c[1])); err != nil {
			return nil, err
		}
	}
	return colors, nil
}
