package scene

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/rimage/transform"
	"github.com/AlexLike/OpenMaskXR/vision/segmentation"
)

// Pose conventions accepted in PreprocessConfig.PoseConvention.
const (
	// PoseConventionDevice poses come from a camera that looks down -Z with +Y up. They are
	// converted once on load.
	PoseConventionDevice = "device"
	// PoseConventionOpenCV poses already look down +Z with +Y down.
	PoseConventionOpenCV = "opencv"
)

// PreprocessConfig tunes the fusion of a scan into a colored point cloud.
type PreprocessConfig struct {
	NumPoints         int     `json:"num_points,omitempty"`
	PoissonRatio      float64 `json:"poisson_ratio,omitempty"`
	Seed              int64   `json:"seed,omitempty"`
	DepthScale        float64 `json:"depth_scale,omitempty"`
	VisibilityEpsilon float64 `json:"visibility_epsilon,omitempty"`
	OutlierNeighbors  int     `json:"outlier_neighbors,omitempty"`
	// OutlierThreshold is a pointer so an explicit zero is kept.
	OutlierThreshold  *float64 `json:"outlier_threshold,omitempty"`
	PoseConvention    string   `json:"pose_convention,omitempty"`
	SkipMissingFrames bool     `json:"skip_missing_frames,omitempty"`
}

// DefaultPreprocessConfig returns the settings used when a field is left unset.
func DefaultPreprocessConfig() PreprocessConfig {
	threshold := pointcloud.DefaultOutlierThreshold
	return PreprocessConfig{
		NumPoints:         pointcloud.DefaultSampleCount,
		PoissonRatio:      pointcloud.DefaultPoissonRatio,
		DepthScale:        transform.DefaultDepthScale,
		VisibilityEpsilon: transform.DefaultVisibilityEpsilon,
		OutlierNeighbors:  pointcloud.DefaultOutlierNeighbors,
		OutlierThreshold:  &threshold,
		PoseConvention:    PoseConventionDevice,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *PreprocessConfig) Validate(path string) error {
	if cfg.NumPoints < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("num_points must not be negative, got %d", cfg.NumPoints))
	}
	if cfg.PoissonRatio < 0 || cfg.PoissonRatio > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("poisson_ratio must be in [0, 1], got %v", cfg.PoissonRatio))
	}
	if cfg.DepthScale < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("depth_scale must not be negative, got %v", cfg.DepthScale))
	}
	if cfg.VisibilityEpsilon < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("visibility_epsilon must not be negative, got %v", cfg.VisibilityEpsilon))
	}
	if cfg.OutlierNeighbors < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("outlier_neighbors must not be negative, got %d", cfg.OutlierNeighbors))
	}
	if cfg.OutlierThreshold != nil && *cfg.OutlierThreshold < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("outlier_threshold must not be negative, got %v", *cfg.OutlierThreshold))
	}
	switch cfg.PoseConvention {
	case "", PoseConventionDevice, PoseConventionOpenCV:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown pose_convention %q", cfg.PoseConvention))
	}
	return nil
}

// withDefaults fills unset fields from DefaultPreprocessConfig.
func (cfg PreprocessConfig) withDefaults() PreprocessConfig {
	def := DefaultPreprocessConfig()
	if cfg.NumPoints == 0 {
		cfg.NumPoints = def.NumPoints
	}
	if cfg.PoissonRatio == 0 {
		cfg.PoissonRatio = def.PoissonRatio
	}
	if cfg.DepthScale == 0 {
		cfg.DepthScale = def.DepthScale
	}
	if cfg.VisibilityEpsilon == 0 {
		cfg.VisibilityEpsilon = def.VisibilityEpsilon
	}
	if cfg.OutlierNeighbors == 0 {
		cfg.OutlierNeighbors = def.OutlierNeighbors
	}
	if cfg.OutlierThreshold == nil {
		cfg.OutlierThreshold = def.OutlierThreshold
	}
	if cfg.PoseConvention == "" {
		cfg.PoseConvention = def.PoseConvention
	}
	return cfg
}

// PostprocessConfig tunes how instance masks are turned into triangle lists.
type PostprocessConfig struct {
	Neighbors      int    `json:"neighbors,omitempty"`
	StrictMajority bool   `json:"strict_majority,omitempty"`
	ImagesDir      string `json:"images_dir,omitempty"`
}

// DefaultPostprocessConfig returns the settings used when a field is left unset.
func DefaultPostprocessConfig() PostprocessConfig {
	return PostprocessConfig{
		Neighbors: segmentation.DefaultNeighbors,
		ImagesDir: ImagesDir,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *PostprocessConfig) Validate(path string) error {
	if cfg.Neighbors < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("neighbors must not be negative, got %d", cfg.Neighbors))
	}
	return nil
}

func (cfg PostprocessConfig) withDefaults() PostprocessConfig {
	def := DefaultPostprocessConfig()
	if cfg.Neighbors == 0 {
		cfg.Neighbors = def.Neighbors
	}
	if cfg.ImagesDir == "" {
		cfg.ImagesDir = def.ImagesDir
	}
	return cfg
}
