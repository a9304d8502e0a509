package transform

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/rimage"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
)

// DefaultVisibilityEpsilon is the largest difference, in meters, between a point's camera depth
// and the rendered depth for the point to count as visible.
const DefaultVisibilityEpsilon = 0.01

// ColorizeOptions tune ColorizeFromFrame. Zero values select the defaults.
type ColorizeOptions struct {
	DepthScale float64
	Epsilon    float64
}

func (opts ColorizeOptions) withDefaults() ColorizeOptions {
	if opts.DepthScale <= 0 {
		opts.DepthScale = DefaultDepthScale
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultVisibilityEpsilon
	}
	return opts
}

// ColorizeStats counts what happened to the points of a cloud for one frame.
type ColorizeStats struct {
	// Projected points were in front of the camera and landed inside the image.
	Projected int
	// Visible points passed the depth test and were recolored.
	Visible int
}

// VisibleFraction is the share of the cloud recolored by the frame.
func (s ColorizeStats) VisibleFraction(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(s.Visible) / float64(total)
}

// ColorizeFromFrame overwrites the color of every cloud point that the frame sees. A point is seen
// when it lies in front of the camera, projects inside the image, and its camera space depth agrees
// with the depth map within the epsilon. Points the frame does not see keep their color, so calling
// this for a sequence of frames leaves each point with the color of the last frame that saw it.
func ColorizeFromFrame(
	cloud *pointcloud.PointCloud,
	img image.Image,
	depth *rimage.DepthMap,
	pose *spatialmath.Pose,
	params *PinholeCameraIntrinsics,
	opts ColorizeOptions,
) (ColorizeStats, error) {
	var stats ColorizeStats
	if img == nil || depth == nil {
		return stats, errors.New("colorizing needs both a color image and a depth map")
	}
	if params == nil {
		return stats, NewNoIntrinsicsError("Intrinsics do not exist")
	}
	extrinsic, err := pose.Inverse()
	if err != nil {
		return stats, err
	}
	opts = opts.withDefaults()

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	for i := 0; i < cloud.Size(); i++ {
		p := extrinsic.Transform(cloud.Point(i))
		if p.Z <= 0 {
			continue
		}
		fu, fv := params.PointToPixel(p.X, p.Y, p.Z)
		// truncation toward zero
		u, v := int(fu), int(fv)
		if u < 0 || v < 0 || u >= width || v >= height {
			continue
		}
		stats.Projected++
		if !depth.Contains(u, v) {
			continue
		}
		measured := float64(depth.GetDepth(u, v)) / opts.DepthScale
		if math.Abs(measured-p.Z) >= opts.Epsilon {
			continue
		}
		c, ok := colorful.MakeColor(img.At(bounds.Min.X+u, bounds.Min.Y+v))
		if !ok {
			continue
		}
		if err := cloud.SetColor(i, c); err != nil {
			return stats, err
		}
		stats.Visible++
	}
	return stats, nil
}
