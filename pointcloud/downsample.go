package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultDownsampleTarget is the point budget for clients that display the whole scene.
const DefaultDownsampleTarget = 30000

// UniformDownsample keeps every step-th point, starting at the first, where step is
// int(Size()/target)+1. Colors travel with their points.
func UniformDownsample(cloud *PointCloud, target int) (*PointCloud, error) {
	step := 1
	if target > 0 {
		step = cloud.Size()/target + 1
	}
	points := make([]r3.Vector, 0, cloud.Size()/step+1)
	colors := make([]colorful.Color, 0, cloud.Size()/step+1)
	for i := 0; i < cloud.Size(); i += step {
		points = append(points, cloud.points[i])
		colors = append(colors, cloud.colors[i])
	}
	return New(points, colors)
}
