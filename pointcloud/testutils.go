package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
)

// MakeTestPointCloud creates an n x n grid of points in the z=0 plane with the given spacing, all
// of one color. Points are ordered row by row.
func MakeTestPointCloud(n int, spacing float64, c colorful.Color) *PointCloud {
	points := make([]r3.Vector, 0, n*n)
	colors := make([]colorful.Color, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			points = append(points, r3.Vector{X: float64(x) * spacing, Y: float64(y) * spacing})
			colors = append(colors, c)
		}
	}
	cloud, err := New(points, colors)
	if err != nil {
		return nil
	}
	return cloud
}
