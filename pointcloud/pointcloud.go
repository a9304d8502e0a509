// Package pointcloud defines an ordered, colored point cloud along with the sampling, spatial
// indexing and color repair operations run on it.
//
// Point order is significant: indices are shared with per point data produced elsewhere, such as
// instance masks, so no operation in this package reorders points.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData with bounds ready to be merged into.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// PointCloud is an ordered list of points with one color per point. The number of points never
// changes after construction; colors may be overwritten in place.
type PointCloud struct {
	points []r3.Vector
	colors []colorful.Color
	meta   MetaData
}

// New creates a cloud from index aligned points and colors. A nil colors slice makes every point
// black.
func New(points []r3.Vector, colors []colorful.Color) (*PointCloud, error) {
	if colors == nil {
		colors = make([]colorful.Color, len(points))
	}
	if len(points) != len(colors) {
		return nil, errors.Errorf("point cloud has %d points but %d colors", len(points), len(colors))
	}
	meta := NewMetaData()
	for _, p := range points {
		meta.Merge(p)
	}
	return &PointCloud{points: points, colors: colors, meta: meta}, nil
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the cloud bounds.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Point returns point i.
func (cloud *PointCloud) Point(i int) r3.Vector {
	return cloud.points[i]
}

// Points returns every point in order. The returned slice must not be modified.
func (cloud *PointCloud) Points() []r3.Vector {
	return cloud.points
}

// Color returns the color of point i.
func (cloud *PointCloud) Color(i int) colorful.Color {
	return cloud.colors[i]
}

// SetColor overwrites the color of point i.
func (cloud *PointCloud) SetColor(i int, c colorful.Color) error {
	if i < 0 || i >= len(cloud.colors) {
		return errors.Errorf("point index %d out of range [0, %d)", i, len(cloud.colors))
	}
	cloud.colors[i] = c
	return nil
}

// Colors returns a copy of the current colors.
func (cloud *PointCloud) Colors() []colorful.Color {
	out := make([]colorful.Color, len(cloud.colors))
	copy(out, cloud.colors)
	return out
}

// Iterate calls fn for every point in order until fn returns false.
func (cloud *PointCloud) Iterate(fn func(i int, p r3.Vector, c colorful.Color) bool) {
	for i, p := range cloud.points {
		if !fn(i, p, cloud.colors[i]) {
			return
		}
	}
}
