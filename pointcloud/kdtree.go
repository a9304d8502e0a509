package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint is a kd-tree entry that remembers its position in the source slice.
type indexedPoint struct {
	r3.Vector
	index int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		return p.Z - q.Z
	}
}

func (p indexedPoint) Dims() int { return 3 }

// Distance is the squared euclidean distance.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return p.Sub(c.(indexedPoint).Vector).Norm2()
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfRandoms(pl, pivotSamples))
}

// pivotSamples is the number of points sampled to estimate a splitting median.
const pivotSamples = 100

// plane sorts points along one dimension for pivot selection.
type plane struct {
	points indexedPoints
	dim    kdtree.Dim
}

func (p plane) Len() int { return len(p.points) }
func (p plane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.dim) < 0
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], dim: p.dim}
}

// Neighbor is a search result: the index of a point in the indexed slice and its euclidean
// distance to the query.
type Neighbor struct {
	Index    int
	Point    r3.Vector
	Distance float64
}

// KDTree answers nearest neighbor queries over a fixed set of points. It is read only after
// construction and safe for concurrent queries.
type KDTree struct {
	tree *kdtree.Tree
	size int
}

// NewKDTree indexes points. The slice is copied, so later changes to it are not seen.
func NewKDTree(points []r3.Vector) *KDTree {
	entries := make(indexedPoints, len(points))
	for i, p := range points {
		entries[i] = indexedPoint{Vector: p, index: i}
	}
	return &KDTree{tree: kdtree.New(entries, false), size: len(points)}
}

// NewKDTreeFromCloud indexes the points of a cloud.
func NewKDTreeFromCloud(cloud *PointCloud) *KDTree {
	return NewKDTree(cloud.Points())
}

// Size returns the number of indexed points.
func (t *KDTree) Size() int {
	return t.size
}

// KNearest returns the k points closest to q, nearest first. Ties are ordered by index. Fewer
// than k results are returned when the tree holds fewer points.
func (t *KDTree) KNearest(q r3.Vector, k int) []Neighbor {
	if k <= 0 || t.size == 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	t.tree.NearestSet(keeper, indexedPoint{Vector: q, index: -1})
	return toNeighbors(keeper.Heap)
}

// WithinRadius returns every point whose distance to q is at most radius, nearest first.
func (t *KDTree) WithinRadius(q r3.Vector, radius float64) []Neighbor {
	if radius < 0 || t.size == 0 {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keeper, indexedPoint{Vector: q, index: -1})
	return toNeighbors(keeper.Heap)
}

func toNeighbors(heap kdtree.Heap) []Neighbor {
	out := make([]Neighbor, 0, len(heap))
	for _, cd := range heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(indexedPoint)
		out = append(out, Neighbor{Index: p.index, Point: p.Vector, Distance: math.Sqrt(cd.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}
