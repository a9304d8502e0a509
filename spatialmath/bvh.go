package spatialmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// maxTrianglesPerLeaf is the most triangles a BVH leaf holds before it is split.
const maxTrianglesPerLeaf = 4

// bvhNode is a node of a bounding volume hierarchy over triangles. Leaves carry triangles,
// internal nodes carry two children.
type bvhNode struct {
	min, max  r3.Vector
	left      *bvhNode
	right     *bvhNode
	triangles []*Triangle
}

// buildBVH builds a hierarchy by splitting on the median centroid of the widest axis.
func buildBVH(triangles []*Triangle) *bvhNode {
	if len(triangles) == 0 {
		return nil
	}
	minPt, maxPt := computeTrianglesAABB(triangles)
	node := &bvhNode{min: minPt, max: maxPt}
	if len(triangles) <= maxTrianglesPerLeaf {
		node.triangles = triangles
		return node
	}

	centroids := make([]r3.Vector, len(triangles))
	for i, tri := range triangles {
		centroids[i] = tri.Centroid()
	}
	axis := widestAxis(centroids)
	sorted := make([]*Triangle, len(triangles))
	copy(sorted, triangles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return axisValue(sorted[i].Centroid(), axis) < axisValue(sorted[j].Centroid(), axis)
	})

	mid := len(sorted) / 2
	node.left = buildBVH(sorted[:mid])
	node.right = buildBVH(sorted[mid:])
	return node
}

// computeTrianglesAABB returns the corners of the axis aligned box around all triangles.
func computeTrianglesAABB(triangles []*Triangle) (r3.Vector, r3.Vector) {
	minPt := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	maxPt := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, tri := range triangles {
		for _, pt := range tri.Points() {
			minPt = r3.Vector{X: math.Min(minPt.X, pt.X), Y: math.Min(minPt.Y, pt.Y), Z: math.Min(minPt.Z, pt.Z)}
			maxPt = r3.Vector{X: math.Max(maxPt.X, pt.X), Y: math.Max(maxPt.Y, pt.Y), Z: math.Max(maxPt.Z, pt.Z)}
		}
	}
	return minPt, maxPt
}

func widestAxis(pts []r3.Vector) int {
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	extent := hi.Sub(lo)
	switch {
	case extent.X >= extent.Y && extent.X >= extent.Z:
		return 0
	case extent.Y >= extent.Z:
		return 1
	default:
		return 2
	}
}

func axisValue(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// rayHitsAABB reports whether origin + s*dir enters the box for some s in (0, maxS).
func rayHitsAABB(origin, dir, minPt, maxPt r3.Vector, maxS float64) bool {
	lo, hi := 0., maxS
	for axis := 0; axis < 3; axis++ {
		o, d := axisValue(origin, axis), axisValue(dir, axis)
		bMin, bMax := axisValue(minPt, axis), axisValue(maxPt, axis)
		if d == 0 {
			if o < bMin || o > bMax {
				return false
			}
			continue
		}
		s0, s1 := (bMin-o)/d, (bMax-o)/d
		if s0 > s1 {
			s0, s1 = s1, s0
		}
		lo = math.Max(lo, s0)
		hi = math.Min(hi, s1)
		if lo > hi {
			return false
		}
	}
	return true
}

// closestHit returns the smallest ray parameter of any triangle under n that is below best.
func (n *bvhNode) closestHit(origin, dir r3.Vector, best float64) (float64, bool) {
	if n == nil || !rayHitsAABB(origin, dir, n.min, n.max, best) {
		return best, false
	}
	found := false
	if n.triangles != nil {
		for _, tri := range n.triangles {
			if s, ok := tri.IntersectRay(origin, dir); ok && s < best {
				best, found = s, true
			}
		}
		return best, found
	}
	if s, ok := n.left.closestHit(origin, dir, best); ok {
		best, found = s, true
	}
	if s, ok := n.right.closestHit(origin, dir, best); ok {
		best, found = s, true
	}
	return best, found
}

// RayCaster finds the first intersection of rays with a mesh. It is built once and is safe for
// concurrent queries.
type RayCaster struct {
	root *bvhNode
}

// NewRayCaster indexes the triangles of m.
func NewRayCaster(m *Mesh) *RayCaster {
	return &RayCaster{root: buildBVH(m.Triangles())}
}

// CastRay returns the parameter s of the nearest hit origin + s*dir with s > 0. dir is not
// normalized, so s is measured in multiples of dir.
func (rc *RayCaster) CastRay(origin, dir r3.Vector) (float64, bool) {
	return rc.root.closestHit(origin, dir, math.Inf(1))
}
