package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// floatEpsilon bounds the determinant below which a ray is treated as parallel to a triangle.
const floatEpsilon = 1e-12

// Triangle is three points in a single coordinate frame. Its normal follows the right hand rule
// over p0, p1, p2.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle creates a triangle from its three corners.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// Points returns the corners in construction order.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal, or the zero vector for a degenerate triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the surface area.
func (t *Triangle) Area() float64 {
	return 0.5 * t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm()
}

// Centroid returns the mean of the three corners.
func (t *Triangle) Centroid() r3.Vector {
	sum := t.p0.Add(t.p1).Add(t.p2)
	return r3.Vector{X: sum.X / 3, Y: sum.Y / 3, Z: sum.Z / 3}
}

// PointAt returns p0 + u*(p1-p0) + v*(p2-p0).
func (t *Triangle) PointAt(u, v float64) r3.Vector {
	return t.p0.Add(t.p1.Sub(t.p0).Mul(u)).Add(t.p2.Sub(t.p0).Mul(v))
}

// IntersectRay returns the ray parameter of the hit between the ray origin + s*dir and the
// triangle, for s > 0. Both faces are hit. The parameter is in units of dir, which need not be
// normalized.
func (t *Triangle) IntersectRay(origin, dir r3.Vector) (float64, bool) {
	e1 := t.p1.Sub(t.p0)
	e2 := t.p2.Sub(t.p0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < floatEpsilon {
		return 0, false
	}
	invDet := 1 / det

	s := origin.Sub(t.p0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	hit := e2.Dot(q) * invDet
	if hit <= floatEpsilon {
		return 0, false
	}
	return hit, true
}

// PlaneNormal returns the normal of the plane through the three points, or the zero vector when
// they are collinear.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	if n.Norm2() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}
