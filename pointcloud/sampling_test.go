package pointcloud

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/AlexLike/OpenMaskXR/spatialmath"
)

func unitSquareMesh(t *testing.T) *spatialmath.Mesh {
	t.Helper()
	m, err := spatialmath.NewMesh(
		[]r3.Vector{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		[][3]int{{0, 1, 2}, {0, 2, 3}},
	)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func meanNearestDistance(pts []r3.Vector) float64 {
	tree := NewKDTree(pts)
	sum := 0.
	for _, p := range pts {
		sum += tree.KNearest(p, 2)[1].Distance
	}
	return sum / float64(len(pts))
}

func TestNewFromMesh(t *testing.T) {
	m := unitSquareMesh(t)
	cloud, err := NewFromMesh(m, SampleOptions{NumPoints: 2000, Ratio: 0.5, Seed: 7})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 1000)

	cloud.Iterate(func(i int, p r3.Vector, c colorful.Color) bool {
		test.That(t, p.X, test.ShouldBeBetweenOrEqual, 0., 1.)
		test.That(t, p.Y, test.ShouldBeBetweenOrEqual, 0., 1.)
		test.That(t, p.Z, test.ShouldEqual, 0.)
		test.That(t, c, test.ShouldResemble, colorful.Color{})
		return true
	})

	again, err := NewFromMesh(m, SampleOptions{NumPoints: 2000, Ratio: 0.5, Seed: 7})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Points(), test.ShouldResemble, cloud.Points())
}

func TestPoissonEliminationSpreadsPoints(t *testing.T) {
	m := unitSquareMesh(t)
	//nolint:gosec
	candidates, area, err := SampleUniform(m, 3000, rand.New(rand.NewSource(3)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, area, test.ShouldAlmostEqual, 1.0)

	kept := eliminateSamples(candidates, 1500, area)
	test.That(t, len(kept), test.ShouldEqual, 1500)
	test.That(t, meanNearestDistance(kept), test.ShouldBeGreaterThan, meanNearestDistance(candidates))

	// survivors keep their relative order
	next := 0
	for _, p := range kept {
		for candidates[next] != p {
			next++
		}
		next++
	}
	test.That(t, next, test.ShouldBeLessThanOrEqualTo, len(candidates))

	test.That(t, len(eliminateSamples(candidates, 5000, area)), test.ShouldEqual, 3000)
	test.That(t, len(eliminateSamples(candidates, 0, area)), test.ShouldEqual, 0)
}

func TestNewFromMeshDegenerate(t *testing.T) {
	empty, err := spatialmath.NewMesh([]r3.Vector{{}, {X: 1}}, nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewFromMesh(empty, SampleOptions{NumPoints: 10})
	test.That(t, errors.Is(err, ErrDegenerateMesh), test.ShouldBeTrue)

	flat, err := spatialmath.NewMesh([]r3.Vector{{}, {X: 1}, {X: 2}}, [][3]int{{0, 1, 2}})
	test.That(t, err, test.ShouldBeNil)
	_, err = NewFromMesh(flat, SampleOptions{NumPoints: 10})
	test.That(t, errors.Is(err, ErrDegenerateMesh), test.ShouldBeTrue)
}

func TestNewFromMeshBadOptions(t *testing.T) {
	m := unitSquareMesh(t)
	_, err := NewFromMesh(m, SampleOptions{NumPoints: 10, Ratio: 1.5})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewFromMesh(m, SampleOptions{NumPoints: -1})
	test.That(t, err, test.ShouldNotBeNil)

	// round(1 * 0.4) keeps nothing
	cloud, err := NewFromMesh(m, SampleOptions{NumPoints: 1, Ratio: 0.4})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, cloud, test.ShouldBeNil)

	cloud, err = NewFromMesh(m, SampleOptions{NumPoints: 2, Ratio: 0.5, Seed: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Size(), test.ShouldEqual, 1)
}
