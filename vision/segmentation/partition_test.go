package segmentation

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
)

var black = colorful.Color{}

// gridMesh covers [0, n] x [0, n] in the z = 0 plane with two triangles per unit cell.
func gridMesh(t *testing.T, n int) *spatialmath.Mesh {
	t.Helper()
	var vertices []r3.Vector
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			vertices = append(vertices, r3.Vector{X: float64(x), Y: float64(y)})
		}
	}
	var faces [][3]int
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := y*(n+1) + x
			faces = append(faces, [3]int{i, i + 1, i + n + 2}, [3]int{i, i + n + 2, i + n + 1})
		}
	}
	mesh, err := spatialmath.NewMesh(vertices, faces)
	test.That(t, err, test.ShouldBeNil)
	return mesh
}

func TestTriangleIDsTwoTriangleScenario(t *testing.T) {
	mesh, err := spatialmath.NewMesh(
		[]r3.Vector{{}, {X: 1}, {Y: 1}, {X: 50}, {X: 51}, {X: 50, Y: 1}},
		[][3]int{{0, 1, 2}, {3, 4, 5}},
	)
	test.That(t, err, test.ShouldBeNil)

	var points []r3.Vector
	for i := 0; i < 10; i++ {
		points = append(points, r3.Vector{X: 0.3 + 0.01*float64(i), Y: 0.3})
	}
	cloud, err := pointcloud.New(points, nil)
	test.That(t, err, test.ShouldBeNil)

	mask := NewInstanceMask(10, 2)
	for p := 0; p < 10; p++ {
		mask.Set(p, 0, true)
	}

	part, err := NewPartitioner(mesh, cloud, mask, PartitionOptions{Neighbors: 10})
	test.That(t, err, test.ShouldBeNil)

	assigned := NewAssignedSet()
	ids0, err := part.TriangleIDs(0, assigned)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids0, test.ShouldContain, 0)
	test.That(t, len(assigned), test.ShouldEqual, 0)

	assigned.Add(ids0...)
	ids1, err := part.TriangleIDs(1, assigned)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids1, test.ShouldBeEmpty)
}

func TestPartitionAllHasNoDuplicates(t *testing.T) {
	mesh := gridMesh(t, 6)
	cloud := pointcloud.MakeTestPointCloud(13, 0.5, black)

	// overlapping instances: left part, right part, and everything
	mask := NewInstanceMask(cloud.Size(), 3)
	for p := 0; p < cloud.Size(); p++ {
		x := cloud.Point(p).X
		mask.Set(p, 0, x < 4)
		mask.Set(p, 1, x > 2)
		mask.Set(p, 2, true)
	}

	part, err := NewPartitioner(mesh, cloud, mask, PartitionOptions{})
	test.That(t, err, test.ShouldBeNil)
	assignment, err := part.PartitionAll(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, assignment.Instances(), test.ShouldResemble, []int{0, 1, 2})

	seen := map[int]bool{}
	total := 0
	for _, k := range assignment.Instances() {
		ids := assignment[k]
		for j := 1; j < len(ids); j++ {
			test.That(t, ids[j], test.ShouldBeGreaterThan, ids[j-1])
		}
		for _, id := range ids {
			seen[id] = true
		}
		total += len(ids)
	}
	test.That(t, len(seen), test.ShouldEqual, total)
	// instance 2 covers every point, so nothing is left over
	test.That(t, total, test.ShouldEqual, mesh.NumTriangles())
	test.That(t, len(assignment[0]), test.ShouldBeGreaterThan, 0)
	test.That(t, len(assignment[1]), test.ShouldBeGreaterThan, 0)
}

func TestPartitionUnmaskedTrianglesStayUnassigned(t *testing.T) {
	mesh := gridMesh(t, 6)
	cloud := pointcloud.MakeTestPointCloud(13, 0.5, black)

	mask := NewInstanceMask(cloud.Size(), 2)
	for p := 0; p < cloud.Size(); p++ {
		pt := cloud.Point(p)
		mask.Set(p, 0, pt.X <= 1.5 && pt.Y <= 1.5)
		mask.Set(p, 1, pt.X >= 4.5 && pt.Y >= 4.5)
	}

	part, err := NewPartitioner(mesh, cloud, mask, PartitionOptions{})
	test.That(t, err, test.ShouldBeNil)
	assignment, err := part.PartitionAll(NewAssignedSet())
	test.That(t, err, test.ShouldBeNil)

	claimed := NewAssignedSet()
	for _, ids := range assignment {
		claimed.Add(ids...)
	}
	// cells around (3, 3) are far from both corners
	for i := 0; i < mesh.NumTriangles(); i++ {
		c := mesh.Triangle(i).Centroid()
		if c.X > 2.5 && c.X < 3.5 && c.Y > 2.5 && c.Y < 3.5 {
			test.That(t, claimed.Contains(i), test.ShouldBeFalse)
		}
		if c.X < 1 && c.Y < 1 {
			test.That(t, assignment[0], test.ShouldContain, i)
		}
	}
}

func TestPartitionMajorityThreshold(t *testing.T) {
	mesh, err := spatialmath.NewMesh([]r3.Vector{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	test.That(t, err, test.ShouldBeNil)
	cloud := pointcloud.MakeTestPointCloud(2, 0.1, black)
	// two of the four neighbors vote for instance 0
	mask, err := NewInstanceMaskFromRows([][]bool{{true}, {false}, {true}, {false}})
	test.That(t, err, test.ShouldBeNil)

	part, err := NewPartitioner(mesh, cloud, mask, PartitionOptions{Neighbors: 4})
	test.That(t, err, test.ShouldBeNil)
	ids, err := part.TriangleIDs(0, NewAssignedSet())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldResemble, []int{0})

	strict, err := NewPartitioner(mesh, cloud, mask, PartitionOptions{Neighbors: 4, StrictMajority: true})
	test.That(t, err, test.ShouldBeNil)
	ids, err = strict.TriangleIDs(0, NewAssignedSet())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ids, test.ShouldBeEmpty)
}

func TestPartitionerErrors(t *testing.T) {
	mesh := gridMesh(t, 1)
	cloud := pointcloud.MakeTestPointCloud(2, 1, black)

	_, err := NewPartitioner(mesh, cloud, NewInstanceMask(3, 1), PartitionOptions{})
	test.That(t, errors.Is(err, ErrMaskSizeMismatch), test.ShouldBeTrue)

	_, err = NewPartitioner(nil, cloud, NewInstanceMask(4, 1), PartitionOptions{})
	test.That(t, err, test.ShouldNotBeNil)

	part, err := NewPartitioner(mesh, cloud, NewInstanceMask(4, 2), PartitionOptions{})
	test.That(t, err, test.ShouldBeNil)
	_, err = part.TriangleIDs(2, NewAssignedSet())
	test.That(t, errors.Is(err, ErrInstanceOutOfRange), test.ShouldBeTrue)
	_, err = part.TriangleIDs(-1, NewAssignedSet())
	test.That(t, errors.Is(err, ErrInstanceOutOfRange), test.ShouldBeTrue)
}
