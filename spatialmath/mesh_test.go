package spatialmath

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

const quadOBJ = `# unit quad split into two triangles
mtllib scene.mtl
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0 0.5 0.5 0.5
vt 0 0
vn 0 0 1
vn 0 0 1
vn 0 0 1
vn 0 0 1
usemtl default
f 1/1/1 2/1/2 3/1/3
f 1//1 3//3 -1//4
`

func TestReadOBJ(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader(quadOBJ))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(m.Vertices()), test.ShouldEqual, 4)
	test.That(t, len(m.Normals()), test.ShouldEqual, 4)
	test.That(t, m.Faces(), test.ShouldResemble, [][3]int{{0, 1, 2}, {0, 2, 3}})
	test.That(t, m.SurfaceArea(), test.ShouldAlmostEqual, 1.0)

	minPt, maxPt := m.Bounds()
	test.That(t, minPt, test.ShouldResemble, r3.Vector{})
	test.That(t, maxPt, test.ShouldResemble, r3.Vector{X: 1, Y: 1})
}

func TestReadOBJPolygonFan(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv -1 0.5 0\nf 1 2 3 4 5\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Faces(), test.ShouldResemble, [][3]int{{0, 1, 2}, {0, 2, 3}, {0, 3, 4}})
}

func TestReadOBJErrors(t *testing.T) {
	for name, src := range map[string]string{
		"index past end":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n",
		"zero index":       "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"short face":       "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"short vertex":     "v 0 0\n",
		"unparsable value": "v 0 zero 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadOBJ(strings.NewReader(src))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestNewMeshRejectsBadIndex(t *testing.T) {
	_, err := NewMesh([]r3.Vector{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 3}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "triangle 0")
}

func TestOBJFileRoundTrip(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader(quadOBJ))
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, WriteOBJ(&buf, m), test.ShouldBeNil)
	path := filepath.Join(t.TempDir(), "mesh.obj")
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o600), test.ShouldBeNil)

	back, err := NewMeshFromOBJFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Vertices(), test.ShouldResemble, m.Vertices())
	test.That(t, back.Faces(), test.ShouldResemble, m.Faces())
	test.That(t, back.NumTriangles(), test.ShouldEqual, 2)
	test.That(t, back.Triangle(1).Points(), test.ShouldResemble, []r3.Vector{{}, {X: 1, Y: 1}, {Y: 1}})

	_, err = NewMeshFromOBJFile(filepath.Join(t.TempDir(), "missing.obj"))
	test.That(t, err, test.ShouldNotBeNil)
}
