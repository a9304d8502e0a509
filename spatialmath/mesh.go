package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Mesh is an indexed triangle mesh. Vertex and triangle order are preserved from the source, so
// triangle indices are stable identifiers.
type Mesh struct {
	vertices  []r3.Vector
	triangles [][3]int
	normals   []r3.Vector
}

// NewMesh creates a mesh after checking that every triangle references an existing vertex.
func NewMesh(vertices []r3.Vector, triangles [][3]int) (*Mesh, error) {
	for i, tri := range triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Errorf("triangle %d references vertex %d, mesh has %d vertices", i, idx, len(vertices))
			}
		}
	}
	return &Mesh{vertices: vertices, triangles: triangles}, nil
}

// Vertices returns the mesh vertices. The returned slice must not be modified.
func (m *Mesh) Vertices() []r3.Vector {
	return m.vertices
}

// Normals returns per vertex normals when the source provided them.
func (m *Mesh) Normals() []r3.Vector {
	return m.normals
}

// Faces returns the vertex indices of every triangle.
func (m *Mesh) Faces() [][3]int {
	return m.triangles
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int {
	return len(m.triangles)
}

// Triangle materializes triangle i.
func (m *Mesh) Triangle(i int) *Triangle {
	f := m.triangles[i]
	return NewTriangle(m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]])
}

// Triangles materializes every triangle in mesh order.
func (m *Mesh) Triangles() []*Triangle {
	tris := make([]*Triangle, len(m.triangles))
	for i := range m.triangles {
		tris[i] = m.Triangle(i)
	}
	return tris
}

// SurfaceArea returns the summed area of all triangles.
func (m *Mesh) SurfaceArea() float64 {
	area := 0.
	for i := range m.triangles {
		area += m.Triangle(i).Area()
	}
	return area
}

// Bounds returns the axis aligned bounding box of the vertices.
func (m *Mesh) Bounds() (r3.Vector, r3.Vector) {
	return computeTrianglesAABB(m.Triangles())
}
