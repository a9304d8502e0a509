package spatialmath

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NewMeshFromOBJFile reads a Wavefront OBJ mesh from disk.
func NewMeshFromOBJFile(path string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	m, err := ReadOBJ(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mesh %q", path)
	}
	return m, nil
}

// ReadOBJ parses the geometry of a Wavefront OBJ stream. Vertex positions and faces are read,
// polygons are fan triangulated, and vertex normals are kept when there is one per vertex.
// Texture coordinates, groups and materials are ignored.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	var vertices, normals []r3.Vector
	var triangles [][3]int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v", "vn":
			if len(fields) < 4 {
				return nil, errors.Errorf("line %d: %q needs three coordinates", line, fields[0])
			}
			var xyz [3]float64
			for i := range xyz {
				value, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				xyz[i] = value
			}
			vec := r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}
			if fields[0] == "v" {
				vertices = append(vertices, vec)
			} else {
				normals = append(normals, vec)
			}
		case "f":
			if len(fields) < 4 {
				return nil, errors.Errorf("line %d: face needs at least three vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, token := range fields[1:] {
				i, err := parseFaceIndex(token, len(vertices))
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				idx = append(idx, i)
			}
			for i := 1; i+1 < len(idx); i++ {
				triangles = append(triangles, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	m, err := NewMesh(vertices, triangles)
	if err != nil {
		return nil, err
	}
	if len(normals) == len(vertices) {
		m.normals = normals
	}
	return m, nil
}

// parseFaceIndex converts the position part of a face token ("7", "7/1", "7//3", "-1") into a
// zero based vertex index.
func parseFaceIndex(token string, numVertices int) (int, error) {
	if slash := strings.IndexByte(token, '/'); slash >= 0 {
		token = token[:slash]
	}
	i, err := strconv.Atoi(token)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += numVertices
	default:
		return 0, errors.New("face index 0 is invalid")
	}
	if i < 0 || i >= numVertices {
		return 0, errors.Errorf("face index %s out of range for %d vertices", token, numVertices)
	}
	return i, nil
}

// WriteOBJ writes the vertices, normals and triangles of m as Wavefront OBJ.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for _, n := range m.normals {
		if _, err := fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z); err != nil {
			return err
		}
	}
	for _, f := range m.triangles {
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1); err != nil {
			return err
		}
	}
	return bw.Flush()
}
