package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// WriteToPLYFile writes the cloud as an ascii PLY file with double precision positions and 8 bit
// colors.
func WriteToPLYFile(cloud *PointCloud, fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ToPLY(cloud, f)
}

// ToPLY writes the cloud as an ascii PLY stream.
func ToPLY(cloud *PointCloud, out io.Writer) error {
	w := bufio.NewWriter(out)
	header := "ply\n" +
		"format ascii 1.0\n" +
		"element vertex %d\n" +
		"property double x\n" +
		"property double y\n" +
		"property double z\n" +
		"property uchar red\n" +
		"property uchar green\n" +
		"property uchar blue\n" +
		"end_header\n"
	if _, err := fmt.Fprintf(w, header, cloud.Size()); err != nil {
		return err
	}
	for i, p := range cloud.points {
		r, g, b := cloud.colors[i].Clamped().RGB255()
		if _, err := fmt.Fprintf(w, "%g %g %g %d %d %d\n", p.X, p.Y, p.Z, r, g, b); err != nil {
			return err
		}
	}
	return w.Flush()
}

// NewFromPLYFile reads an ascii PLY point cloud. Points without color properties are black.
func NewFromPLYFile(fn string) (*PointCloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	cloud, err := ReadPLY(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading point cloud %q", fn)
	}
	return cloud, nil
}

// ReadPLY parses an ascii PLY stream holding a vertex element.
func ReadPLY(in io.Reader) (cloud *PointCloud, err error) {
	var ply *goply.Ply
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("malformed ply: %v", r)
			}
		}()
		ply = goply.New(in)
	}()
	if err != nil {
		return nil, err
	}

	vertices := ply.Elements("vertex")
	points := make([]r3.Vector, len(vertices))
	colors := make([]colorful.Color, len(vertices))
	for i, v := range vertices {
		var xyz [3]float64
		for j, name := range []string{"x", "y", "z"} {
			value, ok := plyNumber(v[name])
			if !ok {
				return nil, errors.Errorf("vertex %d has no numeric %q property", i, name)
			}
			xyz[j] = value
		}
		points[i] = r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}

		r, okR := plyNumber(v["red"])
		g, okG := plyNumber(v["green"])
		b, okB := plyNumber(v["blue"])
		if okR && okG && okB {
			colors[i] = colorful.Color{R: r / 255, G: g / 255, B: b / 255}
		}
	}
	return New(points, colors)
}

func plyNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}
