// Package segmentation turns point level instance masks into a partition of mesh triangles and
// loads the per-instance arrays the segmentation model produces.
package segmentation

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInstanceOutOfRange is returned when an instance index is not a column of the mask.
var ErrInstanceOutOfRange = errors.New("instance index out of range")

// ErrMaskSizeMismatch is returned when the mask rows do not line up with the reference cloud.
var ErrMaskSizeMismatch = errors.New("instance mask does not match point cloud size")

// InstanceMask is a binary table with one row per point and one column per instance. A point may
// belong to any number of instances.
type InstanceMask struct {
	points    int
	instances int
	data      []bool
}

// NewInstanceMask returns an all false mask.
func NewInstanceMask(points, instances int) *InstanceMask {
	return &InstanceMask{
		points:    points,
		instances: instances,
		data:      make([]bool, points*instances),
	}
}

// NewInstanceMaskFromRows builds a mask from per-point rows of equal length.
func NewInstanceMaskFromRows(rows [][]bool) (*InstanceMask, error) {
	if len(rows) == 0 {
		return NewInstanceMask(0, 0), nil
	}
	mask := NewInstanceMask(len(rows), len(rows[0]))
	for p, row := range rows {
		if len(row) != mask.instances {
			return nil, errors.Errorf("mask row %d has %d instances, expected %d", p, len(row), mask.instances)
		}
		for k, v := range row {
			mask.Set(p, k, v)
		}
	}
	return mask, nil
}

// Points is the number of rows.
func (m *InstanceMask) Points() int {
	return m.points
}

// Instances is the number of columns.
func (m *InstanceMask) Instances() int {
	return m.instances
}

// At reports whether point p belongs to instance k.
func (m *InstanceMask) At(p, k int) bool {
	return m.data[p*m.instances+k]
}

// Set marks whether point p belongs to instance k.
func (m *InstanceMask) Set(p, k int, v bool) {
	m.data[p*m.instances+k] = v
}

// InstanceSize counts the points of instance k.
func (m *InstanceMask) InstanceSize(k int) int {
	n := 0
	for p := 0; p < m.points; p++ {
		if m.At(p, k) {
			n++
		}
	}
	return n
}

// LoadInstanceMask reads a points x instances .npy array. Any nonzero element marks membership.
func LoadInstanceMask(path string) (*InstanceMask, error) {
	arr, err := readNpyFile(path)
	if err != nil {
		return nil, err
	}
	rows, cols, err := arr.dims()
	if err != nil {
		return nil, errors.Wrapf(err, "instance mask %q", path)
	}
	vals, err := arr.float64s()
	if err != nil {
		return nil, errors.Wrapf(err, "instance mask %q", path)
	}
	mask := NewInstanceMask(rows, cols)
	for i, v := range vals {
		mask.data[i] = v != 0
	}
	return mask, nil
}

// LoadFeatures reads an instances x dimensions .npy array of embeddings. float32 arrays are
// widened, so float64 values keep their full precision.
func LoadFeatures(path string) ([][]float64, error) {
	arr, err := readNpyFile(path)
	if err != nil {
		return nil, err
	}
	rows, cols, err := arr.dims()
	if err != nil {
		return nil, errors.Wrapf(err, "features %q", path)
	}
	vals, err := arr.float64s()
	if err != nil {
		return nil, errors.Wrapf(err, "features %q", path)
	}
	features := make([][]float64, rows)
	for k := range features {
		features[k] = vals[k*cols : (k+1)*cols : (k+1)*cols]
	}
	return features, nil
}

// LoadTopK reads an instances x k .npy array of frame indices.
func LoadTopK(path string) ([][]int, error) {
	arr, err := readNpyFile(path)
	if err != nil {
		return nil, err
	}
	rows, cols, err := arr.dims()
	if err != nil {
		return nil, errors.Wrapf(err, "top-k indices %q", path)
	}
	vals, err := arr.float64s()
	if err != nil {
		return nil, errors.Wrapf(err, "top-k indices %q", path)
	}
	topK := make([][]int, rows)
	for k := range topK {
		row := make([]int, cols)
		for j := range row {
			v := vals[k*cols+j]
			if v != math.Trunc(v) || v < 0 {
				return nil, errors.Errorf("top-k indices %q: entry (%d, %d) = %v is not a frame index", path, k, j, v)
			}
			row[j] = int(v)
		}
		topK[k] = row
	}
	return topK, nil
}
