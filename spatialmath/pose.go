package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/AlexLike/OpenMaskXR/utils/matrix"
)

// ErrSingularPose is returned when a pose matrix cannot be inverted.
var ErrSingularPose = errors.New("pose matrix is singular")

// Pose is a 4x4 homogeneous rigid transform. Camera poses map camera coordinates to world
// coordinates.
type Pose struct {
	m *mat.Dense
}

// NewZeroPose returns the identity transform.
func NewZeroPose() *Pose {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return &Pose{m: m}
}

// NewPoseFromMatrix copies a 4x4 matrix into a pose.
func NewPoseFromMatrix(m mat.Matrix) (*Pose, error) {
	if r, c := m.Dims(); r != 4 || c != 4 {
		return nil, errors.Errorf("pose must be 4x4, got %dx%d", r, c)
	}
	dense := mat.DenseCopyOf(m)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if v := dense.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Errorf("pose entry (%d, %d) is not finite", i, j)
			}
		}
	}
	return &Pose{m: dense}, nil
}

// NewPoseFromTranslation returns a pure translation.
func NewPoseFromTranslation(t r3.Vector) *Pose {
	p := NewZeroPose()
	p.m.Set(0, 3, t.X)
	p.m.Set(1, 3, t.Y)
	p.m.Set(2, 3, t.Z)
	return p
}

// ReadPoseFile parses a whitespace delimited 4x4 matrix.
func ReadPoseFile(path string) (*Pose, error) {
	m, err := matrix.ReadDenseFile(path)
	if err != nil {
		return nil, err
	}
	p, err := NewPoseFromMatrix(m)
	if err != nil {
		return nil, errors.Wrapf(err, "reading pose %q", path)
	}
	return p, nil
}

// Matrix returns a copy of the underlying matrix.
func (p *Pose) Matrix() *mat.Dense {
	return mat.DenseCopyOf(p.m)
}

// Translation returns the translation column.
func (p *Pose) Translation() r3.Vector {
	return r3.Vector{X: p.m.At(0, 3), Y: p.m.At(1, 3), Z: p.m.At(2, 3)}
}

// Rotate applies only the upper 3x3 block to v.
func (p *Pose) Rotate(v r3.Vector) r3.Vector {
	m := p.m
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// Transform maps a point through the pose.
func (p *Pose) Transform(pt r3.Vector) r3.Vector {
	return p.Rotate(pt).Add(p.Translation())
}

// Inverse returns the inverse transform, or ErrSingularPose.
func (p *Pose) Inverse() (*Pose, error) {
	var inv mat.Dense
	if err := inv.Inverse(p.m); err != nil {
		return nil, errors.Wrap(ErrSingularPose, err.Error())
	}
	return &Pose{m: &inv}, nil
}

// Compose returns p * other, the transform applying other first.
func (p *Pose) Compose(other *Pose) *Pose {
	var out mat.Dense
	out.Mul(p.m, other.m)
	return &Pose{m: &out}
}

// FlipYZ negates the Y and Z basis columns. It converts a camera pose between the convention
// where the camera looks down -Z with Y up and the one where it looks down +Z with Y down.
func (p *Pose) FlipYZ() *Pose {
	out := mat.DenseCopyOf(p.m)
	for i := 0; i < 4; i++ {
		out.Set(i, 1, -out.At(i, 1))
		out.Set(i, 2, -out.At(i, 2))
	}
	return &Pose{m: out}
}

// PoseAlmostEqual compares two poses entrywise.
func PoseAlmostEqual(a, b *Pose, tol float64) bool {
	return mat.EqualApprox(a.m, b.m, tol)
}
