// Package transform maps between the 3D scene and camera images: pinhole projection, depth
// rendering by ray casting, and point colorization from posed frames.
package transform

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/AlexLike/OpenMaskXR/utils/matrix"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
	Skew   float64 `json:"skew,omitempty"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, skew and the principal point from the upper
// 3x3 block of a 3x3 or 4x4 camera matrix. The image size is not part of the matrix and is given
// separately.
func NewPinholeCameraIntrinsicsFromMatrix(k mat.Matrix, width, height int) (*PinholeCameraIntrinsics, error) {
	r, c := k.Dims()
	if !(r == 3 && c == 3) && !(r == 4 && c == 4) {
		return nil, errors.Errorf("intrinsic matrix must be 3x3 or 4x4, got %dx%d", r, c)
	}
	params := &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     k.At(0, 0),
		Skew:   k.At(0, 1),
		Ppx:    k.At(0, 2),
		Fy:     k.At(1, 1),
		Ppy:    k.At(1, 2),
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// NewPinholeCameraIntrinsicsFromFile parses a whitespace delimited camera matrix.
func NewPinholeCameraIntrinsicsFromFile(path string, width, height int) (*PinholeCameraIntrinsics, error) {
	k, err := matrix.ReadDenseFile(path)
	if err != nil {
		return nil, err
	}
	params, err := NewPinholeCameraIntrinsicsFromMatrix(k, width, height)
	if err != nil {
		return nil, errors.Wrapf(err, "reading intrinsics %q", path)
	}
	return params, nil
}

// Matrix returns the 3x3 camera matrix K.
func (params *PinholeCameraIntrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, params.Skew, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}

// PointToPixel projects a point in camera coordinates onto the continuous image plane. The point
// must have positive z.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	u := params.Fx*x + params.Skew*y + params.Ppx*z
	v := params.Fy*y + params.Ppy*z
	return u / z, v / z
}

// PixelToRay returns K^-1 [u, v, 1], the camera space direction through image position (u, v)
// scaled so that its z component is 1.
func (params *PinholeCameraIntrinsics) PixelToRay(u, v float64) r3.Vector {
	y := (v - params.Ppy) / params.Fy
	x := (u - params.Ppx - params.Skew*y) / params.Fx
	return r3.Vector{X: x, Y: y, Z: 1}
}

// PixelToPoint transforms a pixel with depth to a 3D point in camera coordinates.
func (params *PinholeCameraIntrinsics) PixelToPoint(u, v, z float64) (float64, float64, float64) {
	ray := params.PixelToRay(u, v)
	return ray.X * z, ray.Y * z, z
}
