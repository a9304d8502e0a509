package transform

import (
	"image"
	"math"

	"github.com/AlexLike/OpenMaskXR/rimage"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
	"github.com/AlexLike/OpenMaskXR/utils"
)

// DefaultDepthScale converts meters to the millimeter units stored in depth maps.
const DefaultDepthScale = 1000.

// RenderDepth casts one ray through the center of every pixel of the camera described by params
// and pose, and records the distance along the optical axis to the first surface hit. Pixels whose
// ray misses the mesh stay 0. The pose maps camera coordinates (+Z forward, +Y down) to world
// coordinates.
func RenderDepth(
	caster *spatialmath.RayCaster,
	params *PinholeCameraIntrinsics,
	pose *spatialmath.Pose,
	scale float64,
) (*rimage.DepthMap, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if _, err := pose.Inverse(); err != nil {
		return nil, err
	}

	dm := rimage.NewEmptyDepthMap(params.Width, params.Height)
	origin := pose.Translation()
	utils.ParallelForEachPixel(image.Point{params.Width, params.Height}, func(x, y int) {
		// the ray has unit z in camera space, so the hit parameter is the camera space depth
		dir := pose.Rotate(params.PixelToRay(float64(x)+0.5, float64(y)+0.5))
		t, ok := caster.CastRay(origin, dir)
		if !ok {
			return
		}
		dm.Set(x, y, depthFromMeters(t, scale))
	})
	return dm, nil
}

func depthFromMeters(z, scale float64) rimage.Depth {
	d := z * scale
	if d >= float64(rimage.MaxDepth) {
		return rimage.MaxDepth
	}
	if d <= 0 || math.IsNaN(d) {
		return 0
	}
	return rimage.Depth(d)
}
