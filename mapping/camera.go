package mapping

import (
	"math"

	"go.viam.com/rdk/rimage/transform"
	"go.viam.com/rdk/utils"
)

// CameraMatrix is the minimal pinhole model used by the depth projector:
// a single focal length in pixels and the principal point in image
// coordinates. Degenerate sizes or fov produce inf/NaN values that
// propagate through projection; callers needing strict validation should
// check inputs first.
type CameraMatrix struct {
	Xc float64
	Zc float64
	F  float64
}

func NewCameraMatrix(width, height int, fovDegrees float64) CameraMatrix {
	return CameraMatrix{
		Xc: (float64(width) - 1) / 2,
		Zc: (float64(height) - 1) / 2,
		F:  (float64(width) / 2) / math.Tan(utils.DegToRad(fovDegrees/2)),
	}
}

// Intrinsics builds full pinhole intrinsics from an image size and a
// horizontal fov. Fy is derived by dividing the hfov tangent by the aspect
// ratio instead of computing the vertical fov, which for square pixels
// makes Fy equal Fx. The shortcut is intentional; NewCameraMatrix makes
// the same one.
func Intrinsics(width, height int, hfovDegrees float64) *transform.PinholeCameraIntrinsics {
	aspectRatio := float64(width) / float64(height)
	temp := math.Tan(utils.DegToRad(hfovDegrees / 2))

	return &transform.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     (float64(width) / 2) / temp,
		Fy:     (float64(height) / 2) / (temp / aspectRatio),
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}
