package mapping

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/spatialmath"
	"go.viam.com/rdk/utils"
)

// Pose is an agent position and heading in the world frame. Theta is in
// radians with zero facing +X.
type Pose struct {
	X     float64
	Y     float64
	Theta float64
}

// rotatePoints rotates every point about the given axis by angle. The
// spatialmath rotation matrix is laid out so that dotting a point against
// its rows rotates by -angle; dotting against its columns gives the
// forward rotation we want. NaN points stay NaN.
func rotatePoints(pg *PointGrid, axis r3.Vector, angle float64) *PointGrid {
	aa := spatialmath.R4AA{Theta: angle, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	rm := aa.RotationMatrix()

	r0 := rm.Row(0)
	r1 := rm.Row(1)
	r2 := rm.Row(2)
	c0 := r3.Vector{X: r0.X, Y: r1.X, Z: r2.X}
	c1 := r3.Vector{X: r0.Y, Y: r1.Y, Z: r2.Y}
	c2 := r3.Vector{X: r0.Z, Y: r1.Z, Z: r2.Z}

	out := NewPointGrid(pg.width, pg.height)
	for i, p := range pg.points {
		out.points[i] = r3.Vector{X: c0.Dot(p), Y: c1.Dot(p), Z: c2.Dot(p)}
	}
	return out
}

// TransformCameraView moves a camera-space point cloud into the sensor
// frame: it rotates about the camera's lateral (X) axis to undo the sensor
// elevation, then lifts everything by the sensor height.
func TransformCameraView(pg *PointGrid, sensorHeight, elevationDegrees float64) *PointGrid {
	out := rotatePoints(pg, r3.Vector{X: 1}, utils.DegToRad(elevationDegrees))
	for i := range out.points {
		out.points[i].Z += sensorHeight
	}
	return out
}

// TransformPose moves a sensor-frame point cloud into the world frame for
// the given agent pose. The rotation is about the vertical axis by
// theta - pi/2: the projector puts the view direction on +Y while a pose
// with theta zero faces +X, and the offset reconciles the two.
func TransformPose(pg *PointGrid, pose Pose) *PointGrid {
	out := rotatePoints(pg, r3.Vector{Z: 1}, pose.Theta-math.Pi/2)
	for i := range out.points {
		out.points[i].X += pose.X
		out.points[i].Y += pose.Y
	}
	return out
}
