package mapping

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/rimage/transform"
	rdkutils "go.viam.com/rdk/utils"
)

// PointGrid is a dense per-pixel point cloud: one 3D point for every pixel
// of the depth image it was projected from. Points may be NaN where the
// depth was missing. Transform stages treat a PointGrid as immutable and
// return a new one.
type PointGrid struct {
	width  int
	height int
	points []r3.Vector
}

func NewPointGrid(width, height int) *PointGrid {
	return &PointGrid{width: width, height: height, points: make([]r3.Vector, width*height)}
}

func (pg *PointGrid) Width() int {
	return pg.width
}

func (pg *PointGrid) Height() int {
	return pg.height
}

func (pg *PointGrid) Size() int {
	return len(pg.points)
}

func (pg *PointGrid) At(x, y int) r3.Vector {
	return pg.points[y*pg.width+x]
}

func (pg *PointGrid) Set(x, y int, p r3.Vector) {
	pg.points[y*pg.width+x] = p
}

func (pg *PointGrid) Clone() *PointGrid {
	out := NewPointGrid(pg.width, pg.height)
	copy(out.points, pg.points)
	return out
}

// ToPointCloud copies the non-NaN points into an rdk pointcloud, losing the
// grid structure.
func (pg *PointGrid) ToPointCloud() (pointcloud.PointCloud, error) {
	pc := pointcloud.NewBasicPointCloud(len(pg.points))
	for _, p := range pg.points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			continue
		}
		err := pc.Set(p, nil)
		if err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// ProjectDepth projects a depth image into a camera-space point cloud.
// In the output frame X is positive going right, Y is positive into the
// scene, and Z is positive up in the image: the pixel row index is reversed
// so row 0 projects to the largest Z. scale decimates both axes by striding.
// NaN depths project to NaN points.
func ProjectDepth(dm *DepthMap, cam CameraMatrix, scale int) (*PointGrid, error) {
	if scale < 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "scale must be >= 1, got %d", scale)
	}

	w := (dm.Width() + scale - 1) / scale
	h := (dm.Height() + scale - 1) / scale
	pg := NewPointGrid(w, h)

	for oy := 0; oy < h; oy++ {
		y := oy * scale
		// reversed row index, so Z grows upward in the image
		gz := float64(dm.Height() - 1 - y)
		for ox := 0; ox < w; ox++ {
			x := ox * scale
			d := dm.At(x, y)
			pg.Set(ox, oy, r3.Vector{
				X: (float64(x) - cam.Xc) * d / cam.F,
				Y: d,
				Z: (gz - cam.Zc) * d / cam.F,
			})
		}
	}

	return pg, nil
}

// ProjectDepthBatch projects each depth map independently, in parallel.
func ProjectDepthBatch(ctx context.Context, dms []*DepthMap, cam CameraMatrix, scale int) ([]*PointGrid, error) {
	out := make([]*PointGrid, len(dms))

	fs := make([]rdkutils.SimpleFunc, len(dms))
	for i := range dms {
		idx := i
		fs[idx] = func(ctx context.Context) error {
			pg, err := ProjectDepth(dms[idx], cam, scale)
			if err != nil {
				return err
			}
			out[idx] = pg
			return nil
		}
	}

	_, err := rdkutils.RunInParallel(ctx, fs)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectDepthIntrinsics back-projects a depth image through full pinhole
// intrinsics, in the image frame: X right, Y down, Z is the depth. If
// extrinsic is non-nil it must be a 4x4 homogeneous transform that is
// applied to every point. Nonpositive or missing depths become NaN points.
func ProjectDepthIntrinsics(dm *DepthMap, intr *transform.PinholeCameraIntrinsics, extrinsic *mat.Dense) (*PointGrid, error) {
	if dm.Width() != intr.Width || dm.Height() != intr.Height {
		return nil, errors.Wrapf(ErrShapeMismatch, "depth map is (%d,%d) but intrinsics expect (%d,%d)",
			dm.Width(), dm.Height(), intr.Width, intr.Height)
	}
	if extrinsic != nil {
		r, c := extrinsic.Dims()
		if r != 4 || c != 4 {
			return nil, errors.Wrapf(ErrShapeMismatch, "extrinsic matrix is %dx%d, want 4x4", r, c)
		}
	}

	nan := math.NaN()
	pg := NewPointGrid(dm.Width(), dm.Height())

	for v := 0; v < dm.Height(); v++ {
		for u := 0; u < dm.Width(); u++ {
			z := dm.At(u, v)
			if math.IsNaN(z) || z <= 0 {
				pg.Set(u, v, r3.Vector{X: nan, Y: nan, Z: nan})
				continue
			}

			x := (float64(u) - intr.Ppx) * z / intr.Fx
			y := (float64(v) - intr.Ppy) * z / intr.Fy

			if extrinsic != nil {
				x, y, z = x*extrinsic.At(0, 0)+y*extrinsic.At(0, 1)+z*extrinsic.At(0, 2)+extrinsic.At(0, 3),
					x*extrinsic.At(1, 0)+y*extrinsic.At(1, 1)+z*extrinsic.At(1, 2)+extrinsic.At(1, 3),
					x*extrinsic.At(2, 0)+y*extrinsic.At(2, 1)+z*extrinsic.At(2, 2)+extrinsic.At(2, 3)
			}

			pg.Set(u, v, r3.Vector{X: x, Y: y, Z: z})
		}
	}

	return pg, nil
}
