package mapping

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/rdk/rimage"
)

// DepthMap is a dense raster of depths in meters. NaN marks a pixel with no
// depth reading; every stage downstream masks NaN rather than erroring.
type DepthMap struct {
	width  int
	height int
	data   []float64
}

func NewDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]float64, width*height)}
}

// DepthMapFromMatrix wraps row-major rows of depths. All rows must be the
// same length.
func DepthMapFromMatrix(rows [][]float64) (*DepthMap, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "depth matrix is empty")
	}
	dm := NewDepthMap(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != dm.width {
			return nil, errors.Wrapf(ErrShapeMismatch, "depth row %d has %d entries, want %d", y, len(row), dm.width)
		}
		copy(dm.data[y*dm.width:(y+1)*dm.width], row)
	}
	return dm, nil
}

// DepthMapFromRimage converts an rdk integer depth map into meters.
// unitsPerMeter is the sensor's integer units per meter (1000 for the usual
// millimeter maps). Zero depth means no reading and becomes NaN.
func DepthMapFromRimage(src *rimage.DepthMap, unitsPerMeter float64) *DepthMap {
	dm := NewDepthMap(src.Width(), src.Height())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			d := src.GetDepth(x, y)
			if d == 0 {
				dm.Set(x, y, math.NaN())
				continue
			}
			dm.Set(x, y, float64(d)/unitsPerMeter)
		}
	}
	return dm
}

func (dm *DepthMap) Width() int {
	return dm.width
}

func (dm *DepthMap) Height() int {
	return dm.height
}

func (dm *DepthMap) At(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

func (dm *DepthMap) Set(x, y int, d float64) {
	dm.data[y*dm.width+x] = d
}
