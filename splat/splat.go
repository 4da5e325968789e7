// Package splat scatters sparse feature vectors into dense N-dimensional
// grids with multilinear interpolation.
package splat

import (
	"math"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when feature or coordinate shapes don't
// match the grid. Out-of-range coordinates are not errors; they just
// contribute zero weight.
var ErrShapeMismatch = errors.New("input shape does not match contract")

// FeatureGrid is a dense accumulation grid: feats feature channels over an
// arbitrary number of spatial dimensions, stored flat in row-major order.
// The caller owns initialization (usually all zeros) and the final values.
type FeatureGrid struct {
	feats int
	dims  []int
	cells int
	data  []float64
}

func NewFeatureGrid(feats int, dims ...int) *FeatureGrid {
	cells := 1
	for _, d := range dims {
		cells *= d
	}
	return &FeatureGrid{
		feats: feats,
		dims:  append([]int{}, dims...),
		cells: cells,
		data:  make([]float64, feats*cells),
	}
}

func (g *FeatureGrid) Features() int {
	return g.feats
}

func (g *FeatureGrid) Dims() []int {
	return append([]int{}, g.dims...)
}

func (g *FeatureGrid) Clone() *FeatureGrid {
	out := NewFeatureGrid(g.feats, g.dims...)
	copy(out.data, g.data)
	return out
}

func (g *FeatureGrid) flatIndex(idx []int) int {
	flat := 0
	for d, i := range idx {
		flat = flat*g.dims[d] + i
	}
	return flat
}

func (g *FeatureGrid) At(feat int, idx ...int) float64 {
	return g.data[feat*g.cells+g.flatIndex(idx)]
}

func (g *FeatureGrid) Set(feat int, v float64, idx ...int) {
	g.data[feat*g.cells+g.flatIndex(idx)] = v
}

// RoundingMode controls the quantization the splatter applies to the grid.
type RoundingMode int

const (
	// RoundEachPass rounds the entire grid after each of the 2^N scatter
	// passes. Intermediate rounding compounds, and cells never touched by
	// any point get rounded too. Consumers that expect those exact values
	// should use this mode.
	RoundEachPass RoundingMode = iota
	// RoundOnce rounds the grid a single time after all passes.
	RoundOnce
	// RoundNever leaves the accumulated weights untouched.
	RoundNever
)

func (g *FeatureGrid) round() {
	for i, v := range g.data {
		g.data[i] = math.Round(v)
	}
}

// Splat accumulates feat into the grid at the fractional positions given by
// coords, spreading each point's features over the 2^N neighboring cells
// with multilinear interpolation weights.
//
// feat is [features][points]; coords is [dims][points] with every component
// normalized to [-1, 1]. A normalized coordinate c maps to grid position
// c*D/2 + D/2 along a dimension of size D. The two integer neighbors along
// each dimension are floor and floor+1; a neighbor is kept only when its
// index is strictly between 0 and D. Index 0 therefore never receives
// weight. Existing consumers rely on that boundary behavior, so it is kept
// rather than fixed. Masked neighbors carry index 0 and weight 0, landing
// harmlessly.
//
// Contributions add: multiple points targeting a cell sum, and the grid's
// initial contents are kept. One grid is one batch element; callers with a
// batch dimension loop over grids.
func Splat(grid *FeatureGrid, feat, coords [][]float64, mode RoundingMode) error {
	nDims := len(grid.dims)

	if len(coords) != nDims {
		return errors.Wrapf(ErrShapeMismatch, "coords have %d dims, grid has %d", len(coords), nDims)
	}
	if len(feat) != grid.feats {
		return errors.Wrapf(ErrShapeMismatch, "feat has %d channels, grid has %d", len(feat), grid.feats)
	}

	nPts := 0
	if len(feat) > 0 {
		nPts = len(feat[0])
	} else if len(coords) > 0 {
		nPts = len(coords[0])
	}
	for f := range feat {
		if len(feat[f]) != nPts {
			return errors.Wrapf(ErrShapeMismatch, "feat channel %d has %d points, want %d", f, len(feat[f]), nPts)
		}
	}
	for d := range coords {
		if len(coords[d]) != nPts {
			return errors.Wrapf(ErrShapeMismatch, "coords dim %d has %d points, want %d", d, len(coords[d]), nPts)
		}
	}

	// per-dimension neighbor indices and weights, lower ([0]) and upper ([1])
	pos := make([][2][]int, nDims)
	wts := make([][2][]float64, nDims)

	for d := 0; d < nDims; d++ {
		size := float64(grid.dims[d])
		for ix := 0; ix < 2; ix++ {
			pos[d][ix] = make([]int, nPts)
			wts[d][ix] = make([]float64, nPts)
		}
		for p := 0; p < nPts; p++ {
			at := coords[d][p]*size/2 + size/2
			for ix := 0; ix < 2; ix++ {
				neighbor := math.Floor(at) + float64(ix)
				w := 1 - math.Abs(at-neighbor)
				if neighbor > 0 && neighbor < size {
					pos[d][ix][p] = int(neighbor)
					wts[d][ix][p] = w
				}
			}
		}
	}

	// combinations enumerate lower/upper per dimension, last dimension
	// toggling fastest so RoundEachPass compounds in a stable order
	for combo := 0; combo < 1<<nDims; combo++ {
		for p := 0; p < nPts; p++ {
			index := 0
			w := 1.0
			for d := 0; d < nDims; d++ {
				ix := (combo >> (nDims - 1 - d)) & 1
				index = index*grid.dims[d] + pos[d][ix][p]
				w *= wts[d][ix][p]
			}
			for f := 0; f < grid.feats; f++ {
				grid.data[f*grid.cells+index] += feat[f][p] * w
			}
		}
		if mode == RoundEachPass {
			grid.round()
		}
	}

	if mode == RoundOnce {
		grid.round()
	}

	return nil
}
