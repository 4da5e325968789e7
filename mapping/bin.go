package mapping

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rdk/pointcloud"
	rdkutils "go.viam.com/rdk/utils"
)

// OccupancyGrid is a mapSize x mapSize x nZBins histogram of point counts.
// The z axis is split by the thresholds the grid was binned with: bucket 0
// holds heights below the first threshold, the last bucket holds heights at
// or above the final one.
type OccupancyGrid struct {
	mapSize int
	nZBins  int
	counts  []float64
}

func NewOccupancyGrid(mapSize, nZBins int) *OccupancyGrid {
	return &OccupancyGrid{
		mapSize: mapSize,
		nZBins:  nZBins,
		counts:  make([]float64, mapSize*mapSize*nZBins),
	}
}

func (g *OccupancyGrid) MapSize() int {
	return g.mapSize
}

func (g *OccupancyGrid) ZBinCount() int {
	return g.nZBins
}

// At returns the count for cell (x, y, z bucket).
func (g *OccupancyGrid) At(x, y, z int) float64 {
	return g.counts[(y*g.mapSize+x)*g.nZBins+z]
}

// Sum is the total number of points binned into the grid.
func (g *OccupancyGrid) Sum() float64 {
	total := 0.0
	for _, c := range g.counts {
		total += c
	}
	return total
}

// ColumnSum is the count at (x, y) across all z buckets.
func (g *OccupancyGrid) ColumnSum(x, y int) float64 {
	total := 0.0
	base := (y*g.mapSize + x) * g.nZBins
	for z := 0; z < g.nZBins; z++ {
		total += g.counts[base+z]
	}
	return total
}

// ToPointCloud renders every cell holding at least minCount points as a
// single point. X and Y are scaled back to world units; Z is the raw
// z-bucket index, since the grid does not keep the height thresholds it
// was binned with.
func (g *OccupancyGrid) ToPointCloud(xyResolution float64, minCount float64) (pointcloud.PointCloud, error) {
	pc := pointcloud.NewBasicEmpty()
	for y := 0; y < g.mapSize; y++ {
		for x := 0; x < g.mapSize; x++ {
			for z := 0; z < g.nZBins; z++ {
				if g.At(x, y, z) < minCount {
					continue
				}
				p := r3.Vector{X: float64(x) * xyResolution, Y: float64(y) * xyResolution, Z: float64(z)}
				err := pc.Set(p, nil)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	return pc, nil
}

// digitize assigns a height to a bucket given ordered thresholds: the
// result i satisfies bins[i-1] <= v < bins[i], a value equal to a threshold
// lands in the bucket it opens, and anything at or past the last threshold
// (NaN included) gets the overflow index len(bins).
func digitize(v float64, bins []float64) int {
	for i, b := range bins {
		if v < b {
			return i
		}
	}
	return len(bins)
}

// binPoint computes the flat histogram index for one point along with a 0/1
// validity weight. Invalid points (any NaN coordinate, or any bin out of
// range) report index 0 with weight 0 so a single accumulation pass stays
// safe without branching on them.
func binPoint(p r3.Vector, mapSize int, zBins []float64, xyResolution float64) (int, float64) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return 0, 0
	}

	// ties round to even
	xBin := int(math.RoundToEven(p.X / xyResolution))
	yBin := int(math.RoundToEven(p.Y / xyResolution))
	zBin := digitize(p.Z, zBins)

	nZBins := len(zBins) + 1
	if xBin < 0 || xBin >= mapSize || yBin < 0 || yBin >= mapSize || zBin < 0 || zBin >= nZBins {
		return 0, 0
	}

	return (yBin*mapSize+xBin)*nZBins + zBin, 1
}

// BinPoints histograms a point cloud into an occupancy grid. Cell (x, y)
// covers world coordinates rounding to (x*xyResolution, y*xyResolution);
// the z bucket comes from digitize over zBins. Points outside the grid and
// NaN points contribute nothing. Counts are raw tallies, unnormalized.
func BinPoints(pg *PointGrid, mapSize int, zBins []float64, xyResolution float64) (*OccupancyGrid, error) {
	if mapSize <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "map size must be positive, got %d", mapSize)
	}

	g := NewOccupancyGrid(mapSize, len(zBins)+1)
	for _, p := range pg.points {
		idx, w := binPoint(p, mapSize, zBins, xyResolution)
		g.counts[idx] += w
	}
	return g, nil
}

// BinPointsBatch bins each cloud independently, in parallel. Slices share
// no state, so each worker owns its output grid outright.
func BinPointsBatch(ctx context.Context, pgs []*PointGrid, mapSize int, zBins []float64, xyResolution float64) ([]*OccupancyGrid, error) {
	out := make([]*OccupancyGrid, len(pgs))

	fs := make([]rdkutils.SimpleFunc, len(pgs))
	for i := range pgs {
		idx := i
		fs[idx] = func(ctx context.Context) error {
			g, err := BinPoints(pgs[idx], mapSize, zBins, xyResolution)
			if err != nil {
				return err
			}
			out[idx] = g
			return nil
		}
	}

	_, err := rdkutils.RunInParallel(ctx, fs)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BinPointCloud applies the same binning rule to a sparse rdk pointcloud.
func BinPointCloud(pc pointcloud.PointCloud, mapSize int, zBins []float64, xyResolution float64) (*OccupancyGrid, error) {
	if mapSize <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "map size must be positive, got %d", mapSize)
	}

	g := NewOccupancyGrid(mapSize, len(zBins)+1)
	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		idx, w := binPoint(p, mapSize, zBins, xyResolution)
		g.counts[idx] += w
		return true
	})
	return g, nil
}
