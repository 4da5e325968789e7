package mapping

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rdk/pointcloud"
	"go.viam.com/test"
)

func TestDigitize(t *testing.T) {
	bins := []float64{0, 1, 2}

	test.That(t, digitize(-0.5, bins), test.ShouldEqual, 0)
	test.That(t, digitize(0.5, bins), test.ShouldEqual, 1)
	test.That(t, digitize(1.5, bins), test.ShouldEqual, 2)
	test.That(t, digitize(2.5, bins), test.ShouldEqual, 3)
	test.That(t, digitize(100, bins), test.ShouldEqual, 3)

	// a value on a threshold opens the bucket above it
	test.That(t, digitize(0, bins), test.ShouldEqual, 1)
	test.That(t, digitize(1, bins), test.ShouldEqual, 2)
	test.That(t, digitize(2, bins), test.ShouldEqual, 3)

	test.That(t, digitize(math.NaN(), bins), test.ShouldEqual, 3)
}

func TestBinPointsSingle(t *testing.T) {
	// the grid origin is world (0,0); a navigation caller centers the map
	// by shifting coordinates before binning
	pg := singlePointGrid(r3.Vector{X: 5, Y: 5, Z: 0.5})

	g, err := BinPoints(pg, 10, []float64{0, 1, 2}, 1)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.MapSize(), test.ShouldEqual, 10)
	test.That(t, g.ZBinCount(), test.ShouldEqual, 4)
	test.That(t, g.At(5, 5, 1), test.ShouldEqual, 1)
	test.That(t, g.Sum(), test.ShouldEqual, 1)
}

func TestBinPointsRounding(t *testing.T) {
	zBins := []float64{0, 1}

	// ties round to even: 0.5 -> 0, 1.5 -> 2, 2.5 -> 2
	for _, tc := range []struct {
		x    float64
		xBin int
	}{
		{0.5, 0},
		{1.5, 2},
		{2.5, 2},
		{3.4, 3},
		{3.6, 4},
	} {
		g, err := BinPoints(singlePointGrid(r3.Vector{X: tc.x, Y: 1, Z: 0.5}), 8, zBins, 1)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, g.At(tc.xBin, 1, 1), test.ShouldEqual, 1)
	}
}

func TestBinPointsConservation(t *testing.T) {
	pg := NewPointGrid(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			pg.Set(x, y, r3.Vector{X: float64(x), Y: float64(y), Z: 0.5})
		}
	}

	g, err := BinPoints(pg, 10, []float64{0, 1, 2}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Sum(), test.ShouldEqual, 16)
}

func TestBinPointsExclusion(t *testing.T) {
	pg := NewPointGrid(4, 1)
	pg.Set(0, 0, r3.Vector{X: 1, Y: 1, Z: 0.5})
	pg.Set(1, 0, r3.Vector{X: math.NaN(), Y: 1, Z: 0.5})  // NaN never bins
	pg.Set(2, 0, r3.Vector{X: 10, Y: 1, Z: 0.5})          // x bin == map size
	pg.Set(3, 0, r3.Vector{X: 1, Y: 1, Z: -5})            // below every z bin is still bucket 0
	zBins := []float64{0, 1, 2}

	g, err := BinPoints(pg, 10, zBins, 1)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.Sum(), test.ShouldEqual, 2)
	test.That(t, g.At(1, 1, 1), test.ShouldEqual, 1)
	test.That(t, g.At(1, 1, 0), test.ShouldEqual, 1)

	// the invalid points must not pollute cell (0,0,0)
	test.That(t, g.At(0, 0, 0), test.ShouldEqual, 0)

	// negative coordinates round below zero and are excluded too
	pg.Set(3, 0, r3.Vector{X: -0.7, Y: 1, Z: 0.5})
	g, err = BinPoints(pg, 10, zBins, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Sum(), test.ShouldEqual, 1)
}

func TestBinPointsEmpty(t *testing.T) {
	g, err := BinPoints(NewPointGrid(0, 0), 5, []float64{0}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Sum(), test.ShouldEqual, 0)

	_, err = BinPoints(NewPointGrid(1, 1), 0, []float64{0}, 1)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
}

func TestBinPointsBatch(t *testing.T) {
	a := singlePointGrid(r3.Vector{X: 1, Y: 1, Z: 0.5})
	b := NewPointGrid(2, 1)
	b.Set(0, 0, r3.Vector{X: 2, Y: 2, Z: 0.5})
	b.Set(1, 0, r3.Vector{X: 2, Y: 2, Z: 0.5})

	grids, err := BinPointsBatch(context.Background(), []*PointGrid{a, b}, 5, []float64{0, 1}, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(grids), test.ShouldEqual, 2)

	test.That(t, grids[0].At(1, 1, 1), test.ShouldEqual, 1)
	test.That(t, grids[0].Sum(), test.ShouldEqual, 1)
	test.That(t, grids[1].At(2, 2, 1), test.ShouldEqual, 2)
	test.That(t, grids[1].Sum(), test.ShouldEqual, 2)
}

func TestBinPointCloud(t *testing.T) {
	pc := pointcloud.NewBasicEmpty()
	test.That(t, pc.Set(r3.Vector{X: 1, Y: 2, Z: 0.5}, nil), test.ShouldBeNil)
	test.That(t, pc.Set(r3.Vector{X: 100, Y: 2, Z: 0.5}, nil), test.ShouldBeNil)

	g, err := BinPointCloud(pc, 5, []float64{0, 1}, 1)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.At(1, 2, 1), test.ShouldEqual, 1)
	test.That(t, g.Sum(), test.ShouldEqual, 1)
}

func TestOccupancyGridToPointCloud(t *testing.T) {
	pg := NewPointGrid(2, 1)
	pg.Set(0, 0, r3.Vector{X: 2, Y: 3, Z: 0.5})
	pg.Set(1, 0, r3.Vector{X: 2, Y: 3, Z: 0.5})

	g, err := BinPoints(pg, 5, []float64{0, 1}, 1)
	test.That(t, err, test.ShouldBeNil)

	pc, err := g.ToPointCloud(1, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 1)

	_, got := pc.At(2, 3, 1)
	test.That(t, got, test.ShouldBeTrue)
}
