package mapping

import (
	"testing"

	"go.viam.com/test"
)

func TestObstacleMapConfigValidate(t *testing.T) {
	cfg := &ObstacleMapConfig{}
	_, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldNotBeNil)

	cfg.Src = "depth-cam"
	deps, _, err := cfg.Validate("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldResemble, []string{"depth-cam"})

	cfg.MapSize = -1
	_, _, err = cfg.Validate("")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestObstacleMapConfigDefaults(t *testing.T) {
	cfg := &ObstacleMapConfig{Src: "depth-cam"}

	test.That(t, cfg.mapSize(), test.ShouldEqual, 240)
	test.That(t, cfg.xyResolution(), test.ShouldEqual, 50.0)
	test.That(t, cfg.zBins(), test.ShouldResemble, []float64{0, 1000})
	test.That(t, cfg.minCount(), test.ShouldEqual, 1.0)
	test.That(t, cfg.maxCount(), test.ShouldEqual, 25.0)

	cfg.MapSize = 100
	cfg.XYResolution = 10
	cfg.ZBins = []float64{0, 200, 400}
	test.That(t, cfg.mapSize(), test.ShouldEqual, 100)
	test.That(t, cfg.xyResolution(), test.ShouldEqual, 10.0)
	test.That(t, cfg.zBins(), test.ShouldResemble, []float64{0, 200, 400})
}
