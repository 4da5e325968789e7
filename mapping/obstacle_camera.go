package mapping

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/rimage"
	"go.viam.com/rdk/spatialmath"
	rdkutils "go.viam.com/rdk/utils"

	"github.com/erh/vnavmap"
)

var ObstacleMapModel = vnavmap.NamespaceFamily.WithModel("obstacle-map-camera")

func init() {
	resource.RegisterComponent(
		camera.API,
		ObstacleMapModel,
		resource.Registration[camera.Camera, *ObstacleMapConfig]{
			Constructor: newObstacleMapCamera,
		})
}

// ObstacleMapConfig configures an occupancy-grid camera over a depth
// camera. All lengths are in the units of the source pointcloud.
type ObstacleMapConfig struct {
	Src string

	SensorHeight     float64 `json:"sensor_height"`
	ElevationDegrees float64 `json:"elevation_degrees"`

	MapSize      int       `json:"map_size"`
	XYResolution float64   `json:"xy_resolution"`
	ZBins        []float64 `json:"z_bins"`

	// MinCount is how many points a cell needs before it is considered
	// occupied; MaxCount saturates the rendered image.
	MinCount float64 `json:"min_count"`
	MaxCount float64 `json:"max_count"`
}

func (omc *ObstacleMapConfig) Validate(path string) ([]string, []string, error) {
	if omc.Src == "" {
		return nil, nil, fmt.Errorf("need a src camera")
	}
	if omc.MapSize < 0 {
		return nil, nil, fmt.Errorf("map_size can't be negative")
	}
	if omc.XYResolution < 0 {
		return nil, nil, fmt.Errorf("xy_resolution can't be negative")
	}
	return []string{omc.Src}, nil, nil
}

func (omc *ObstacleMapConfig) mapSize() int {
	if omc.MapSize <= 0 {
		return 240
	}
	return omc.MapSize
}

func (omc *ObstacleMapConfig) xyResolution() float64 {
	if omc.XYResolution <= 0 {
		return 50
	}
	return omc.XYResolution
}

func (omc *ObstacleMapConfig) zBins() []float64 {
	if len(omc.ZBins) == 0 {
		return []float64{0, 1000}
	}
	return omc.ZBins
}

func (omc *ObstacleMapConfig) minCount() float64 {
	if omc.MinCount <= 0 {
		return 1
	}
	return omc.MinCount
}

func (omc *ObstacleMapConfig) maxCount() float64 {
	if omc.MaxCount <= 0 {
		return 25
	}
	return omc.MaxCount
}

func newObstacleMapCamera(ctx context.Context, deps resource.Dependencies, config resource.Config, logger logging.Logger) (camera.Camera, error) {
	newConf, err := resource.NativeConfig[*ObstacleMapConfig](config)
	if err != nil {
		return nil, err
	}

	oc := &obstacleMapCamera{
		name:   config.ResourceName(),
		cfg:    newConf,
		logger: logger,
	}

	oc.src, err = camera.FromProvider(deps, newConf.Src)
	if err != nil {
		return nil, err
	}

	return oc, nil
}

type obstacleMapCamera struct {
	resource.AlwaysRebuild

	name   resource.Name
	cfg    *ObstacleMapConfig
	logger logging.Logger

	src camera.Camera

	lock         sync.Mutex
	pose         Pose
	active       bool
	lastGrid     *OccupancyGrid
	lastGridTime time.Time
	lastGridErr  error
}

func (oc *obstacleMapCamera) Name() resource.Name {
	return oc.name
}

// mountPose composes the agent's current pose correction with the sensor
// mount correction so one pointcloud offset does both.
func (oc *obstacleMapCamera) mountPose() spatialmath.Pose {
	oc.lock.Lock()
	pose := oc.pose
	oc.lock.Unlock()

	elevation := spatialmath.NewPose(
		r3.Vector{Z: oc.cfg.SensorHeight},
		&spatialmath.R4AA{Theta: rdkutils.DegToRad(oc.cfg.ElevationDegrees), RX: 1},
	)
	agent := spatialmath.NewPose(
		r3.Vector{X: pose.X, Y: pose.Y},
		&spatialmath.R4AA{Theta: pose.Theta - math.Pi/2, RZ: 1},
	)
	return spatialmath.Compose(agent, elevation)
}

func (oc *obstacleMapCamera) grid(ctx context.Context, extra map[string]interface{}) (*OccupancyGrid, error) {
	start := time.Now()
	oc.lock.Lock()
	if oc.active {
		oc.lock.Unlock()
		return oc.waitForGridAfter(ctx, start)
	}

	oc.active = true
	oc.lock.Unlock()

	g, err := oc.doGrid(ctx, extra)

	oc.lock.Lock()
	oc.active = false
	oc.lastGrid = g
	oc.lastGridErr = err
	oc.lastGridTime = time.Now()
	oc.lock.Unlock()

	return g, err
}

func (oc *obstacleMapCamera) waitForGridAfter(ctx context.Context, when time.Time) (*OccupancyGrid, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if time.Since(when) > time.Minute {
			return nil, fmt.Errorf("waitForGridAfter timed out after %v", time.Since(when))
		}

		oc.lock.Lock()
		if oc.lastGridTime.After(when) {
			g := oc.lastGrid
			err := oc.lastGridErr
			oc.lock.Unlock()
			return g, err
		}
		oc.lock.Unlock()

		time.Sleep(time.Millisecond * 50)
	}
}

func (oc *obstacleMapCamera) doGrid(ctx context.Context, extra map[string]interface{}) (*OccupancyGrid, error) {
	start := time.Now()

	pc, err := oc.src.NextPointCloud(ctx, extra)
	if err != nil {
		return nil, err
	}

	timeA := time.Since(start)

	world := pointcloud.NewBasicPointCloud(pc.Size())
	err = pointcloud.ApplyOffset(pc, oc.mountPose(), world)
	if err != nil {
		return nil, err
	}

	timeB := time.Since(start)

	g, err := BinPointCloud(world, oc.cfg.mapSize(), oc.cfg.zBins(), oc.cfg.xyResolution())
	if err != nil {
		return nil, err
	}

	timeC := time.Since(start)
	if timeC > (time.Millisecond * 250) {
		oc.logger.Infof("obstacleMapCamera::doGrid timeA: %v timeB: %v timeC: %v", timeA, timeB, timeC)
	}

	return g, nil
}

func (oc *obstacleMapCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	g, err := oc.grid(ctx, extra)
	if err != nil {
		return nil, camera.ImageMetadata{}, err
	}
	img := GridImage(g, oc.cfg.maxCount())

	data, err := rimage.EncodeImage(ctx, img, mimeType)
	if err != nil {
		return nil, camera.ImageMetadata{}, err
	}

	return data, camera.ImageMetadata{MimeType: mimeType}, err
}

func (oc *obstacleMapCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	g, err := oc.grid(ctx, extra)
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}
	img := GridImage(g, oc.cfg.maxCount())
	ni, err := camera.NamedImageFromImage(img, "obstacle-map", "image/png", data.Annotations{})
	if err != nil {
		return nil, resource.ResponseMetadata{}, err
	}
	return []camera.NamedImage{ni}, resource.ResponseMetadata{CapturedAt: time.Now()}, nil
}

// DoCommand accepts set_pose / get_pose so a navigation loop can keep the
// world-frame correction current between frames.
func (oc *obstacleMapCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	c, ok := cmd["cmd"].(string)
	if !ok {
		return nil, fmt.Errorf("need a cmd")
	}

	switch c {
	case "set_pose":
		oc.lock.Lock()
		if x, ok := cmd["x"].(float64); ok {
			oc.pose.X = x
		}
		if y, ok := cmd["y"].(float64); ok {
			oc.pose.Y = y
		}
		if theta, ok := cmd["theta"].(float64); ok {
			oc.pose.Theta = theta
		}
		oc.lock.Unlock()
		return map[string]interface{}{}, nil
	case "get_pose":
		oc.lock.Lock()
		pose := oc.pose
		oc.lock.Unlock()
		return map[string]interface{}{"x": pose.X, "y": pose.Y, "theta": pose.Theta}, nil
	default:
		return nil, fmt.Errorf("invalid cmd [%s]", c)
	}
}

func (oc *obstacleMapCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	g, err := oc.grid(ctx, extra)
	if err != nil {
		return nil, err
	}
	return g.ToPointCloud(oc.cfg.xyResolution(), oc.cfg.minCount())
}

func (oc *obstacleMapCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{
		SupportsPCD: true,
	}, nil
}

func (oc *obstacleMapCamera) Close(ctx context.Context) error {
	return nil
}

func (oc *obstacleMapCamera) Geometries(ctx context.Context, _ map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}
