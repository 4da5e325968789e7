package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/rimage"
	"go.viam.com/rdk/robot"

	"github.com/erh/vnavmap"
	"github.com/erh/vnavmap/imgutils"
	"github.com/erh/vnavmap/mapping"
	"github.com/erh/vnavmap/splat"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	logger := logging.NewLogger("cmd-maptools")
	ctx := context.Background()

	host := flag.String("host", "", "hostname")
	cmd := flag.String("cmd", "", "command")
	cameraName := flag.String("camera", "", "camera to use")
	out := flag.String("out", "", "output file")
	in := flag.String("in", "", "input file")

	fov := flag.Float64("fov", 90, "horizontal fov in degrees")
	scale := flag.Int("scale", 1, "depth decimation stride")
	unitsPerMeter := flag.Float64("units-per-meter", 1000, "depth image integer units per meter")

	sensorHeight := flag.Float64("sensor-height", 0, "")
	elevation := flag.Float64("elevation", 0, "sensor elevation in degrees")
	poseX := flag.Float64("pose-x", 0, "")
	poseY := flag.Float64("pose-y", 0, "")
	poseTheta := flag.Float64("pose-theta", 0, "heading in radians")

	mapSize := flag.Int("map-size", 240, "")
	xyResolution := flag.Float64("xy-resolution", 0.05, "")
	zBinsFlag := flag.String("z-bins", "0.2,1.5", "comma separated height thresholds")
	maxCount := flag.Float64("max-count", 25, "count that saturates the output image")

	flag.Parse()

	if *cmd == "" {
		return fmt.Errorf("need a cmd")
	}

	zBins, err := parseZBins(*zBinsFlag)
	if err != nil {
		return err
	}

	if *cmd == "download" {
		if *out == "" {
			return fmt.Errorf("need an 'out'")
		}

		machine, err := connect(ctx, *host, logger)
		if err != nil {
			return err
		}
		defer machine.Close(ctx)

		myCamera, err := camera.FromRobot(machine, *cameraName)
		if err != nil {
			return err
		}

		pc, err := myCamera.NextPointCloud(ctx, nil)
		if err != nil {
			return err
		}

		return writePCToFile(*out, pc)
	}

	if *cmd == "bin" {
		if *out == "" {
			return fmt.Errorf("need an 'out'")
		}

		in, err := pointcloud.NewFromFile(*in, "")
		if err != nil {
			return err
		}

		g, err := mapping.BinPointCloud(in, *mapSize, zBins, *xyResolution)
		if err != nil {
			return err
		}

		logger.Infof("binned %.0f of %d points", g.Sum(), in.Size())

		return rimage.WriteImageToFile(*out, mapping.GridImage(g, *maxCount))
	}

	if *cmd == "depth-bin" {
		if *out == "" {
			return fmt.Errorf("need an 'out'")
		}

		img, err := readImage(*in)
		if err != nil {
			return err
		}

		rows := imgutils.DepthFromGray16(img, *unitsPerMeter)
		logger.Infof("mean depth: %0.3f", imgutils.MeanDepth(rows))

		dm, err := mapping.DepthMapFromMatrix(rows)
		if err != nil {
			return err
		}

		cam := mapping.NewCameraMatrix(dm.Width(), dm.Height(), *fov)
		pg, err := mapping.ProjectDepth(dm, cam, *scale)
		if err != nil {
			return err
		}

		pg = mapping.TransformCameraView(pg, *sensorHeight, *elevation)
		pg = mapping.TransformPose(pg, mapping.Pose{X: *poseX, Y: *poseY, Theta: *poseTheta})

		g, err := mapping.BinPoints(pg, *mapSize, zBins, *xyResolution)
		if err != nil {
			return err
		}

		logger.Infof("binned %.0f of %d points", g.Sum(), pg.Size())

		return rimage.WriteImageToFile(*out, mapping.GridImage(g, *maxCount))
	}

	if *cmd == "splat" {
		if *out == "" {
			return fmt.Errorf("need an 'out'")
		}

		in, err := pointcloud.NewFromFile(*in, "")
		if err != nil {
			return err
		}

		img, err := splatTopDown(in, *mapSize)
		if err != nil {
			return err
		}

		return rimage.WriteImageToFile(*out, img)
	}

	return fmt.Errorf("invalid command [%s]", *cmd)
}

func connect(ctx context.Context, host string, logger logging.Logger) (robot.Robot, error) {
	if host == "" {
		return vnavmap.ConnectToMachineFromEnv(ctx, logger)
	}
	return vnavmap.ConnectToHostFromCLIToken(ctx, host, logger)
}

// splatTopDown scatters a cloud's points into a 2D feature grid with
// multilinear weights, x/y normalized to the cloud's bounds, and renders
// the accumulated grid as a grayscale image.
func splatTopDown(pc pointcloud.PointCloud, gridSize int) (image.Image, error) {
	md := pc.MetaData()

	feat := [][]float64{make([]float64, 0, pc.Size())}
	coords := [][]float64{make([]float64, 0, pc.Size()), make([]float64, 0, pc.Size())}

	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		coords[0] = append(coords[0], normalize(p.X, md.MinX, md.MaxX))
		coords[1] = append(coords[1], normalize(p.Y, md.MinY, md.MaxY))
		feat[0] = append(feat[0], 1)
		return true
	})

	grid := splat.NewFeatureGrid(1, gridSize, gridSize)
	err := splat.Splat(grid, feat, coords, splat.RoundNever)
	if err != nil {
		return nil, err
	}

	biggest := 0.0
	for x := 0; x < gridSize; x++ {
		for y := 0; y < gridSize; y++ {
			if v := grid.At(0, x, y); v > biggest {
				biggest = v
			}
		}
	}
	if biggest == 0 {
		biggest = 1
	}

	img := image.NewGray(image.Rect(0, 0, gridSize, gridSize))
	for x := 0; x < gridSize; x++ {
		for y := 0; y < gridSize; y++ {
			img.SetGray(x, y, color.Gray{Y: uint8(grid.At(0, x, y) / biggest * 255)})
		}
	}

	return img, nil
}

func normalize(v, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return 2*(v-min)/(max-min) - 1
}

func parseZBins(s string) ([]float64, error) {
	pieces := strings.Split(s, ",")
	bins := make([]float64, 0, len(pieces))
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad z bin [%s]: %w", p, err)
		}
		bins = append(bins, v)
	}
	return bins, nil
}

func readImage(fn string) (image.Image, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

func writePCToFile(fn string, pc pointcloud.PointCloud) error {
	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return pointcloud.ToPCD(pc, f, pointcloud.PCDBinary)
}
