package imgutils

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDepthFromGray16(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 3, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 1000})
	img.SetGray16(1, 0, color.Gray16{Y: 2500})
	img.SetGray16(2, 1, color.Gray16{Y: 500})

	rows := DepthFromGray16(img, 1000)

	test.That(t, len(rows), test.ShouldEqual, 2)
	test.That(t, len(rows[0]), test.ShouldEqual, 3)

	test.That(t, rows[0][0], test.ShouldAlmostEqual, 1)
	test.That(t, rows[0][1], test.ShouldAlmostEqual, 2.5)
	test.That(t, rows[1][2], test.ShouldAlmostEqual, 0.5)

	// zero means no reading
	test.That(t, math.IsNaN(rows[1][0]), test.ShouldBeTrue)
}

func TestMeanDepth(t *testing.T) {
	rows := [][]float64{
		{1, 2, math.NaN()},
		{3, math.NaN(), math.NaN()},
	}
	test.That(t, MeanDepth(rows), test.ShouldAlmostEqual, 2)

	empty := [][]float64{{math.NaN()}}
	test.That(t, math.IsNaN(MeanDepth(empty)), test.ShouldBeTrue)
}
