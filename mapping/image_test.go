package mapping

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"

	"go.viam.com/test"
)

func TestGridImage(t *testing.T) {
	pg := NewPointGrid(2, 1)
	pg.Set(0, 0, r3.Vector{X: 1, Y: 2, Z: 0.5})
	pg.Set(1, 0, r3.Vector{X: 1, Y: 2, Z: 1.5})

	g, err := BinPoints(pg, 4, []float64{0, 1}, 1)
	test.That(t, err, test.ShouldBeNil)

	img := GridImage(g, 2)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 4)

	// grid y flips so +Y is up: cell (1,2) lands on image row 4-1-2
	c := color.GrayModel.Convert(img.At(1, 1)).(color.Gray)
	test.That(t, c.Y, test.ShouldEqual, uint8(255))

	empty := color.GrayModel.Convert(img.At(0, 0)).(color.Gray)
	test.That(t, empty.Y, test.ShouldEqual, uint8(0))
}
