package mapping

import (
	"image"
	"image/color"
)

// GridImage renders an occupancy grid top-down as a grayscale image. A
// pixel's brightness scales with the total count in its column, saturating
// at maxCount. Image rows run top to bottom, so grid y is flipped to keep
// +Y pointing up.
func GridImage(g *OccupancyGrid, maxCount float64) image.Image {
	if maxCount <= 0 {
		maxCount = 1
	}

	img := image.NewGray(image.Rect(0, 0, g.mapSize, g.mapSize))
	for y := 0; y < g.mapSize; y++ {
		for x := 0; x < g.mapSize; x++ {
			v := g.ColumnSum(x, y) / maxCount
			if v > 1 {
				v = 1
			}
			img.SetGray(x, g.mapSize-1-y, color.Gray{Y: uint8(v * 255)})
		}
	}
	return img
}
