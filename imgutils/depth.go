package imgutils

import (
	"image"
	"math"
)

// DepthFromGray16 reads a 16-bit grayscale depth image into rows of depths
// in meters. unitsPerMeter is the encoding's integer units per meter (1000
// for millimeter PNGs). A zero pixel means no reading and becomes NaN.
func DepthFromGray16(img image.Image, unitsPerMeter float64) [][]float64 {
	bounds := img.Bounds()

	rows := make([][]float64, bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := make([]float64, bounds.Dx())
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			raw, _, _, _ := img.At(x, y).RGBA()
			if raw == 0 {
				row[x-bounds.Min.X] = math.NaN()
				continue
			}
			row[x-bounds.Min.X] = float64(raw) / unitsPerMeter
		}
		rows[y-bounds.Min.Y] = row
	}
	return rows
}

// MeanDepth averages the valid readings in rows of depths, skipping NaN.
// Returns NaN when there are no valid readings at all.
func MeanDepth(rows [][]float64) float64 {
	total := 0.0
	numValid := 0.0

	for _, row := range rows {
		for _, d := range row {
			if math.IsNaN(d) {
				continue
			}
			total += d
			numValid++
		}
	}

	if numValid == 0 {
		return math.NaN()
	}
	return total / numValid
}
