package vision

import (
	"image/color"
	"math"
)

const (
	// фон с вниманием ниже порога не окрашивается
	displayThreshold = 0.15
	// непрозрачность цветовой карты над снимком
	overlayAlpha = 0.75

	// ядра размытия 15x15 и 31x31 в пересчёте на sigma
	heatSigma = 2.6
	maskSigma = 5.0
)

// Jet раскрашивает значение [0,1] палитрой JET.
func Jet(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	channel := func(center float64) uint8 {
		c := 1.5 - math.Abs(4*v-center)
		c = math.Max(0, math.Min(1, c))
		return uint8(math.Round(c * 255))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 255}
}

func blend(base, over uint8, alpha float64) uint8 {
	return uint8(math.Round(float64(base)*(1-alpha) + float64(over)*alpha))
}
