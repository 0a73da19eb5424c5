package vision

import "math"

// rgbToHSV переводит RGB (0-255) в HSV в соглашении OpenCV: H 0-180, S и V 0-255.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0
	if maxC > 0 {
		s = diff / maxC * 255.0
	}

	switch {
	case diff == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/diff, 6)
	case maxC == g:
		h = 60 * ((b-r)/diff + 2)
	default:
		h = 60 * ((r-g)/diff + 4)
	}
	if h < 0 {
		h += 360
	}
	return h / 2, s, v
}

// Диапазон HSV для тёмных чернил кривой: любой тон и насыщенность, яркость до 120.
var (
	inkLower = [3]float64{0, 0, 0}
	inkUpper = [3]float64{180, 255, 120}
)

func isInk(h, s, v float64) bool {
	return h >= inkLower[0] && h <= inkUpper[0] &&
		s >= inkLower[1] && s <= inkUpper[1] &&
		v >= inkLower[2] && v <= inkUpper[2]
}

// inkMask бинарная маска чернил, построчно.
type inkMask struct {
	width  int
	height int
	ink    []bool
}

func (m *inkMask) at(x, y int) bool {
	return m.ink[y*m.width+x]
}
