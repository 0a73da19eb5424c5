//go:build !gocv
// +build !gocv

package vision

import "image/color"

// extractInk декодирует ленту и выделяет пиксели чернил.
func extractInk(raw []byte) (*inkMask, error) {
	img, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	m := &inkMask{width: b.Dx(), height: b.Dy(), ink: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			h, s, v := rgbToHSV(float64(c.R), float64(c.G), float64(c.B))
			m.ink[y*m.width+x] = isInk(h, s, v)
		}
	}
	return m, nil
}
