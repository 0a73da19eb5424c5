//go:build gocv
// +build gocv

package vision

import (
	"gocv.io/x/gocv"
)

// extractInk декодирует ленту через OpenCV и выделяет пиксели чернил в HSV.
func extractInk(raw []byte) (*inkMask, error) {
	mat, err := decodeToMat(raw)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(inkLower[0], inkLower[1], inkLower[2], 0)
	upper := gocv.NewScalar(inkUpper[0], inkUpper[1], inkUpper[2], 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	m := &inkMask{width: mask.Cols(), height: mask.Rows(), ink: make([]bool, mask.Cols()*mask.Rows())}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			m.ink[y*m.width+x] = mask.GetUCharAt(y, x) > 127
		}
	}
	return m, nil
}
