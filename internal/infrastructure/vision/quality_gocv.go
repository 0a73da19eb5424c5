//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"radiology-bot/internal/domain/entity"
)

// Check возвращает список замечаний к качеству снимка.
func (g *QualityGate) Check(ctx context.Context, raw []byte) ([]string, error) {
	_ = ctx
	mat, err := decodeToMat(raw)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	var issues []string
	if mat.Cols() < g.MinImageSide || mat.Rows() < g.MinImageSide {
		issues = append(issues, fmt.Sprintf("image is too small (%dx%d)", mat.Cols(), mat.Rows()))
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)
	if r := ratioOfMask(edges); r < g.MinSharpnessEdgeRatio {
		issues = append(issues, fmt.Sprintf("image is blurry (edge_ratio=%.4f)", r))
	}

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	if r := ratioOfMask(bright); r > g.MaxOverexposedRatio {
		issues = append(issues, fmt.Sprintf("overexposed image (ratio=%.4f)", r))
	}

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 20, 255, gocv.ThresholdBinaryInv)
	if r := ratioOfMask(dark); r > g.MaxUnderexposedRatio {
		issues = append(issues, fmt.Sprintf("underexposed image (ratio=%.4f)", r))
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)
	channels := gocv.Split(hsv)
	for i := range channels {
		defer channels[i].Close()
	}
	if len(channels) < 3 {
		return issues, nil
	}

	// блик: малая насыщенность при почти максимальной яркости
	lowSat := gocv.NewMat()
	defer lowSat.Close()
	gocv.Threshold(channels[1], &lowSat, 40, 255, gocv.ThresholdBinaryInv)

	highVal := gocv.NewMat()
	defer highVal.Close()
	gocv.Threshold(channels[2], &highVal, 245, 255, gocv.ThresholdBinary)

	glare := gocv.NewMat()
	defer glare.Close()
	gocv.BitwiseAnd(lowSat, highVal, &glare)
	if r := ratioOfMask(glare); r > g.MaxGlareRatio {
		issues = append(issues, fmt.Sprintf("too much glare (ratio=%.4f)", r))
	}

	return issues, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), fmt.Errorf("%w: opencv could not decode image", entity.ErrDecode)
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
