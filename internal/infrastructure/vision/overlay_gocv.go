//go:build gocv
// +build gocv

package vision

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"radiology-bot/internal/domain/entity"
)

// Overlay накладывает карту внимания на снимок средствами OpenCV.
func Overlay(img image.Image, saliency *entity.SaliencyMap) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if saliency.Width != w || saliency.Height != h {
		return nil, errors.New("saliency map does not match image geometry")
	}

	heat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV32F, float32Bytes(saliency.Values))
	if err != nil {
		return nil, err
	}
	defer heat.Close()

	smooth := gocv.NewMat()
	defer smooth.Close()
	gocv.GaussianBlur(heat, &smooth, image.Pt(15, 15), 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(smooth, &mask, displayThreshold, 1, gocv.ThresholdBinary)

	softMask := gocv.NewMat()
	defer softMask.Close()
	gocv.GaussianBlur(mask, &softMask, image.Pt(31, 31), 0, 0, gocv.BorderDefault)

	heat8 := gocv.NewMat()
	defer heat8.Close()
	smooth.ConvertToWithParams(&heat8, gocv.MatTypeCV8U, 255, 0)

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(heat8, &colored, gocv.ColormapJet)

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha := float64(softMask.GetFloatAt(y, x)) * overlayAlpha
			jet := colored.GetVecbAt(y, x) // BGR
			orig := src.GetVecbAt(y, x)    // BGR
			out.SetRGBA(x, y, color.RGBA{
				R: blend(orig[2], jet[2], alpha),
				G: blend(orig[1], jet[1], alpha),
				B: blend(orig[0], jet[0], alpha),
				A: 255,
			})
		}
	}
	return out, nil
}

func float32Bytes(values []float64) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}
