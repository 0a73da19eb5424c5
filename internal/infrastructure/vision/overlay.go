//go:build !gocv
// +build !gocv

package vision

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"radiology-bot/internal/domain/entity"
)

// Overlay накладывает карту внимания на снимок. Слабое внимание маскируется,
// чтобы весь снимок не заливался синим цветом палитры.
func Overlay(img image.Image, saliency *entity.SaliencyMap) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if saliency.Width != w || saliency.Height != h {
		return nil, errors.New("saliency map does not match image geometry")
	}

	heat := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range saliency.Values {
		heat.Pix[i] = uint8(v*255 + 0.5)
	}
	smooth := imaging.Blur(heat, heatSigma)

	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		if float64(smooth.Pix[i*4])/255 > displayThreshold {
			mask.Pix[i] = 255
		}
	}
	softMask := imaging.Blur(mask, maskSigma)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			alpha := float64(softMask.Pix[i*4]) / 255 * overlayAlpha
			jet := Jet(float64(smooth.Pix[i*4]) / 255)
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{
				R: blend(c.R, jet.R, alpha),
				G: blend(c.G, jet.G, alpha),
				B: blend(c.B, jet.B, alpha),
				A: 255,
			})
		}
	}
	return out, nil
}
