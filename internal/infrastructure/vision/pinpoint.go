package vision

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"radiology-bot/internal/domain/entity"
)

// доля меньшей стороны снимка, которую занимает кроп вокруг пика
const pinpointFraction = 0.4

// PinpointRegion квадрат вокруг пика, обрезанный по границам снимка.
func PinpointRegion(width, height, peakX, peakY int) entity.Region {
	size := int(float64(min(width, height)) * pinpointFraction)
	left := max(0, peakX-size/2)
	top := max(0, peakY-size/2)
	right := min(width, left+size)
	bottom := min(height, top+size)
	return entity.Region{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Pinpoint вырезает область максимального внимания.
func Pinpoint(img image.Image, saliency *entity.SaliencyMap) (image.Image, error) {
	b := img.Bounds()
	if saliency.Width != b.Dx() || saliency.Height != b.Dy() {
		return nil, errors.New("saliency map does not match image geometry")
	}
	x, y := saliency.Peak()
	r := PinpointRegion(b.Dx(), b.Dy(), x, y)
	return imaging.Crop(img, r.Rect().Add(b.Min)), nil
}
