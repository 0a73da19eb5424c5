package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
)

func TestPinpointRegion(t *testing.T) {
	// по центру
	r := PinpointRegion(200, 100, 100, 50)
	require.Equal(t, entity.Region{X: 80, Y: 30, Width: 40, Height: 40}, r)

	// у края кроп обрезается границами снимка
	r = PinpointRegion(100, 50, 95, 5)
	require.Equal(t, entity.Region{X: 85, Y: 0, Width: 15, Height: 20}, r)
}

func TestPinpoint(t *testing.T) {
	img := uniform(100, 80, color.Gray{Y: 100})
	sal := entity.NewSaliencyMap(100, 80)
	sal.Set(10, 70, 1)

	crop, err := Pinpoint(img, sal)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 32, 26), crop.Bounds())

	_, err = Pinpoint(img, entity.NewSaliencyMap(10, 10))
	require.Error(t, err)
}
