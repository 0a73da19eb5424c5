package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
)

// stripWithSine рисует ЭКГ-ленту: розовая сетка и однопиксельная синусоида.
func stripWithSine(w, h int, amplitude, period float64) *image.RGBA {
	img := uniform(w, h, color.White)
	grid := color.RGBA{R: 255, G: 190, B: 190, A: 255}
	for x := 0; x < w; x += 20 {
		for y := 0; y < h; y++ {
			img.Set(x, y, grid)
		}
	}
	for y := 0; y < h; y += 20 {
		for x := 0; x < w; x++ {
			img.Set(x, y, grid)
		}
	}
	for x := 0; x < w; x++ {
		y := int(math.Round(float64(h)/2 + amplitude*math.Sin(2*math.Pi*float64(x)/period)))
		img.Set(x, y, color.Black)
	}
	return img
}

func TestDigitize_Sine(t *testing.T) {
	raw := encodePNG(t, stripWithSine(400, 100, 20, 100))

	trace, err := Digitize(raw, DefaultSamplingRate)
	require.NoError(t, err)
	require.Equal(t, DefaultSamplingRate, trace.SamplingRate)
	require.Len(t, trace.Samples, 400)

	// строки изображения растут вниз, поэтому сигнал = -синусоида
	for x := 2; x < 398; x++ {
		want := -20 * math.Sin(2*math.Pi*float64(x)/100)
		require.InDelta(t, want, trace.Samples[x], 1.0, "column %d", x)
	}
}

func TestDigitize_NoInk(t *testing.T) {
	raw := encodePNG(t, uniform(200, 80, color.White))
	_, err := Digitize(raw, DefaultSamplingRate)
	require.True(t, errors.Is(err, entity.ErrSignalExtraction))
}

func TestDigitize_TooFewColumns(t *testing.T) {
	img := uniform(200, 80, color.White)
	for x := 0; x < 5; x++ {
		img.Set(x*30, 40, color.Black)
	}
	_, err := Digitize(encodePNG(t, img), DefaultSamplingRate)
	require.True(t, errors.Is(err, entity.ErrSignalExtraction))
}

func TestFillGaps(t *testing.T) {
	signal := []float64{0, 2, 0, 0, 8, 0}
	valid := []bool{false, true, false, false, true, false}
	fillGaps(signal, valid)
	require.Equal(t, []float64{2, 2, 4, 6, 8, 8}, signal)
}

func TestMovingAverage(t *testing.T) {
	out := movingAverage([]float64{5, 5, 5, 5, 5}, 5)
	require.InDeltaSlice(t, []float64{3, 4, 5, 4, 3}, out, 1e-9)
}

func TestRGBToHSV(t *testing.T) {
	h, s, v := rgbToHSV(255, 0, 0)
	require.InDelta(t, 0, h, 1e-9)
	require.InDelta(t, 255, s, 1e-9)
	require.InDelta(t, 255, v, 1e-9)

	h, _, _ = rgbToHSV(0, 0, 255)
	require.InDelta(t, 120, h, 1e-9)

	require.True(t, isInk(rgbToHSV(30, 30, 40)))
	require.False(t, isInk(rgbToHSV(255, 190, 190)))
}
