package saliency

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"radiology-bot/internal/domain/entity"
)

// Align переносит сетку внимания на геометрию исходного снимка: сетка
// билинейно растягивается на область, из которой был получен вход модели,
// остальное полотно остаётся нулевым.
func Align(grid *entity.SaliencyMap, geo entity.Geometry) (*entity.SaliencyMap, error) {
	if grid.Width == 0 || grid.Height == 0 {
		return nil, errors.New("empty saliency grid")
	}
	if geo.Width <= 0 || geo.Height <= 0 || geo.Region.Empty() {
		return nil, errors.New("empty target geometry")
	}

	src := image.NewGray16(image.Rect(0, 0, grid.Width, grid.Height))
	for i, v := range grid.Values {
		v = math.Max(0, math.Min(1, v))
		src.SetGray16(i%grid.Width, i/grid.Width, color.Gray16{Y: uint16(v*math.MaxUint16 + 0.5)})
	}

	canvas := image.NewGray16(image.Rect(0, 0, geo.Width, geo.Height))
	draw.BiLinear.Scale(canvas, geo.Region, src, src.Bounds(), draw.Src, nil)

	out := entity.NewSaliencyMap(geo.Width, geo.Height)
	for y := 0; y < geo.Height; y++ {
		for x := 0; x < geo.Width; x++ {
			out.Set(x, y, float64(canvas.Gray16At(x, y).Y)/math.MaxUint16)
		}
	}
	return out, nil
}
