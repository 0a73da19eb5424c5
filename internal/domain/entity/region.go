package entity

import "image"

// Region прямоугольная область на исходном изображении
type Region struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
}

// Center возвращает координаты центра области
func (r Region) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Rect переводит область в image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Geometry связывает вход модели с исходным изображением: вход получен
// из области Region исходного изображения размером Width x Height.
type Geometry struct {
	Width  int
	Height int
	Region image.Rectangle
}

// FullGeometry описывает вход, полученный растяжением всего изображения.
func FullGeometry(width, height int) Geometry {
	return Geometry{Width: width, Height: height, Region: image.Rect(0, 0, width, height)}
}
