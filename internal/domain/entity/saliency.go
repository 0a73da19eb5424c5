package entity

// SaliencyMap двумерная карта неотрицательных весов внимания в [0,1],
// хранится построчно.
type SaliencyMap struct {
	Width  int
	Height int
	Values []float64
}

// NewSaliencyMap создаёт нулевую карту.
func NewSaliencyMap(width, height int) *SaliencyMap {
	return &SaliencyMap{Width: width, Height: height, Values: make([]float64, width*height)}
}

// At возвращает значение в точке (x, y).
func (s *SaliencyMap) At(x, y int) float64 {
	return s.Values[y*s.Width+x]
}

// Set записывает значение в точку (x, y).
func (s *SaliencyMap) Set(x, y int, v float64) {
	s.Values[y*s.Width+x] = v
}

// Peak возвращает координаты первого (построчно) максимума карты.
func (s *SaliencyMap) Peak() (x, y int) {
	best := 0
	for i, v := range s.Values {
		if v > s.Values[best] {
			best = i
		}
	}
	return best % s.Width, best / s.Width
}

// NormalizedPeak возвращает координаты максимума в долях ширины и высоты.
func (s *SaliencyMap) NormalizedPeak() (x, y float64) {
	px, py := s.Peak()
	return float64(px) / float64(s.Width), float64(py) / float64(s.Height)
}
