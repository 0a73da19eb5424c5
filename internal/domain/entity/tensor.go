package entity

// Tensor плотный массив float32 в порядке NCHW.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor выделяет нулевой тензор заданной формы.
func NewTensor(shape ...int) Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, n)}
}

// Len возвращает число элементов.
func (t Tensor) Len() int {
	return len(t.Data)
}

// Float64 копирует данные в []float64.
func (t Tensor) Float64() []float64 {
	out := make([]float64, len(t.Data))
	for i, v := range t.Data {
		out[i] = float64(v)
	}
	return out
}

// AttentionLayer матрицы внимания одного слоя трансформера: Heads x Tokens x Tokens.
type AttentionLayer struct {
	Heads  int
	Tokens int
	Data   []float64
}

// At возвращает вес внимания токена i на токен j в голове h.
func (a AttentionLayer) At(h, i, j int) float64 {
	return a.Data[(h*a.Tokens+i)*a.Tokens+j]
}

// ActivationTrace активации выбранного свёрточного слоя и градиенты
// целевого класса по ним. Живёт только в рамках одного запроса.
type ActivationTrace struct {
	Channels    int
	Height      int
	Width       int
	Activations []float64
	Gradients   []float64
}
