package saliency

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"radiology-bot/internal/domain/entity"
)

const (
	// RolloutLayers сколько последних слоёв внимания участвует в свёртке
	RolloutLayers = 4

	sharpenPower = 3.0
	normEpsilon  = 1e-8
)

// Rollout сворачивает внимание последних n слоёв и возвращает квадратную
// сетку внимания CLS-токена на патчи, нормированную в [0,1].
func Rollout(layers []entity.AttentionLayer, n int) (*entity.SaliencyMap, error) {
	if len(layers) == 0 {
		return nil, errors.New("no attention layers")
	}
	if n <= 0 || n > len(layers) {
		n = len(layers)
	}

	tokens := layers[len(layers)-1].Tokens
	if tokens < 2 {
		return nil, fmt.Errorf("attention over %d tokens", tokens)
	}

	var rollout *mat.Dense
	for i := len(layers) - 1; i >= len(layers)-n; i-- {
		a, err := residualAttention(layers[i], tokens)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if rollout == nil {
			rollout = a
			continue
		}
		var next mat.Dense
		next.Mul(a, rollout)
		rollout = &next
	}

	// строка CLS без него самого
	cls := mat.Row(nil, 0, rollout)[1:]

	side := int(math.Sqrt(float64(len(cls))))
	if side == 0 {
		return nil, errors.New("attention has no patch tokens")
	}
	// регистровые токены идут перед патчами
	cls = cls[len(cls)-side*side:]

	values := make([]float64, len(cls))
	for i, v := range cls {
		values[i] = math.Pow(v, sharpenPower)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	floats.AddConst(-lo, values)
	floats.Scale(1/(hi-lo+normEpsilon), values)

	return &entity.SaliencyMap{Width: side, Height: side, Values: values}, nil
}

// residualAttention усредняет головы, добавляет единичную матрицу и нормирует строки.
func residualAttention(layer entity.AttentionLayer, tokens int) (*mat.Dense, error) {
	if layer.Tokens != tokens {
		return nil, fmt.Errorf("expected %d tokens, got %d", tokens, layer.Tokens)
	}
	if layer.Heads <= 0 || len(layer.Data) != layer.Heads*tokens*tokens {
		return nil, fmt.Errorf("malformed attention tensor: %d values for %d heads", len(layer.Data), layer.Heads)
	}

	a := mat.NewDense(tokens, tokens, nil)
	for h := 0; h < layer.Heads; h++ {
		head := mat.NewDense(tokens, tokens, layer.Data[h*tokens*tokens:(h+1)*tokens*tokens])
		a.Add(a, head)
	}
	a.Scale(1/float64(layer.Heads), a)

	for i := 0; i < tokens; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	a.Scale(0.5, a)

	for i := 0; i < tokens; i++ {
		row := a.RawRowView(i)
		sum := floats.Sum(row)
		if sum > 0 {
			floats.Scale(1/sum, row)
		}
	}
	return a, nil
}
