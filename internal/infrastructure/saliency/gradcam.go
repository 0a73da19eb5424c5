package saliency

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"radiology-bot/internal/domain/entity"
)

// GradCAM взвешивает каналы активаций средним градиентом, суммирует по каналам,
// отбрасывает отрицательные значения и нормирует на максимум.
func GradCAM(trace *entity.ActivationTrace) (*entity.SaliencyMap, error) {
	plane := trace.Height * trace.Width
	size := trace.Channels * plane
	if plane == 0 || len(trace.Activations) != size || len(trace.Gradients) != size {
		return nil, fmt.Errorf("malformed activation trace %dx%dx%d", trace.Channels, trace.Height, trace.Width)
	}

	cam := make([]float64, plane)
	for c := 0; c < trace.Channels; c++ {
		weight := stat.Mean(trace.Gradients[c*plane:(c+1)*plane], nil)
		floats.AddScaled(cam, weight, trace.Activations[c*plane:(c+1)*plane])
	}

	for i, v := range cam {
		if v < 0 {
			cam[i] = 0
		}
	}
	if top := floats.Max(cam); top > 0 {
		floats.Scale(1/top, cam)
	}

	return &entity.SaliencyMap{Width: trace.Width, Height: trace.Height, Values: cam}, nil
}
