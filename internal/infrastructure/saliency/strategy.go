package saliency

import (
	"context"
	"fmt"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
	"radiology-bot/internal/infrastructure/vision"
)

// Нормализация входа rad-dino.
var (
	RadDinoMean = [3]float64{0.5307, 0.5307, 0.5307}
	RadDinoStd  = [3]float64{0.2583, 0.2583, 0.2583}
)

// AttentionRollout карта внимания трансформера. Снимок растягивается на вход
// модели целиком, поэтому карта ложится на весь кадр.
type AttentionRollout struct {
	model  port.AttentionModel
	mean   [3]float64
	std    [3]float64
	layers int
}

// NewAttentionRollout создаёт стратегию поверх модели внимания.
func NewAttentionRollout(model port.AttentionModel, mean, std [3]float64) *AttentionRollout {
	return &AttentionRollout{model: model, mean: mean, std: std, layers: RolloutLayers}
}

func (s *AttentionRollout) Name() string {
	return "attention-rollout"
}

func (s *AttentionRollout) Saliency(ctx context.Context, req port.SaliencyRequest) (*entity.SaliencyMap, error) {
	input := vision.RGBTensor(req.Image, s.model.InputSize(), s.mean, s.std)

	layers, err := s.model.Attentions(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("attention forward pass: %w", err)
	}

	grid, err := Rollout(layers, s.layers)
	if err != nil {
		return nil, fmt.Errorf("attention rollout: %w", err)
	}

	b := req.Image.Bounds()
	return Align(grid, entity.FullGeometry(b.Dx(), b.Dy()))
}

// GradientActivation Grad-CAM по свёрточному классификатору. Работает на том же
// входе, что и малый классификатор, и выравнивается по центральному кропу.
type GradientActivation struct {
	model port.ActivationModel
}

// NewGradientActivation создаёт стратегию поверх модели с градиентами.
func NewGradientActivation(model port.ActivationModel) *GradientActivation {
	return &GradientActivation{model: model}
}

func (s *GradientActivation) Name() string {
	return "grad-cam"
}

func (s *GradientActivation) Saliency(ctx context.Context, req port.SaliencyRequest) (*entity.SaliencyMap, error) {
	if n := len(req.Input.Shape); n != 4 || req.Input.Shape[n-1] != s.model.InputSize() {
		return nil, fmt.Errorf("input shape %v does not match model input %d", req.Input.Shape, s.model.InputSize())
	}

	// активации и градиенты принадлежат запросу и не сохраняются в модели
	trace, err := s.model.ActivationsAndGradients(ctx, req.Input, req.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("activation pass: %w", err)
	}

	grid, err := GradCAM(trace)
	if err != nil {
		return nil, err
	}
	return Align(grid, req.Crop)
}
