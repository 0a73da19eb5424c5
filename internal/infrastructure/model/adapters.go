package model

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"radiology-bot/internal/domain/entity"
)

const (
	inputName       = "input"
	targetClassName = "target_class"

	outputActivations = "activations"
	outputGradients   = "gradients"

	// AttentionPrefix префикс выходов с матрицами внимания слоёв
	AttentionPrefix = "attentions"

	datatypeFP32  = "FP32"
	datatypeINT64 = "INT64"
)

func tensorInput(name string, t entity.Tensor) InferInput {
	return InferInput{Name: name, Shape: t.Shape, Datatype: datatypeFP32, Data: t.Data}
}

func elements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// kserveClassifier классификатор на модельном сервере.
type kserveClassifier struct {
	client *Client
	name   string
	size   int
	labels []string
}

func (m *kserveClassifier) Name() string     { return m.name }
func (m *kserveClassifier) InputSize() int   { return m.size }
func (m *kserveClassifier) Labels() []string { return m.labels }

func (m *kserveClassifier) Logits(ctx context.Context, input entity.Tensor) ([]float64, error) {
	outputs, err := m.client.Infer(ctx, m.name, []InferInput{tensorInput(inputName, input)})
	if err != nil {
		return nil, err
	}
	out, err := single(outputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	if len(out.Data) != len(m.labels) {
		return nil, fmt.Errorf("%s: expected %d logits, got %d", m.name, len(m.labels), len(out.Data))
	}
	return out.Data, nil
}

// kserveAutoencoder автоэнкодер на модельном сервере.
type kserveAutoencoder struct {
	client *Client
	name   string
}

func (m *kserveAutoencoder) Reconstruct(ctx context.Context, input entity.Tensor) (entity.Tensor, error) {
	outputs, err := m.client.Infer(ctx, m.name, []InferInput{tensorInput(inputName, input)})
	if err != nil {
		return entity.Tensor{}, err
	}
	out, err := single(outputs)
	if err != nil {
		return entity.Tensor{}, fmt.Errorf("%s: %w", m.name, err)
	}
	if len(out.Data) != input.Len() {
		return entity.Tensor{}, fmt.Errorf("%s: reconstruction has %d values, input %d", m.name, len(out.Data), input.Len())
	}

	rec := entity.NewTensor(input.Shape...)
	for i, v := range out.Data {
		rec.Data[i] = float32(v)
	}
	return rec, nil
}

// kserveAttention трансформер, отдающий внимание всех слоёв отдельными выходами.
type kserveAttention struct {
	client  *Client
	name    string
	size    int
	outputs []string // по порядку слоёв
}

func (m *kserveAttention) InputSize() int { return m.size }

func (m *kserveAttention) Attentions(ctx context.Context, input entity.Tensor) ([]entity.AttentionLayer, error) {
	outputs, err := m.client.Infer(ctx, m.name, []InferInput{tensorInput(inputName, input)}, m.outputs...)
	if err != nil {
		return nil, err
	}

	layers := make([]entity.AttentionLayer, 0, len(m.outputs))
	for _, name := range m.outputs {
		layer, err := attentionLayer(outputs[name])
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", m.name, name, err)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// attentionLayer разбирает выход формы [1, heads, tokens, tokens].
func attentionLayer(out InferOutput) (entity.AttentionLayer, error) {
	s := out.Shape
	if len(s) != 4 || s[0] != 1 || s[2] != s[3] {
		return entity.AttentionLayer{}, fmt.Errorf("unexpected attention shape %v", s)
	}
	if len(out.Data) != elements(s) {
		return entity.AttentionLayer{}, fmt.Errorf("attention shape %v with %d values", s, len(out.Data))
	}
	return entity.AttentionLayer{Heads: s[1], Tokens: s[2], Data: out.Data}, nil
}

// attentionOutputs выбирает из метаданных выходы внимания и упорядочивает по номеру слоя.
func attentionOutputs(meta *Metadata) []string {
	var names []string
	for _, out := range meta.Outputs {
		if strings.HasPrefix(out.Name, AttentionPrefix) {
			names = append(names, out.Name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return layerIndex(names[i]) < layerIndex(names[j])
	})
	return names
}

func layerIndex(name string) int {
	n, digits := 0, false
	for _, r := range name[len(AttentionPrefix):] {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			digits = true
		}
	}
	if !digits {
		return -1
	}
	return n
}

// kserveActivation свёрточная сеть с выходами активаций и градиентов целевого класса.
// Градиенты считает сервер, состояние запроса в клиенте не хранится.
type kserveActivation struct {
	client *Client
	name   string
	size   int
}

func (m *kserveActivation) InputSize() int { return m.size }

func (m *kserveActivation) ActivationsAndGradients(ctx context.Context, input entity.Tensor, classIndex int) (*entity.ActivationTrace, error) {
	inputs := []InferInput{
		tensorInput(inputName, input),
		{Name: targetClassName, Shape: []int{1}, Datatype: datatypeINT64, Data: []int64{int64(classIndex)}},
	}
	outputs, err := m.client.Infer(ctx, m.name, inputs, outputActivations, outputGradients)
	if err != nil {
		return nil, err
	}

	act, grad := outputs[outputActivations], outputs[outputGradients]
	if len(act.Shape) != 4 || fmt.Sprint(act.Shape) != fmt.Sprint(grad.Shape) {
		return nil, fmt.Errorf("%s: activation shape %v, gradient shape %v", m.name, act.Shape, grad.Shape)
	}
	if len(act.Data) != elements(act.Shape) || len(grad.Data) != len(act.Data) {
		return nil, fmt.Errorf("%s: activation tensors are truncated", m.name)
	}
	return &entity.ActivationTrace{
		Channels:    act.Shape[1],
		Height:      act.Shape[2],
		Width:       act.Shape[3],
		Activations: act.Data,
		Gradients:   grad.Data,
	}, nil
}

func single(outputs map[string]InferOutput) (InferOutput, error) {
	if len(outputs) != 1 {
		return InferOutput{}, fmt.Errorf("expected one output, got %d", len(outputs))
	}
	for _, out := range outputs {
		return out, nil
	}
	return InferOutput{}, nil
}
