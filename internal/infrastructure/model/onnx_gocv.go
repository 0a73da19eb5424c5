//go:build gocv
// +build gocv

package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"radiology-bot/internal/domain/entity"
)

// onnxNet сеть OpenCV DNN. Net хранит вход между SetInput и Forward,
// поэтому проход защищён мьютексом.
type onnxNet struct {
	mu   sync.Mutex
	net  gocv.Net
	name string
}

func openNet(dir, file string) (*onnxNet, error) {
	path := filepath.Join(dir, file)
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load onnx model %s", path)
	}
	return &onnxNet{net: net, name: file}, nil
}

func (n *onnxNet) Close() error {
	return n.net.Close()
}

// forward выполняет проход; пустой список outputs означает выход по умолчанию.
func (n *onnxNet) forward(ctx context.Context, input entity.Tensor, outputs ...string) ([]InferOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := gocv.NewMatWithSizes(input.Shape, gocv.MatTypeCV32F)
	defer blob.Close()
	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	copy(data, input.Data)

	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	var mats []gocv.Mat
	if len(outputs) == 0 {
		mats = []gocv.Mat{n.net.Forward("")}
	} else {
		mats = n.net.ForwardLayers(outputs)
	}
	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()

	result := make([]InferOutput, 0, len(mats))
	for i := range mats {
		values, err := mats[i].DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("%s: read output: %w", n.name, err)
		}
		out := InferOutput{Shape: mats[i].Size(), Datatype: datatypeFP32, Data: make([]float64, len(values))}
		for j, v := range values {
			out.Data[j] = float64(v)
		}
		result = append(result, out)
	}
	return result, nil
}

// outputLayers имена выходных слоёв сети с заданным префиксом.
func (n *onnxNet) outputLayers(prefix string) []string {
	var names []string
	for _, id := range n.net.GetUnconnectedOutLayers() {
		layer := n.net.GetLayer(id)
		if name := layer.GetName(); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		layer.Close()
	}
	return names
}

type onnxClassifier struct {
	net    *onnxNet
	size   int
	labels []string
}

func (m *onnxClassifier) Name() string     { return strings.TrimSuffix(m.net.name, filepath.Ext(m.net.name)) }
func (m *onnxClassifier) InputSize() int   { return m.size }
func (m *onnxClassifier) Labels() []string { return m.labels }

func (m *onnxClassifier) Logits(ctx context.Context, input entity.Tensor) ([]float64, error) {
	outs, err := m.net.forward(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(outs[0].Data) != len(m.labels) {
		return nil, fmt.Errorf("%s: expected %d logits, got %d", m.net.name, len(m.labels), len(outs[0].Data))
	}
	return outs[0].Data, nil
}

type onnxAutoencoder struct {
	net *onnxNet
}

func (m *onnxAutoencoder) Reconstruct(ctx context.Context, input entity.Tensor) (entity.Tensor, error) {
	outs, err := m.net.forward(ctx, input)
	if err != nil {
		return entity.Tensor{}, err
	}
	if len(outs[0].Data) != input.Len() {
		return entity.Tensor{}, fmt.Errorf("%s: reconstruction has %d values, input %d", m.net.name, len(outs[0].Data), input.Len())
	}
	rec := entity.NewTensor(input.Shape...)
	for i, v := range outs[0].Data {
		rec.Data[i] = float32(v)
	}
	return rec, nil
}

type onnxAttention struct {
	net     *onnxNet
	size    int
	outputs []string
}

func (m *onnxAttention) InputSize() int { return m.size }

func (m *onnxAttention) Attentions(ctx context.Context, input entity.Tensor) ([]entity.AttentionLayer, error) {
	outs, err := m.net.forward(ctx, input, m.outputs...)
	if err != nil {
		return nil, err
	}
	layers := make([]entity.AttentionLayer, 0, len(outs))
	for i, out := range outs {
		layer, err := attentionLayer(out)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", m.net.name, m.outputs[i], err)
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// LoadONNX загружает модели из файлов ONNX через OpenCV DNN.
// Градиенты OpenCV не считает, Grad-CAM доступен только через KServe.
func LoadONNX(s Settings, logger *slog.Logger) (*Models, error) {
	if s.ONNXDir == "" {
		return nil, errors.New("ONNX_DIR is required for onnx backend")
	}
	models := &Models{}

	open := func(file string) *onnxNet {
		if file == "" {
			return nil
		}
		net, err := openNet(s.ONNXDir, file)
		if err != nil {
			logger.Warn("model unavailable", "backend", BackendONNX, "model", file, "error", err)
			return nil
		}
		models.closers = append(models.closers, net.Close)
		logger.Info("model loaded", "backend", BackendONNX, "model", file)
		return net
	}

	if net := open(s.Small); net != nil {
		models.Small = &onnxClassifier{net: net, size: s.SmallSize, labels: s.Labels}
	}
	if net := open(s.Large); net != nil {
		models.Large = &onnxClassifier{net: net, size: s.LargeSize, labels: s.Labels}
	}
	if net := open(s.Autoencoder); net != nil {
		models.Autoencoder = &onnxAutoencoder{net: net}
	}
	if net := open(s.Attention); net != nil {
		outputs := net.outputLayers(AttentionPrefix)
		if len(outputs) == 0 {
			logger.Warn("attention model exposes no attention outputs", "model", s.Attention)
		} else {
			models.Attention = &onnxAttention{net: net, size: s.AttentionSize, outputs: outputs}
		}
	}
	if s.Activation != "" {
		logger.Warn("activation model requires the kserve backend", "model", s.Activation)
	}
	return models, nil
}
