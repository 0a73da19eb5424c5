package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"radiology-bot/internal/domain/port"
)

// Бэкенды исполнения моделей.
const (
	BackendKServe = "kserve"
	BackendONNX   = "onnx"
)

// Settings имена моделей и параметры бэкенда. Для KServe имена моделей
// на сервере, для ONNX имена файлов в ONNXDir. Пустое имя отключает модель.
type Settings struct {
	Backend   string
	KServeURL string
	Timeout   time.Duration
	ONNXDir   string

	Small       string
	Large       string
	Autoencoder string
	Attention   string
	Activation  string

	SmallSize     int
	LargeSize     int
	AttentionSize int

	Labels []string
}

// Models загруженные при старте модели. Отсутствующая модель равна nil.
type Models struct {
	Small       port.Classifier
	Large       port.Classifier
	Autoencoder port.Autoencoder
	Attention   port.AttentionModel
	Activation  port.ActivationModel

	closers []func() error
}

// Close освобождает ресурсы моделей.
func (m *Models) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Load загружает модели выбранного бэкенда. Ошибка отдельной модели не
// прерывает старт: модель остаётся nil, запросы к ней получат ErrModelUnavailable.
func Load(ctx context.Context, s Settings, logger *slog.Logger) (*Models, error) {
	switch s.Backend {
	case "", BackendKServe:
		return LoadKServe(ctx, s, logger), nil
	case BackendONNX:
		return LoadONNX(s, logger)
	default:
		return nil, fmt.Errorf("unknown model backend %q", s.Backend)
	}
}

// LoadKServe проверяет готовность моделей на сервере и собирает адаптеры.
func LoadKServe(ctx context.Context, s Settings, logger *slog.Logger) *Models {
	client := NewClient(s.KServeURL, s.Timeout)
	models := &Models{}

	ready := func(name string) bool {
		if name == "" {
			return false
		}
		if err := client.Ready(ctx, name); err != nil {
			logger.Warn("model unavailable", "backend", BackendKServe, "model", name, "error", err)
			return false
		}
		logger.Info("model ready", "backend", BackendKServe, "model", name)
		return true
	}

	if ready(s.Small) {
		models.Small = &kserveClassifier{client: client, name: s.Small, size: s.SmallSize, labels: s.Labels}
	}
	if ready(s.Large) {
		models.Large = &kserveClassifier{client: client, name: s.Large, size: s.LargeSize, labels: s.Labels}
	}
	if ready(s.Autoencoder) {
		models.Autoencoder = &kserveAutoencoder{client: client, name: s.Autoencoder}
	}
	if ready(s.Attention) {
		meta, err := client.Metadata(ctx, s.Attention)
		switch {
		case err != nil:
			logger.Warn("attention model metadata failed", "model", s.Attention, "error", err)
		case len(attentionOutputs(meta)) == 0:
			logger.Warn("attention model exposes no attention outputs", "model", s.Attention)
		default:
			models.Attention = &kserveAttention{
				client:  client,
				name:    s.Attention,
				size:    s.AttentionSize,
				outputs: attentionOutputs(meta),
			}
		}
	}
	if ready(s.Activation) {
		models.Activation = &kserveActivation{client: client, name: s.Activation, size: s.SmallSize}
	}
	return models
}
