package port

import (
	"context"

	"radiology-bot/internal/domain/entity"
)

// Classifier многометочный классификатор патологий на рентгенограмме.
// Реализации загружаются один раз и используются всеми запросами одновременно.
type Classifier interface {
	// Name короткое имя модели для model_info
	Name() string

	// InputSize сторона квадратного входа в пикселях
	InputSize() int

	// Labels словарь выходов модели
	Labels() []string

	// Logits возвращает сырые выходы по словарю Labels
	Logits(ctx context.Context, input entity.Tensor) ([]float64, error)
}

// Autoencoder восстанавливает вход для проверки на выход из распределения.
type Autoencoder interface {
	Reconstruct(ctx context.Context, input entity.Tensor) (entity.Tensor, error)
}

// AttentionModel трансформер, отдающий матрицы внимания всех слоёв.
type AttentionModel interface {
	InputSize() int

	// Attentions выполняет прямой проход и возвращает внимание слоёв по порядку
	Attentions(ctx context.Context, input entity.Tensor) ([]entity.AttentionLayer, error)
}

// ActivationModel свёрточная сеть, отдающая активации слоя и градиенты класса.
type ActivationModel interface {
	InputSize() int

	ActivationsAndGradients(ctx context.Context, input entity.Tensor, classIndex int) (*entity.ActivationTrace, error)
}

// FeaturePass проход фундаментальной модели по сигналу ЭКГ.
type FeaturePass interface {
	// Findings возвращает дополнительные находки по сигналу
	Findings(ctx context.Context, trace entity.ECGTrace) ([]string, error)
}
