package port

import (
	"context"
	"image"

	"radiology-bot/internal/domain/entity"
)

// SaliencyRequest данные одного запроса для построения карты внимания.
type SaliencyRequest struct {
	Image      image.Image     // исходное изображение после коррекции ориентации
	Input      entity.Tensor   // вход малого классификатора
	Crop       entity.Geometry // откуда вырезан Input
	ClassIndex int             // индекс главной находки в словаре
}

// SaliencyStrategy строит карту внимания, выровненную по исходному изображению.
type SaliencyStrategy interface {
	Name() string
	Saliency(ctx context.Context, req SaliencyRequest) (*entity.SaliencyMap, error)
}

// QualityGate проверка качества фото перед анализом.
type QualityGate interface {
	// Check возвращает замечания; они не прерывают анализ
	Check(ctx context.Context, raw []byte) ([]string, error)
}
