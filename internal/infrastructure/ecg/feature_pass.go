package ecg

import (
	"context"

	"radiology-bot/internal/domain/entity"
)

// NoopFeaturePass точка расширения для прохода фундаментальной модели по
// сигналу. Классификационная голова пока не подключена, находок нет.
type NoopFeaturePass struct{}

func (NoopFeaturePass) Findings(_ context.Context, _ entity.ECGTrace) ([]string, error) {
	return nil, nil
}
