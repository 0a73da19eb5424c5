package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode изображение не удалось декодировать.
	ErrDecode = errors.New("failed to decode image")
	// ErrInvalidPayload данные запроса не содержат изображения.
	ErrInvalidPayload = errors.New("invalid image data")
	// ErrSignalExtraction на ленте не найден сигнал ЭКГ.
	ErrSignalExtraction = errors.New("could not isolate a clear ECG signal from the image")
	// ErrModelUnavailable обязательная модель не загрузилась при старте.
	ErrModelUnavailable = errors.New("model not loaded")
	// ErrQuotaExceeded исчерпан лимит запусков анализа.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrObjectNotFound объект отсутствует в хранилище.
	ErrObjectNotFound = errors.New("object not found")
)

// OODError снимок не похож на рентген грудной клетки.
type OODError struct {
	Score     float64
	Threshold float64
}

func (e *OODError) Error() string {
	return fmt.Sprintf("Image does not appear to be a valid Chest X-Ray. (Error: %.0f)", e.Score)
}
