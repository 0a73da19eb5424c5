package vision

import "errors"

// ErrQualityUnavailable проверка качества требует сборки с OpenCV.
var ErrQualityUnavailable = errors.New("gocv build tag is not enabled")

// QualityGate проверяет фото бумажной ленты: размер, резкость, пересвет,
// недосвет и блики. Замечания не прерывают анализ.
type QualityGate struct {
	MinImageSide          int
	MinSharpnessEdgeRatio float64
	MaxOverexposedRatio   float64
	MaxUnderexposedRatio  float64
	MaxGlareRatio         float64
}

// NewQualityGate создаёт проверку с порогами для фото с телефона.
func NewQualityGate() *QualityGate {
	return &QualityGate{
		MinImageSide:          200,
		MinSharpnessEdgeRatio: 0.008,
		MaxOverexposedRatio:   0.35,
		MaxUnderexposedRatio:  0.45,
		MaxGlareRatio:         0.08,
	}
}
