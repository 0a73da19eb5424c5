package ecg

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"radiology-bot/internal/domain/entity"
)

// Находки и статусы клинических метрик.
const (
	FindingBradycardia = "Sinus Bradycardia"
	FindingTachycardia = "Sinus Tachycardia"
	FindingNormal      = "Normal Sinus Rhythm"
	FindingReducedHRV  = "Reduced HR Variability (Check for Autonomic Dysfunction)"
	FindingPoorSignal  = "Insufficient signal quality"

	StatusPoorSignal      = "Poor Signal"
	StatusProcessingError = "Processing Error"
)

const (
	bradycardiaLimit = 60.0
	tachycardiaLimit = 100.0
	reducedSDNN      = 20.0
	// SDNN считается только при большем числе пиков
	minPeaksForHRV = 5
)

// Engine вычисляет клинические метрики по оцифрованному сигналу.
// Состояния не хранит, один экземпляр обслуживает все запросы.
type Engine struct {
	logger *slog.Logger
}

// NewEngine создаёт движок метрик.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Analyze очищает сигнал, находит R-зубцы и формирует метрики и находки.
func (e *Engine) Analyze(trace entity.ECGTrace) entity.ECGMetrics {
	metrics, err := e.analyze(trace)
	if err != nil {
		e.logger.Warn("ecg metrics failed", "error", err, "samples", len(trace.Samples))
		return entity.ECGMetrics{
			Values:   map[string]any{entity.MetricStatus: StatusProcessingError},
			Findings: []string{fmt.Sprintf("Error: %v", err)},
		}
	}
	return metrics
}

func (e *Engine) analyze(trace entity.ECGTrace) (entity.ECGMetrics, error) {
	cleaned, err := Clean(trace.Samples, trace.SamplingRate)
	if err != nil {
		return entity.ECGMetrics{}, fmt.Errorf("clean signal: %w", err)
	}

	peaks := CorrectArtifacts(DetectPeaks(cleaned, trace.SamplingRate))
	if len(peaks) < 2 {
		return entity.ECGMetrics{
			Values:   map[string]any{entity.MetricStatus: StatusPoorSignal},
			Findings: []string{FindingPoorSignal},
		}, nil
	}

	rate, err := RateSeries(peaks, trace.SamplingRate, len(cleaned))
	if err != nil {
		return entity.ECGMetrics{}, fmt.Errorf("rate: %w", err)
	}
	heartRate := stat.Mean(rate, nil)

	values := map[string]any{
		entity.MetricHeartRate: round(heartRate, 1),
		entity.MetricPeaks:     len(peaks),
	}
	findings := []string{ClassifyRhythm(heartRate)}

	if len(peaks) > minPeaksForHRV {
		sdnn := round(SDNN(peaks, trace.SamplingRate), 2)
		values[entity.MetricSDNN] = sdnn
		if sdnn < reducedSDNN {
			findings = append(findings, FindingReducedHRV)
		}
	}

	e.logger.Debug("ecg metrics computed", "peaks", len(peaks), "heart_rate", heartRate)
	return entity.ECGMetrics{Values: Sanitize(values), Findings: findings}, nil
}

// ClassifyRhythm относит среднюю ЧСС к брадикардии, тахикардии или норме.
func ClassifyRhythm(heartRate float64) string {
	switch {
	case heartRate < bradycardiaLimit:
		return FindingBradycardia
	case heartRate > tachycardiaLimit:
		return FindingTachycardia
	default:
		return FindingNormal
	}
}

// Sanitize заменяет NaN и бесконечности на "N/A".
func Sanitize(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			out[k] = entity.NotAvailable
			continue
		}
		out[k] = v
	}
	return out
}
