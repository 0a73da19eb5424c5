package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
	"radiology-bot/internal/infrastructure/ecg"
	"radiology-bot/internal/infrastructure/vision"
)

// minSignalSamples минимальная длина оцифрованного сигнала
const minSignalSamples = 100

const ecgModelInfo = "ECG Digitizer + Clinical Metrics Engine"

// ECGService конвейер анализа фото ЭКГ-ленты.
type ECGService struct {
	engine       *ecg.Engine
	features     port.FeaturePass
	quality      port.QualityGate
	samplingRate int
	logger       *slog.Logger
}

// NewECGService создаёт конвейер. features и quality необязательны.
func NewECGService(engine *ecg.Engine, features port.FeaturePass, quality port.QualityGate, samplingRate int, logger *slog.Logger) *ECGService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = ecg.NewEngine(logger)
	}
	if samplingRate <= 0 {
		samplingRate = vision.DefaultSamplingRate
	}
	return &ECGService{
		engine:       engine,
		features:     features,
		quality:      quality,
		samplingRate: samplingRate,
		logger:       logger,
	}
}

// Analyze оцифровывает ленту и считает клинические метрики.
func (s *ECGService) Analyze(ctx context.Context, raw []byte) (*entity.ECGReport, error) {
	warnings := s.checkQuality(ctx, raw)

	trace, err := vision.Digitize(raw, s.samplingRate)
	if err != nil {
		return nil, err
	}
	if len(trace.Samples) < minSignalSamples {
		return nil, fmt.Errorf("%w: only %d samples", entity.ErrSignalExtraction, len(trace.Samples))
	}

	var extra []string
	if s.features != nil {
		extra, err = s.features.Findings(ctx, trace)
		if err != nil {
			s.logger.Warn("ecg feature pass failed", "error", err)
			extra = nil
		}
	}

	metrics := s.engine.Analyze(trace)

	waveform, err := vision.Waveform(trace)
	if err != nil {
		return nil, fmt.Errorf("waveform: %w", err)
	}

	return &entity.ECGReport{
		SignalData:   trace.Samples,
		SamplingRate: trace.SamplingRate,
		Metrics:      metrics.Values,
		Findings:     mergeFindings(extra, metrics.Findings),
		Waveform:     waveform,
		ModelInfo:    ecgModelInfo,
		Warnings:     warnings,
	}, nil
}

func (s *ECGService) checkQuality(ctx context.Context, raw []byte) []string {
	if s.quality == nil {
		return nil
	}
	issues, err := s.quality.Check(ctx, raw)
	switch {
	case errors.Is(err, vision.ErrQualityUnavailable):
		s.logger.Debug("ecg quality check skipped", "reason", err)
		return nil
	case err != nil:
		s.logger.Warn("ecg quality check failed", "error", err)
		return nil
	}
	if len(issues) > 0 {
		s.logger.Info("ecg photo quality issues", "issues", issues)
	}
	return issues
}

// mergeFindings объединяет списки находок с сохранением порядка, без повторов.
func mergeFindings(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, f := range list {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// DecodeImagePayload декодирует изображение из base64 или data URL.
func DecodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, fmt.Errorf("%w: malformed data url", entity.ErrInvalidPayload)
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", entity.ErrInvalidPayload)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidPayload, err)
	}
	return data, nil
}
