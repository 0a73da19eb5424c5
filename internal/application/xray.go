package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"radiology-bot/internal/domain/consensus"
	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
	"radiology-bot/internal/infrastructure/vision"
)

const (
	// DefaultOODThreshold ошибка реконструкции, начиная с которой снимок отклоняется
	DefaultOODThreshold = 10000.0
	// DefaultFindingThreshold ниже этой вероятности главная находка становится "No Findings"
	DefaultFindingThreshold = 0.15
	// individualConfidence порог уверенности каждой модели ансамбля
	individualConfidence = 0.6
)

// XRayModels модели рентгеновского конвейера. Любая из них может быть nil,
// если не загрузилась при старте.
type XRayModels struct {
	Small       port.Classifier
	Large       port.Classifier
	Autoencoder port.Autoencoder
}

// XRayService конвейер анализа рентгенограммы грудной клетки.
type XRayService struct {
	models           XRayModels
	strategy         port.SaliencyStrategy
	agent            *consensus.Agent
	oodThreshold     float64
	findingThreshold float64
	logger           *slog.Logger
}

// XRayOption настройка XRayService.
type XRayOption func(*XRayService)

// WithOODThreshold задаёт порог ошибки реконструкции. Неположительное
// значение оставляет порог по умолчанию.
func WithOODThreshold(v float64) XRayOption {
	return func(s *XRayService) {
		if v > 0 {
			s.oodThreshold = v
		}
	}
}

// WithFindingThreshold задаёт клинический порог главной находки.
func WithFindingThreshold(v float64) XRayOption {
	return func(s *XRayService) {
		if v > 0 {
			s.findingThreshold = v
		}
	}
}

// NewXRayService создаёт конвейер. strategy может быть nil: тогда вместо
// тепловой карты возвращается исходный снимок.
func NewXRayService(models XRayModels, strategy port.SaliencyStrategy, agent *consensus.Agent, logger *slog.Logger, opts ...XRayOption) *XRayService {
	if logger == nil {
		logger = slog.Default()
	}
	if agent == nil {
		agent = consensus.NewAgent(consensus.DefaultRules())
	}
	s := &XRayService{
		models:           models,
		strategy:         strategy,
		agent:            agent,
		oodThreshold:     DefaultOODThreshold,
		findingThreshold: DefaultFindingThreshold,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze выполняет полный конвейер над одним снимком.
// Отклонение по OOD возвращается как *entity.OODError.
func (s *XRayService) Analyze(ctx context.Context, raw []byte) (*entity.XRayReport, error) {
	small, large, ae := s.models.Small, s.models.Large, s.models.Autoencoder
	switch {
	case small == nil:
		return nil, fmt.Errorf("small classifier: %w", entity.ErrModelUnavailable)
	case large == nil:
		return nil, fmt.Errorf("large classifier: %w", entity.ErrModelUnavailable)
	case ae == nil:
		return nil, fmt.Errorf("autoencoder: %w", entity.ErrModelUnavailable)
	}

	pre, err := vision.Preprocess(raw, small.InputSize(), large.InputSize())
	if err != nil {
		return nil, err
	}

	score, err := s.oodScore(ctx, ae, pre.Small)
	if err != nil {
		return nil, err
	}
	if score >= s.oodThreshold {
		s.logger.Info("xray rejected as out of distribution", "ood_score", score, "threshold", s.oodThreshold)
		return nil, &entity.OODError{Score: score, Threshold: s.oodThreshold}
	}

	labels := small.Labels()
	if !sameVocabulary(labels, large.Labels()) {
		return nil, errors.New("classifiers use different vocabularies")
	}

	p1, err := probabilities(ctx, small, pre.Small)
	if err != nil {
		return nil, err
	}
	p2, err := probabilities(ctx, large, pre.Large)
	if err != nil {
		return nil, err
	}
	fused, err := Fuse(p1, p2)
	if err != nil {
		return nil, err
	}
	if len(fused) != len(labels) {
		return nil, fmt.Errorf("classifier returned %d scores for %d conditions", len(fused), len(labels))
	}

	idx, finding, prob, err := TopFinding(labels, fused, s.findingThreshold)
	if err != nil {
		return nil, err
	}

	predictions := make(map[string]float64, len(labels))
	for i, label := range labels {
		predictions[label] = fused[i]
	}

	saliencyMap := s.saliency(ctx, pre, idx)
	heatmap, pinpoint, err := renderSaliency(pre.Original, saliencyMap)
	if err != nil {
		return nil, err
	}

	verdict := s.agent.Review(finding, prob, saliencyMap)
	high := (p1[idx] > individualConfidence && p2[idx] > individualConfidence) ||
		prob < s.findingThreshold ||
		verdict.Status == entity.ConsensusApproved

	return &entity.XRayReport{
		Predictions:      predictions,
		Heatmap:          heatmap,
		Pinpoint:         pinpoint,
		TopFinding:       finding,
		TopProbability:   prob,
		Consensus:        verdict,
		IsHighConfidence: high,
		ModelInfo:        s.modelInfo(),
		OODScore:         score,
	}, nil
}

func (s *XRayService) oodScore(ctx context.Context, ae port.Autoencoder, input entity.Tensor) (float64, error) {
	recon, err := ae.Reconstruct(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("reconstruct: %w", err)
	}
	return ReconstructionError(input, recon)
}

// saliency строит карту; при ошибке стратегии анализ продолжается без неё.
func (s *XRayService) saliency(ctx context.Context, pre *vision.Preprocessed, classIndex int) *entity.SaliencyMap {
	if s.strategy == nil {
		s.logger.Warn("saliency strategy is not configured, using original image")
		return nil
	}
	m, err := s.strategy.Saliency(ctx, port.SaliencyRequest{
		Image:      pre.Original,
		Input:      pre.Small,
		Crop:       pre.Crop,
		ClassIndex: classIndex,
	})
	if err != nil {
		s.logger.Warn("saliency failed, using original image", "strategy", s.strategy.Name(), "error", err)
		return nil
	}
	return m
}

func (s *XRayService) modelInfo() string {
	info := fmt.Sprintf("Ensemble (%s + %s)", s.models.Small.Name(), s.models.Large.Name())
	if s.strategy != nil {
		info += " with " + s.strategy.Name()
	}
	return info
}

// ReconstructionError среднеквадратичная ошибка между входом и реконструкцией.
func ReconstructionError(input, recon entity.Tensor) (float64, error) {
	if input.Len() == 0 || input.Len() != recon.Len() {
		return 0, fmt.Errorf("reconstruction has %d values, input has %d", recon.Len(), input.Len())
	}
	d := floats.Distance(input.Float64(), recon.Float64(), 2)
	return d * d / float64(input.Len()), nil
}

// Fuse усредняет вероятности двух моделей ансамбля поэлементно.
func Fuse(p1, p2 []float64) ([]float64, error) {
	if len(p1) != len(p2) {
		return nil, fmt.Errorf("ensemble outputs differ in length: %d and %d", len(p1), len(p2))
	}
	out := make([]float64, len(p1))
	floats.AddTo(out, p1, p2)
	floats.Scale(0.5, out)
	return out, nil
}

// TopFinding возвращает индекс максимума (первый при равенстве), имя находки
// и её вероятность. Ниже порога находка заменяется на entity.NoFindings.
func TopFinding(labels []string, fused []float64, threshold float64) (int, string, float64, error) {
	if len(fused) == 0 || len(fused) != len(labels) {
		return 0, "", 0, fmt.Errorf("cannot pick top finding from %d scores and %d labels", len(fused), len(labels))
	}
	idx := floats.MaxIdx(fused)
	prob := fused[idx]
	if prob < threshold {
		return idx, entity.NoFindings, prob, nil
	}
	return idx, labels[idx], prob, nil
}

func probabilities(ctx context.Context, c port.Classifier, input entity.Tensor) ([]float64, error) {
	logits, err := c.Logits(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", c.Name(), err)
	}
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = sigmoid(v)
	}
	return out, nil
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func sameVocabulary(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// renderSaliency кодирует тепловую карту и прицельный фрагмент.
// Без карты оба изображения совпадают с исходным.
func renderSaliency(img image.Image, m *entity.SaliencyMap) ([]byte, []byte, error) {
	heat, pin := img, img
	if m != nil {
		var err error
		if heat, err = vision.Overlay(img, m); err != nil {
			return nil, nil, fmt.Errorf("overlay: %w", err)
		}
		if pin, err = vision.Pinpoint(img, m); err != nil {
			return nil, nil, fmt.Errorf("pinpoint: %w", err)
		}
	}
	heatmap, err := vision.EncodeJPEG(heat)
	if err != nil {
		return nil, nil, err
	}
	pinpoint, err := vision.EncodeJPEG(pin)
	if err != nil {
		return nil, nil, err
	}
	return heatmap, pinpoint, nil
}
