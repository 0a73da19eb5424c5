package container

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"radiology-bot/config"
	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/infrastructure/model"
	"radiology-bot/internal/infrastructure/storage"
)

type stubAttention struct{}

func (stubAttention) InputSize() int { return 518 }

func (stubAttention) Attentions(context.Context, entity.Tensor) ([]entity.AttentionLayer, error) {
	return nil, nil
}

type stubActivation struct{}

func (stubActivation) InputSize() int { return 224 }

func (stubActivation) ActivationsAndGradients(context.Context, entity.Tensor, int) (*entity.ActivationTrace, error) {
	return nil, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectSaliency(t *testing.T) {
	models := &model.Models{Attention: stubAttention{}, Activation: stubActivation{}}
	logger := quietLogger()

	s := SelectSaliency(config.SaliencyRollout, models, logger)
	require.NotNil(t, s)
	require.Equal(t, "attention-rollout", s.Name())

	s = SelectSaliency(config.SaliencyGradCAM, models, logger)
	require.NotNil(t, s)
	require.Equal(t, "grad-cam", s.Name())

	require.Nil(t, SelectSaliency(config.SaliencyNone, models, logger))
	require.Nil(t, SelectSaliency(config.SaliencyRollout, &model.Models{}, logger))
}

func TestNew_WithoutModels(t *testing.T) {
	c := New(Deps{
		Users:    storage.NewMemoryUserRepository(),
		Usage:    storage.NewMemoryUsageTracker(5),
		Pipeline: config.PipelineConfig{OODThreshold: 10000, FindingThreshold: 0.15, ECGSamplingRate: 250},
		Saliency: config.SaliencyRollout,
		Logger:   quietLogger(),
	})
	require.NotNil(t, c.UserService)
	require.NotNil(t, c.ECGService)
	require.Nil(t, c.Saliency)

	_, err := c.CaseService.RunXRay(context.Background(), "u", []byte("x"))
	require.ErrorIs(t, err, entity.ErrModelUnavailable)
}
