package container

import (
	"log/slog"

	"radiology-bot/config"
	app "radiology-bot/internal/application"
	"radiology-bot/internal/domain/consensus"
	"radiology-bot/internal/domain/port"
	"radiology-bot/internal/infrastructure/ecg"
	"radiology-bot/internal/infrastructure/model"
	"radiology-bot/internal/infrastructure/saliency"
	"radiology-bot/internal/infrastructure/vision"
)

// Deps внешние зависимости, созданные при старте.
type Deps struct {
	Users    port.UserRepository
	Models   *model.Models
	Storage  port.ObjectStorage
	Usage    port.UsageTracker
	Pipeline config.PipelineConfig
	Saliency string
	Logger   *slog.Logger
}

type Container struct {
	UserService *app.UserService
	XRayService *app.XRayService
	ECGService  *app.ECGService
	CaseService *app.CaseService
	Saliency    port.SaliencyStrategy
}

func New(d Deps) *Container {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	models := d.Models
	if models == nil {
		models = &model.Models{}
	}

	strategy := SelectSaliency(d.Saliency, models, logger)

	xray := app.NewXRayService(
		app.XRayModels{Small: models.Small, Large: models.Large, Autoencoder: models.Autoencoder},
		strategy,
		consensus.NewAgent(consensus.DefaultRules()),
		logger.With("pipeline", "xray"),
		app.WithOODThreshold(d.Pipeline.OODThreshold),
		app.WithFindingThreshold(d.Pipeline.FindingThreshold),
	)
	ecgService := app.NewECGService(
		ecg.NewEngine(logger.With("component", "ecg-metrics")),
		ecg.NoopFeaturePass{},
		vision.NewQualityGate(),
		d.Pipeline.ECGSamplingRate,
		logger.With("pipeline", "ecg"),
	)

	return &Container{
		UserService: app.NewUserService(d.Users),
		XRayService: xray,
		ECGService:  ecgService,
		CaseService: app.NewCaseService(xray, ecgService, d.Storage, d.Usage, logger.With("component", "cases")),
		Saliency:    strategy,
	}
}

// SelectSaliency выбирает стратегию карты внимания один раз при старте.
// Если нужная модель не загрузилась, стратегии нет и анализ идёт без карты.
func SelectSaliency(name string, models *model.Models, logger *slog.Logger) port.SaliencyStrategy {
	switch name {
	case config.SaliencyRollout:
		if models.Attention != nil {
			return saliency.NewAttentionRollout(models.Attention, saliency.RadDinoMean, saliency.RadDinoStd)
		}
	case config.SaliencyGradCAM:
		if models.Activation != nil {
			return saliency.NewGradientActivation(models.Activation)
		}
	case config.SaliencyNone:
		return nil
	}
	logger.Warn("saliency model is not loaded, heatmaps are disabled", "strategy", name)
	return nil
}
