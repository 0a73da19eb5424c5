package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SaliencyRollout = "rollout"
	SaliencyGradCAM = "gradcam"
	SaliencyNone    = "none"
)

type Config struct {
	Env           string
	TelegramToken string
	HTTPAddr      string
	JWTSecret     string

	Models   ModelConfig
	Pipeline PipelineConfig
	Storage  StorageConfig

	DatabaseURL string
	MaxRuns     int
}

// ModelConfig где и под какими именами искать модели.
type ModelConfig struct {
	Backend          string
	KServeURL        string
	Timeout          time.Duration
	ONNXDir          string
	DenseNet         string
	ResNet           string
	Autoencoder      string
	ViT              string
	GradCAM          string
	SaliencyStrategy string
}

// PipelineConfig пороги конвейеров анализа.
type PipelineConfig struct {
	OODThreshold     float64
	FindingThreshold float64
	ECGSamplingRate  int
}

// StorageConfig объектное хранилище артефактов.
type StorageConfig struct {
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	LocalDir    string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var errs []string
	num := func(key string, def float64) float64 {
		v, err := floatEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	integer := func(key string, def int) int {
		v, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	timeout, err := time.ParseDuration(env("MODEL_TIMEOUT", "30s"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("MODEL_TIMEOUT: %v", err))
	}

	cfg := &Config{
		Env:           env("ENV", "development"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Models: ModelConfig{
			Backend:          strings.ToLower(env("MODEL_BACKEND", "kserve")),
			KServeURL:        env("KSERVE_URL", "http://localhost:8085"),
			Timeout:          timeout,
			ONNXDir:          env("ONNX_DIR", "models"),
			DenseNet:         env("DENSENET_MODEL", "densenet121-res224-all"),
			ResNet:           env("RESNET_MODEL", "resnet50-res512-all"),
			Autoencoder:      env("AUTOENCODER_MODEL", "resnet-ae-101-elastic"),
			ViT:              env("VIT_MODEL", "rad-dino"),
			GradCAM:          env("GRADCAM_MODEL", "densenet121-gradcam"),
			SaliencyStrategy: strings.ToLower(env("SALIENCY_STRATEGY", SaliencyRollout)),
		},
		Pipeline: PipelineConfig{
			OODThreshold:     num("OOD_THRESHOLD", 10000),
			FindingThreshold: num("FINDING_THRESHOLD", 0.15),
			ECGSamplingRate:  integer("ECG_SAMPLING_RATE", 250),
		},
		Storage: StorageConfig{
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey: os.Getenv("S3_SECRET_KEY"),
			S3Bucket:    env("S3_BUCKET", "radiology-artifacts"),
			S3Region:    env("S3_REGION", "us-east-1"),
			LocalDir:    env("LOCAL_STORAGE_DIR", "data/storage"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MaxRuns:     integer("MAX_RUNS", 50),
	}

	switch cfg.Models.SaliencyStrategy {
	case SaliencyRollout, SaliencyGradCAM, SaliencyNone:
	default:
		errs = append(errs, fmt.Sprintf("SALIENCY_STRATEGY: unknown value %q", cfg.Models.SaliencyStrategy))
	}
	if cfg.Pipeline.ECGSamplingRate <= 0 {
		errs = append(errs, "ECG_SAMPLING_RATE: must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func floatEnv(key string, def float64) (float64, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func intEnv(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
