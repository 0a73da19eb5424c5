package storage

import (
	"context"
	"log/slog"

	"radiology-bot/internal/domain/port"
)

// OpenObjectStorage выбирает бэкенд один раз при старте: S3, если он
// настроен и доступен, иначе локальный каталог.
func OpenObjectStorage(ctx context.Context, cfg S3Config, localDir string, logger *slog.Logger) (port.ObjectStorage, error) {
	if cfg.Endpoint != "" || cfg.AccessKey != "" {
		st, err := NewS3Storage(ctx, cfg)
		if err == nil {
			logger.Info("object storage ready", "backend", st.Backend(), "bucket", cfg.Bucket)
			return st, nil
		}
		logger.Warn("object storage unavailable, falling back to local storage",
			"endpoint", cfg.Endpoint, "dir", localDir, "error", err)
	}

	local, err := NewLocalStorage(localDir)
	if err != nil {
		return nil, err
	}
	logger.Info("object storage ready", "backend", local.Backend(), "dir", localDir)
	return local, nil
}
