package port

import (
	"context"

	"radiology-bot/internal/domain/entity"
)

// ObjectStorage хранилище входных изображений и артефактов анализа.
type ObjectStorage interface {
	// Backend имя активного бэкенда
	Backend() string

	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get возвращает entity.ErrObjectNotFound, если ключа нет
	Get(ctx context.Context, key string) ([]byte, error)

	List(ctx context.Context, prefix string) ([]entity.StoredObject, error)

	// Size суммарный объём объектов с префиксом в байтах
	Size(ctx context.Context, prefix string) (int64, error)
}

// UsageTracker учёт запусков анализа по пользователям.
type UsageTracker interface {
	// Reserve атомарно занимает один запуск. Если лимит исчерпан,
	// возвращает entity.ErrQuotaExceeded и ничего не засчитывает
	Reserve(ctx context.Context, userID string) error

	// Release возвращает занятый запуск после неудачного анализа
	Release(ctx context.Context, userID string) error
}
