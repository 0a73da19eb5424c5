package storage

import (
	"context"
	"fmt"
	"sync"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

// MemoryUsageTracker in-memory учёт запусков анализа
type MemoryUsageTracker struct {
	mu      sync.Mutex
	runs    map[string]int
	maxRuns int
}

// NewMemoryUsageTracker создаёт учёт с лимитом maxRuns на пользователя
func NewMemoryUsageTracker(maxRuns int) *MemoryUsageTracker {
	return &MemoryUsageTracker{runs: make(map[string]int), maxRuns: maxRuns}
}

func (t *MemoryUsageTracker) Reserve(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	used := t.runs[userID]
	if used >= t.maxRuns {
		return fmt.Errorf("%w: %d of %d runs used", entity.ErrQuotaExceeded, used, t.maxRuns)
	}
	t.runs[userID] = used + 1
	return nil
}

func (t *MemoryUsageTracker) Release(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runs[userID] > 0 {
		t.runs[userID]--
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.UsageTracker = (*MemoryUsageTracker)(nil)
