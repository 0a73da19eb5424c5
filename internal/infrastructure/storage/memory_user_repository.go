package storage

import (
	"context"
	"slices"
	"sync"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище состояний диалога.
// Наружу отдаются копии: обработчики бота работают в разных горутинах.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		user = *entity.NewUser(userID, chatID)
		r.users[userID] = user
	}
	return &user, nil
}

// Save сохраняет состояние пользователя
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние существующего пользователя
func (r *MemoryUserRepository) UpdateState(ctx context.Context, userID int64, state entity.UserState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, exists := r.users[userID]; exists {
		user.SetState(state)
		r.users[userID] = user
	}
	return nil
}

// CompareAndSetState меняет состояние под тем же мьютексом, что и чтение
func (r *MemoryUserRepository) CompareAndSetState(ctx context.Context, userID, chatID int64, to entity.UserState, from ...entity.UserState) (entity.UserState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		user = *entity.NewUser(userID, chatID)
	}
	prev := user.State
	if !slices.Contains(from, prev) {
		r.users[userID] = user
		return prev, false, nil
	}
	user.SetState(to)
	r.users[userID] = user
	return prev, true, nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
