package app

import (
	"context"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.SetState(state)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// BeginXRay ждёт рентгеновский снимок.
func (s *UserService) BeginXRay(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingXRay)
}

// BeginECG ждёт фото ЭКГ-ленты.
func (s *UserService) BeginECG(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingECG)
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// BeginProcessing занимает пользователя под анализ. ok = false, если
// изображение не ждали или анализ уже идёт; mode показывает, что именно.
func (s *UserService) BeginProcessing(ctx context.Context, userID, chatID int64) (mode entity.UserState, ok bool, err error) {
	return s.repo.CompareAndSetState(ctx, userID, chatID, entity.StateProcessing,
		entity.StateAwaitingXRay, entity.StateAwaitingECG)
}

// FinishProcessing возвращает режим mode, если пользователь не сменил его
// командой во время анализа.
func (s *UserService) FinishProcessing(ctx context.Context, userID, chatID int64, mode entity.UserState) error {
	_, _, err := s.repo.CompareAndSetState(ctx, userID, chatID, mode, entity.StateProcessing)
	return err
}
