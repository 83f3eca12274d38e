package app

import (
	"context"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
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

// BeginScan привязывает сессию сканирования к пользователю.
func (s *UserService) BeginScan(ctx context.Context, userID, chatID int64, sessionID string) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.AttachSession(sessionID)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// EndScan возвращает пользователя в главное меню.
func (s *UserService) EndScan(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	user.DetachSession()
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Scanning возвращает пользователей с активной сессией.
func (s *UserService) Scanning(ctx context.Context) ([]*entity.User, error) {
	return s.repo.Scanning(ctx)
}
