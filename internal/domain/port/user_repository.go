package port

import (
	"context"

	"pantry-bot/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользователей бота
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// Scanning возвращает пользователей с активной сессией сканирования
	Scanning(ctx context.Context) ([]*entity.User, error)
}
