package storage

import (
	"context"
	"sync"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище пользователей
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]*entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]*entity.User),
	}
}

// Get возвращает копию пользователя, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		user = entity.NewUser(userID, chatID)
		r.users[userID] = user
	}

	copied := *user
	return &copied, nil
}

// Save сохраняет состояние пользователя
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	copied := *user

	r.mu.Lock()
	r.users[user.ID] = &copied
	r.mu.Unlock()

	return nil
}

// Scanning возвращает пользователей с активной сессией
func (r *MemoryUserRepository) Scanning(ctx context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.User
	for _, u := range r.users {
		if u.SessionID == "" {
			continue
		}
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
