package port

import (
	"context"

	"pantry-bot/internal/domain/entity"
)

// InventoryStore интерфейс коллекции документов с ингредиентами
type InventoryStore interface {
	// Query возвращает записи, у которых поле field равно value
	Query(ctx context.Context, field, value string) ([]entity.IngredientRecord, error)

	// Insert создаёт запись и возвращает её идентификатор
	Insert(ctx context.Context, fields entity.Fields) (string, error)

	// Delete удаляет запись по идентификатору
	Delete(ctx context.Context, id string) error

	// List возвращает все записи
	List(ctx context.Context) ([]entity.IngredientRecord, error)
}
