package storage

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// fieldID позволяет искать по идентификатору
const fieldID = "id"

// MemoryInventory in-memory коллекция ингредиентов
type MemoryInventory struct {
	mu    sync.RWMutex
	docs  map[string]entity.Fields
	order []string
}

// NewMemoryInventory создаёт пустую коллекцию
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		docs: make(map[string]entity.Fields),
	}
}

// Query возвращает документы, у которых поле совпадает со значением
func (m *MemoryInventory) Query(ctx context.Context, field, value string) ([]entity.IngredientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []entity.IngredientRecord
	for _, id := range m.order {
		doc := m.docs[id]
		if field == fieldID {
			if id == value {
				out = append(out, toRecord(id, doc))
			}
			continue
		}
		if v, ok := doc[field]; ok && v == value {
			out = append(out, toRecord(id, doc))
		}
	}
	return out, nil
}

// Insert сохраняет копию полей под новым идентификатором
func (m *MemoryInventory) Insert(ctx context.Context, fields entity.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := fields[fieldID]; ok {
		return "", fmt.Errorf("insert: %w: %s is assigned by the store", ErrUnknownField, fieldID)
	}

	id := uuid.NewString()

	m.mu.Lock()
	m.docs[id] = maps.Clone(fields)
	m.order = append(m.order, id)
	m.mu.Unlock()

	return id, nil
}

// Delete удаляет документ
func (m *MemoryInventory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List возвращает документы в порядке добавления
func (m *MemoryInventory) List(ctx context.Context) ([]entity.IngredientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entity.IngredientRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, toRecord(id, m.docs[id]))
	}
	return out, nil
}

func toRecord(id string, doc entity.Fields) entity.IngredientRecord {
	return entity.IngredientRecord{ID: id, Name: doc[entity.FieldName]}
}

var _ port.InventoryStore = (*MemoryInventory)(nil)
