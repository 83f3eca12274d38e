package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

var (
	ErrEmptyName          = errors.New("ingredient name is empty")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// InventoryService даёт просматривать и править инвентарь вне сессии сканирования.
type InventoryService struct {
	store port.InventoryStore
}

func NewInventoryService(store port.InventoryStore) *InventoryService {
	return &InventoryService{store: store}
}

// List возвращает все записи, отсортированные по названию.
func (s *InventoryService) List(ctx context.Context) ([]entity.IngredientRecord, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Name < recs[j].Name
	})
	return recs, nil
}

// Add добавляет ингредиент вручную. Если такое название уже есть, возвращает
// существующую запись и created=false.
func (s *InventoryService) Add(ctx context.Context, name string) (rec entity.IngredientRecord, created bool, err error) {
	name = entity.NormalizeLabel(name)
	if name == "" {
		return entity.IngredientRecord{}, false, ErrEmptyName
	}

	existing, err := s.store.Query(ctx, entity.FieldName, name)
	if err != nil {
		return entity.IngredientRecord{}, false, &entity.StoreError{Kind: entity.KindQueryFailed, Label: name, Err: err}
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	id, err := s.store.Insert(ctx, entity.NewIngredientFields(name))
	if err != nil {
		return entity.IngredientRecord{}, false, &entity.StoreError{Kind: entity.KindInsertFailed, Label: name, Err: err}
	}
	return entity.IngredientRecord{ID: id, Name: name}, true, nil
}

// Delete удаляет запись по идентификатору.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// DeleteByName удаляет все записи с этим названием и возвращает их число.
func (s *InventoryService) DeleteByName(ctx context.Context, name string) (int, error) {
	name = entity.NormalizeLabel(name)
	if name == "" {
		return 0, ErrEmptyName
	}

	recs, err := s.store.Query(ctx, entity.FieldName, name)
	if err != nil {
		return 0, &entity.StoreError{Kind: entity.KindQueryFailed, Label: name, Err: err}
	}
	if len(recs) == 0 {
		return 0, ErrIngredientNotFound
	}

	for i, rec := range recs {
		if err := s.store.Delete(ctx, rec.ID); err != nil {
			return i, fmt.Errorf("delete %s: %w", rec.ID, err)
		}
	}
	return len(recs), nil
}
