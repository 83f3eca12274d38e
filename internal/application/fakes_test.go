package app

import (
	"context"
	"errors"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/infrastructure/storage"
)

type classifierFunc func(ctx context.Context, image []byte) ([]entity.Detection, error)

func (f classifierFunc) Classify(ctx context.Context, image []byte) ([]entity.Detection, error) {
	return f(ctx, image)
}

func staticClassifier(dets ...entity.Detection) classifierFunc {
	return func(ctx context.Context, image []byte) ([]entity.Detection, error) {
		return dets, nil
	}
}

// faultyStore отказывает на заданных названиях.
type faultyStore struct {
	*storage.MemoryInventory
	failQuery  map[string]bool
	failInsert map[string]bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		MemoryInventory: storage.NewMemoryInventory(),
		failQuery:       map[string]bool{},
		failInsert:      map[string]bool{},
	}
}

func (s *faultyStore) Query(ctx context.Context, field, value string) ([]entity.IngredientRecord, error) {
	if s.failQuery[value] {
		return nil, errors.New("query unavailable")
	}
	return s.MemoryInventory.Query(ctx, field, value)
}

func (s *faultyStore) Insert(ctx context.Context, fields entity.Fields) (string, error) {
	if s.failInsert[fields[entity.FieldName]] {
		return "", errors.New("insert rejected")
	}
	return s.MemoryInventory.Insert(ctx, fields)
}

func (s *faultyStore) names(ctx context.Context) []string {
	recs, _ := s.MemoryInventory.List(ctx)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}
