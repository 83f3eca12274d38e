package port

import (
	"context"

	"pantry-bot/internal/domain/entity"
)

// Classifier интерфейс внешнего классификатора изображений
type Classifier interface {
	// Classify отправляет изображение и возвращает найденные метки без фильтрации.
	// Ошибки возвращаются как *entity.ClassifierError.
	Classify(ctx context.Context, image []byte) ([]entity.Detection, error)
}
