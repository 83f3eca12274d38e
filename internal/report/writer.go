package report

import (
	"errors"
	"fmt"
	"io"

	"pantry-bot/internal/domain/entity"
)

// Форматы вывода
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Writer выводит результаты сканирования и инвентарь.
type Writer interface {
	WriteSession(s entity.ScanSession) error
	WriteInventory(recs []entity.IngredientRecord) error
}

// NewWriter возвращает writer для формата.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatMarkdown, "":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
